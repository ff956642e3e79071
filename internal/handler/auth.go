package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/service"
)

// AuthHandler owns the authentication routes: local signup/login/logout,
// the current-user endpoint, and the OAuth provider flow.
type AuthHandler struct {
	accounts *service.AccountService
	sessions *service.SessionService
	oauth    *service.OAuthService
	provider auth.Provider // nil when OAuth is not configured
	logger   *slog.Logger
}

func NewAuthHandler(
	accounts *service.AccountService,
	sessions *service.SessionService,
	oauth *service.OAuthService,
	provider auth.Provider,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		oauth:    oauth,
		provider: provider,
		logger:   logger,
	}
}

// authResponse bundles the user with a flash-style message.
type authResponse struct {
	User    *model.User `json:"user"`
	Message string      `json:"message"`
}

// HandleSignup creates a local account and logs it in.
//
// HTTP: POST /auth/signup
//
// Signup auto-login mirrors the classic flow: a fresh account should not
// have to log in as a second step.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.Signup(r.Context(), req.FirstName, req.LastName, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.sessions.Start(r.Context(), user)
	if err != nil {
		h.logger.Error("signup: starting session failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, authResponse{User: user, Message: "account created"})
}

// HandleLogin authenticates a local account and starts a session.
//
// HTTP: POST /auth/login
//
// A failed login is a 401 with the same body whether the username is
// unknown or the password wrong — the service guarantees that, this
// handler just forwards it.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.sessions.Start(r.Context(), user)
	if err != nil {
		h.logger.Error("login: starting session failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{User: user, Message: "logged in"})
}

// HandleLogout revokes the session and clears the cookie.
//
// HTTP: POST /auth/logout
//
// Idempotent end to end: no cookie, a garbage cookie, or an already-ended
// session all produce the same 200.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.End(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout: ending session failed", slog.String("error", err.Error()))
			writeError(w, err)
			return
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the current user's profile.
//
// HTTP: GET /auth/me (behind RequireUser)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		// Unreachable behind RequireUser, kept for direct mounting.
		writeError(w, apperror.Unauthenticated())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleOAuthLogin redirects the browser to the provider.
//
// HTTP: GET /auth/{provider}/login
//
// The state nonce goes into a short-lived cookie; the callback checks the
// provider echoed the same value. That proves the flow started here and
// not on an attacker's page.
func (h *AuthHandler) HandleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleOAuthCallback completes the provider flow and runs the linker.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// This is a browser-facing route, so failures redirect with an error
// query parameter instead of returning JSON — the user is mid-navigation,
// not calling an API.
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	// CSRF check before anything else.
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		h.redirectWithError(w, r, "invalid OAuth state")
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		h.redirectWithError(w, r, "authorization denied")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "missing OAuth code")
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		// No usable token or the identity fetch failed: nothing was
		// persisted, the visitor stays anonymous.
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, "could not sign in with "+h.provider.Name())
		return
	}

	current := auth.CurrentUserOrNil(r.Context())
	result, err := h.oauth.CompleteCallback(r.Context(), identity, current)
	if err != nil {
		h.logger.Error("oauth callback: linking failed",
			slog.String("provider", identity.Provider),
			slog.String("providerUsername", identity.Username),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, apperror.ErrOAuthFailure) || errors.Is(err, apperror.ErrOAuthLinkFailure) {
			h.redirectWithError(w, r, err.Error())
			return
		}
		h.redirectWithError(w, r, "sign-in failed")
		return
	}

	// A new session token is only present when the linker logged someone
	// in; the "linked to existing session" outcome keeps the old cookie.
	if result.SessionToken != "" {
		h.setSessionCookie(w, result.SessionToken)
	}

	notice := "signed in"
	switch result.Outcome {
	case service.OutcomeLinked:
		notice = "account linked"
	case service.OutcomeNewAccount:
		notice = "account created"
	}
	http.Redirect(w, r, "/?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(message), http.StatusSeeOther)
}

// setSessionCookie stores the session token in an HttpOnly cookie.
// HttpOnly keeps scripts away from it; SameSite=Lax keeps it off
// cross-site POSTs. Set Secure behind HTTPS in production.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
