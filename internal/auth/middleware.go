package auth

import (
	"context"
	"net/http"

	"github.com/sakif/microblog/internal/model"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write
// the current-user value — no other package can collide with it.
type contextKey string

const currentUserKey contextKey = "currentUser"

// UserResolver turns a session cookie value into a user, or nil for
// anonymous. Implemented by service.SessionService.
type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*model.User, error)
}

// WithCurrentUser resolves the request's identity exactly once and stores
// it in the context. It never blocks a request: a missing cookie, a bad
// token, a revoked session, or a deleted user all resolve to anonymous and
// the chain continues.
//
// Route-level enforcement is a separate concern — see RequireUser and the
// guards in guard.go.
func WithCurrentUser(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				// Resolution errors are treated as anonymous, not failed:
				// a stale cookie must never 500 a public page.
				if user, err := resolver.ResolveCurrentUser(r.Context(), cookie.Value); err == nil && user != nil {
					r = r.WithContext(context.WithValue(r.Context(), currentUserKey, user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser blocks anonymous requests with a 401. Mount it on protected
// subrouters, after WithCurrentUser.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"unauthenticated","message":"authentication required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser retrieves the resolved identity from the request context.
// Returns (nil, false) for anonymous requests.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*model.User)
	return user, ok && user != nil
}

// CurrentUserOrNil is CurrentUser for callers that want the guard-chain
// shape: guards take *model.User where nil means anonymous.
func CurrentUserOrNil(ctx context.Context) *model.User {
	user, _ := CurrentUser(ctx)
	return user
}
