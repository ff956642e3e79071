package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ProviderIdentity is what a completed provider callback yields: the
// provider's name, the provider-scoped username, and the opaque access
// token. This is the exact input the OAuth linker consumes.
type ProviderIdentity struct {
	Provider string
	Username string
	Token    string
}

// Provider abstracts the OAuth 2.0 authorization-code flow. The service
// layer depends on this interface so tests can complete a "callback"
// without a network.
type Provider interface {
	Name() string
	// AuthURL returns the provider page to redirect the browser to.
	// state is a per-flow CSRF nonce the callback must echo back.
	AuthURL(state string) string
	// Exchange trades the callback code for the provider identity.
	Exchange(ctx context.Context, code string) (*ProviderIdentity, error)
}

// GitHubProvider implements Provider against GitHub OAuth apps.
//
// FLOW:
//  1. We redirect the browser to GitHub's authorization endpoint.
//  2. The user approves; GitHub redirects back with a short-lived code.
//  3. We exchange the code for an access token, server-to-server, using
//     the client secret — the token never touches the browser.
//  4. We call GitHub's /user endpoint for the profile; the login becomes
//     the provider-scoped username.
type GitHubProvider struct {
	config *oauth2.Config
}

var _ Provider = (*GitHubProvider)(nil)

// NewGitHubProvider creates a GitHubProvider. callbackURL must exactly
// match the "Authorization callback URL" registered with the OAuth app.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (p *GitHubProvider) Name() string { return "github" }

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// githubUser is the slice of GitHub's /user response we care about.
type githubUser struct {
	Login string `json:"login"`
}

// Exchange completes the code-for-identity exchange. Any failure here —
// bad code, network error, non-200 from the API, empty login — means the
// callback produced no usable identity; the linker maps that to an
// OAuthFailure with nothing persisted.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*ProviderIdentity, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// Authorization header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("auth: fetching provider identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: provider identity endpoint returned status %d", resp.StatusCode)
	}

	var gh githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return nil, fmt.Errorf("auth: decoding provider identity: %w", err)
	}
	if gh.Login == "" {
		return nil, fmt.Errorf("auth: provider returned an empty username")
	}

	return &ProviderIdentity{
		Provider: p.Name(),
		Username: gh.Login,
		Token:    oauthToken.AccessToken,
	}, nil
}
