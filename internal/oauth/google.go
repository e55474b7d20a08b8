// Package oauth resolves external sign-in providers into profiles the auth
// handler can link to local accounts.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrNoProfile is returned when the provider answers without a subject.
var ErrNoProfile = errors.New("oauth: provider returned no profile")

// Profile is the subset of the provider's identity the app stores.
type Profile struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// IdentityProvider turns an authorization code into a profile.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	ResolveProfile(ctx context.Context, code string) (Profile, error)
}

// Google implements IdentityProvider with the authorization code flow.
type Google struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewGoogle builds a provider requesting the openid, email and profile scopes.
func NewGoogle(clientID, secret, redirectURL string) *Google {
	return &Google{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// ResolveProfile exchanges code for a token and reads the userinfo
// endpoint. Unverified addresses are dropped so they cannot be used to
// link onto an existing account.
func (g *Google) ResolveProfile(ctx context.Context, code string) (Profile, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("oauth: exchange: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	res, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("oauth: userinfo: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("oauth: userinfo status %d", res.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&info); err != nil {
		return Profile{}, fmt.Errorf("oauth: userinfo decode: %w", err)
	}
	if info.Sub == "" {
		return Profile{}, ErrNoProfile
	}
	p := Profile{ExternalID: info.Sub, DisplayName: strings.TrimSpace(info.Name)}
	if info.EmailVerified {
		p.Email = strings.ToLower(strings.TrimSpace(info.Email))
	}
	return p, nil
}
