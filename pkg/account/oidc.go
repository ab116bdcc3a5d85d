package account

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/carepath-ai/platform/pkg/common/config"
	"github.com/carepath-ai/platform/pkg/common/models"
)

// Authenticator runs the optional OIDC authorization-code login. Sessions
// work anonymously without it; logging in only attaches an identity to the
// session.
type Authenticator struct {
	config *oauth2.Config
	issuer string
}

func NewAuthenticator(cfg *config.Config) (*Authenticator, error) {
	if cfg.OIDCIssuer == "" || cfg.OIDCClientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}

	oc := &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", cfg.OIDCIssuer),
			TokenURL: fmt.Sprintf("%s/token", cfg.OIDCIssuer),
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	return &Authenticator{config: oc, issuer: cfg.OIDCIssuer}, nil
}

// AuthURL builds the provider redirect for the given anti-forgery state.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

type userInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// Exchange redeems the authorization code and resolves the session
// identity from the provider's userinfo endpoint.
func (a *Authenticator) Exchange(ctx context.Context, code string) (models.SessionIdentity, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return models.SessionIdentity{}, fmt.Errorf("code exchange failed: %w", err)
	}

	client := a.config.Client(ctx, token)
	resp, err := client.Get(fmt.Sprintf("%s/userinfo", a.issuer))
	if err != nil {
		return models.SessionIdentity{}, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return models.SessionIdentity{}, fmt.Errorf("userinfo error: %s", resp.Status)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.SessionIdentity{}, err
	}
	if info.Subject == "" {
		return models.SessionIdentity{}, fmt.Errorf("userinfo missing subject")
	}

	return models.SessionIdentity{IsLoggedIn: true, UserID: info.Subject}, nil
}
