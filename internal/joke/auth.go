package joke

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthConfig describes how the client authenticates. When TokenURL is set,
// tokens come from the OAuth2 client-credentials flow and APIKey is ignored.
type AuthConfig struct {
	APIKey       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// NewTokenSource returns the bearer token source for cfg, or nil when no
// credentials are configured. ctx scopes the token endpoint requests.
func NewTokenSource(ctx context.Context, cfg AuthConfig) oauth2.TokenSource {
	if strings.TrimSpace(cfg.TokenURL) != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		return cc.TokenSource(ctx)
	}

	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"})
	}

	return nil
}
