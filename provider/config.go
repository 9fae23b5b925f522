package provider

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/stitchd/go-auth-broker/internal/errors"
)

// Config identifies the OAuth application at the provider. ClientSecret
// exists only inside the process performing the token exchange: the
// hosted broker, or the user's own client in local mode. It is never
// transmitted to a polling caller.
type Config struct {
	AuthorizeEndpoint string
	TokenEndpoint     string
	ClientID          string
	ClientSecret      string
	Scopes            []string
}

func (c Config) Validate() error {
	if c.ClientID == "" {
		return errors.Wrapf(errors.ErrConfig, "provider client id is required")
	}
	if c.AuthorizeEndpoint == "" || c.TokenEndpoint == "" {
		return errors.Wrapf(errors.ErrConfig, "provider authorize and token endpoints are required")
	}
	return nil
}

// Discover resolves the authorize and token endpoints from an OIDC
// issuer's discovery document, for providers that publish one.
func Discover(ctx context.Context, issuer, clientID, clientSecret string, scopes []string) (Config, error) {
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Config{}, fmt.Errorf("[provider Discover] failed to query issuer %q: %w", issuer, err)
	}

	endpoint := p.Endpoint()
	cfg := Config{
		AuthorizeEndpoint: endpoint.AuthURL,
		TokenEndpoint:     endpoint.TokenURL,
		ClientID:          clientID,
		ClientSecret:      clientSecret,
		Scopes:            scopes,
	}
	return cfg, cfg.Validate()
}
