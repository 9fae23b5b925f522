package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Exchanger builds provider authorization URLs and performs the
// code-for-token exchange. It is stateless and safe for concurrent use
// by any number of sessions.
type Exchanger struct {
	config     Config
	httpClient *http.Client
}

type ExchangerOption func(*Exchanger)

// WithHTTPClient overrides the client used for the token request.
func WithHTTPClient(client *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		e.httpClient = client
	}
}

func NewExchanger(config Config, opts ...ExchangerOption) (*Exchanger, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("[provider NewExchanger] %w", err)
	}
	e := &Exchanger{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AuthorizeURL builds the provider authorization URL. Pure construction,
// no I/O. The state value binds the eventual callback to the session
// that initiated it.
func (e *Exchanger) AuthorizeURL(redirectURI, state string) string {
	return e.oauth2Config(redirectURI).AuthCodeURL(state)
}

// Exchange performs a single form-encoded POST to the provider token
// endpoint, trading the authorization code for a credential. Failures
// are returned as a categorized *ExchangeError; the raw provider
// response is carried in its Detail field and never in its message.
func (e *Exchanger) Exchange(ctx context.Context, code, redirectURI string) (*Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := e.oauth2Config(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, categorize(err)
	}

	return &Credential{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ObtainedAt:  time.Now(),
		Expiry:      token.Expiry,
	}, nil
}

func (e *Exchanger) oauth2Config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.config.ClientID,
		ClientSecret: e.config.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       e.config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  e.config.AuthorizeEndpoint,
			TokenURL: e.config.TokenEndpoint,
			// Credentials go in the POST body, not a basic auth header.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func categorize(err error) *ExchangeError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		kind := KindProviderError
		switch {
		case retrieveErr.ErrorCode == "invalid_grant":
			kind = KindInvalidGrant
		case status >= 200 && status < 300:
			// 2xx response the library could not extract a token from.
			kind = KindMalformed
		}
		return &ExchangeError{
			Kind:   kind,
			Status: status,
			Detail: fmt.Sprintf("%s: %s", retrieveErr.ErrorCode, string(retrieveErr.Body)),
			cause:  err,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &ExchangeError{Kind: KindNetwork, Detail: urlErr.Error(), cause: err}
	}

	return &ExchangeError{Kind: KindMalformed, Detail: err.Error(), cause: err}
}
