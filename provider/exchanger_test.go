package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchd/go-auth-broker/provider"
)

func testConfig(tokenURL string) provider.Config {
	return provider.Config{
		AuthorizeEndpoint: "https://provider.example/authorize",
		TokenEndpoint:     tokenURL,
		ClientID:          "client-123",
		ClientSecret:      "secret-456",
		Scopes:            []string{"identify", "activity"},
	}
}

func TestNewExchangerValidatesConfig(t *testing.T) {
	_, err := provider.NewExchanger(provider.Config{})
	assert.Error(t, err)
}

func TestAuthorizeURL(t *testing.T) {
	exchanger, err := provider.NewExchanger(testConfig("https://provider.example/token"))
	require.NoError(t, err)

	raw := exchanger.AuthorizeURL("https://broker.example/auth/callback", "nonce-abc")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example/authorize", parsed.Scheme+"://"+parsed.Host+parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "client-123", query.Get("client_id"))
	assert.Equal(t, "https://broker.example/auth/callback", query.Get("redirect_uri"))
	assert.Equal(t, "nonce-abc", query.Get("state"))
	assert.Equal(t, "identify activity", query.Get("scope"))
}

func TestExchangeSuccess(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok_live","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	exchanger, err := provider.NewExchanger(testConfig(server.URL))
	require.NoError(t, err)

	cred, err := exchanger.Exchange(context.Background(), "code-789", "https://broker.example/auth/callback")
	require.NoError(t, err)

	assert.Equal(t, "tok_live", cred.AccessToken)
	assert.Equal(t, "Bearer", cred.TokenType)
	assert.WithinDuration(t, time.Now(), cred.ObtainedAt, 5*time.Second)
	assert.True(t, cred.Expiry.After(time.Now()))

	// The secret travels in the form body, never to any other party.
	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "code-789", gotForm.Get("code"))
	assert.Equal(t, "https://broker.example/auth/callback", gotForm.Get("redirect_uri"))
	assert.Equal(t, "client-123", gotForm.Get("client_id"))
	assert.Equal(t, "secret-456", gotForm.Get("client_secret"))
}

func TestExchangeInvalidGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer server.Close()

	exchanger, err := provider.NewExchanger(testConfig(server.URL))
	require.NoError(t, err)

	_, err = exchanger.Exchange(context.Background(), "stale-code", "https://broker.example/auth/callback")
	require.Error(t, err)

	var exchangeErr *provider.ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, provider.KindInvalidGrant, exchangeErr.Kind)
	assert.Equal(t, http.StatusBadRequest, exchangeErr.Status)
	assert.Contains(t, exchangeErr.Detail, "code expired")
	// The user-facing message carries none of the provider response.
	assert.NotContains(t, exchangeErr.Error(), "code expired")
}

func TestExchangeProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	exchanger, err := provider.NewExchanger(testConfig(server.URL))
	require.NoError(t, err)

	_, err = exchanger.Exchange(context.Background(), "code", "https://broker.example/auth/callback")
	require.Error(t, err)

	var exchangeErr *provider.ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, provider.KindProviderError, exchangeErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, exchangeErr.Status)
	assert.NotContains(t, exchangeErr.Error(), "upstream exploded")
}

func TestExchangeMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer server.Close()

	exchanger, err := provider.NewExchanger(testConfig(server.URL))
	require.NoError(t, err)

	_, err = exchanger.Exchange(context.Background(), "code", "https://broker.example/auth/callback")
	require.Error(t, err)

	var exchangeErr *provider.ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, provider.KindMalformed, exchangeErr.Kind)
}

func TestExchangeNetworkFailure(t *testing.T) {
	// Nothing listens on this port.
	exchanger, err := provider.NewExchanger(testConfig("http://127.0.0.1:1/token"))
	require.NoError(t, err)

	_, err = exchanger.Exchange(context.Background(), "code", "https://broker.example/auth/callback")
	require.Error(t, err)

	var exchangeErr *provider.ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, provider.KindNetwork, exchangeErr.Kind)
}
