package config

import "strings"

type ProviderConfig interface {
	GetProviderClientID() string
	GetProviderClientSecret() string
	GetProviderAuthorizeEndpoint() string
	GetProviderTokenEndpoint() string
	GetProviderIssuer() string
	GetProviderScopes() []string
}

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetProviderClientID() string {
	return GetEnv("PROVIDER_CLIENT_ID", "")
}

// GetProviderClientSecret is read only inside the broker process. It is
// never included in any response or log line.
func (Provider) GetProviderClientSecret() string {
	return GetEnv("PROVIDER_CLIENT_SECRET", "")
}

func (Provider) GetProviderAuthorizeEndpoint() string {
	return GetEnv("PROVIDER_AUTHORIZE_ENDPOINT", "")
}

func (Provider) GetProviderTokenEndpoint() string {
	return GetEnv("PROVIDER_TOKEN_ENDPOINT", "")
}

// GetProviderIssuer, when set, selects OIDC discovery of the authorize
// and token endpoints instead of the explicit endpoint variables.
func (Provider) GetProviderIssuer() string {
	return GetEnv("PROVIDER_ISSUER", "")
}

func (Provider) GetProviderScopes() []string {
	scopes := GetEnv("PROVIDER_SCOPES", "")
	if scopes == "" {
		return nil
	}
	return strings.Split(scopes, ",")
}
