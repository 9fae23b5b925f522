package provider

import "time"

// Credential is the finished product of an authorization flow: the
// provider access token plus the metadata needed to use it. It must not
// be written to logs or rendered into any HTML response.
type Credential struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	ObtainedAt  time.Time `json:"obtained_at"`
	Expiry      time.Time `json:"expiry,omitempty"`
}
