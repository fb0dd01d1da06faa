package auth

import "time"

// RefreshMargin is subtracted from a token's expiry when deciding whether it
// is still usable, so no request goes out with a token that could expire
// mid-flight.
const RefreshMargin = 60 * time.Second

// defaultExpiresIn is assumed when the auth endpoint omits expires_in.
const defaultExpiresIn = 600

// Token is one issued access token. Tokens are replaced wholesale on
// refresh, never mutated.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Usable reports whether the token can still be attached to a request at the
// given instant.
func (t Token) Usable(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-RefreshMargin))
}

// tokenRequest is the client-credentials exchange request body.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// tokenResponse is the auth endpoint's success response.
type tokenResponse struct {
	TokenType   string `json:"token_type,omitempty"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
