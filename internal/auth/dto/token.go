package dto

// TokenResponse is the login payload. The refresh token additionally travels
// in the scoped httpOnly cookie set by the handler.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         *UserOutput `json:"user,omitempty"`
}

// RefreshResponse carries only the new access token; the rotated refresh
// token is returned exclusively through the cookie.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
