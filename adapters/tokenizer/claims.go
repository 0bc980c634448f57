package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the Telegram profile
type SessionClaims struct {
	jwt.RegisteredClaims
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}
