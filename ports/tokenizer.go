package ports

import "github.com/TheLegendOwner/manetka-miniapp/core"

// Tokenizer converts between authenticated users and session tokens
type Tokenizer interface {
	// UserToToken issues a session token for a verified user
	UserToToken(user *core.TelegramUser) (string, error)

	// TokenToUser parses and validates a session token
	TokenToUser(token string) (*core.TelegramUser, error)
}
