package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// AudienceSession marks session tokens issued after assertion verification
const AudienceSession = "miniapp:session"

// DefaultSessionTTL is the lifetime of a session token. It matches the
// assertion freshness window: once the assertion would have expired,
// the session does too.
const DefaultSessionTTL = 24 * time.Hour

// JWTTokenizer implements the Tokenizer interface using JWT
type JWTTokenizer struct {
	signKey    *ecdsa.PrivateKey
	sessionTTL time.Duration
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey, sessionTTL: DefaultSessionTTL}
}

// UserToToken issues a session token for a verified user
func (j *JWTTokenizer) UserToToken(user *core.TelegramUser) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		PhotoURL:  user.PhotoURL,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToUser parses and validates a session token
func (j *JWTTokenizer) TokenToUser(tokenStr string) (*core.TelegramUser, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", core.ErrInvalidToken)
	}

	return &core.TelegramUser{
		ID:        userID,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Username:  claims.Username,
		PhotoURL:  claims.PhotoURL,
	}, nil
}
