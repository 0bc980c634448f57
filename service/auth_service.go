package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/internal/telegram"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// DefaultAssertionMaxAge is the freshness window of an identity
// assertion: older launches must re-open the app to obtain a fresh one.
const DefaultAssertionMaxAge = 24 * time.Hour

// AuthService handles server-side authentication and wallet records
type AuthService struct {
	botToken  string
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	rewards   ports.RewardsAPI
	log       zerolog.Logger

	assertionMaxAge time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	botToken string,
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	rewards ports.RewardsAPI,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		botToken:        botToken,
		tokenizer:       tokenizer,
		store:           store,
		eventPub:        eventPub,
		rewards:         rewards,
		log:             log,
		assertionMaxAge: DefaultAssertionMaxAge,
	}
}

// VerifyAssertion checks an identity assertion without consuming it
func (s *AuthService) VerifyAssertion(initData string) core.VerificationResult {
	return telegram.Verify(initData, s.botToken)
}

// Login verifies an identity assertion, consumes it and issues a
// session token for the embedded user. A verified assertion can
// authenticate exactly once within its freshness window.
func (s *AuthService) Login(ctx context.Context, initData string) (string, *core.TelegramUser, error) {
	result := telegram.Verify(initData, s.botToken)
	if !result.Valid {
		if result.Reason == core.ReasonServerMisconfigured {
			return "", nil, core.ErrServerMisconfigured
		}
		return "", nil, fmt.Errorf("%s: %w", result.Reason, core.ErrInvalidAssertion)
	}

	issuedAt, err := telegram.AuthDate(initData)
	if err != nil {
		return "", nil, err
	}

	age := time.Since(issuedAt)
	if age > s.assertionMaxAge {
		return "", nil, core.ErrAssertionExpired
	}

	digest := assertionDigest(initData)

	used, err := s.store.IsAssertionUsed(ctx, digest)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check assertion replay: %w", err)
	}
	if used {
		return "", nil, core.ErrAssertionUsed
	}

	// Guard the digest for the rest of the freshness window so the
	// assertion cannot authenticate twice.
	if err := s.store.MarkAssertionUsed(ctx, digest, s.assertionMaxAge-age); err != nil {
		return "", nil, fmt.Errorf("failed to mark assertion used: %w", err)
	}

	user, err := telegram.User(initData)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokenizer.UserToToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, user.ID); err != nil {
		// The session token is already issued; a lost event is not
		// worth failing the login over.
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to publish login event")
	}

	return token, user, nil
}

// ValidateToken parses and validates a session token
func (s *AuthService) ValidateToken(token string) (*core.TelegramUser, error) {
	return s.tokenizer.TokenToUser(token)
}

// RecordWallet stores a freshly verified wallet for a user. The first
// wallet a user links becomes the main one.
func (s *AuthService) RecordWallet(ctx context.Context, userID int64, address string) (core.LinkedWallet, error) {
	existing, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return core.LinkedWallet{}, fmt.Errorf("failed to list wallets: %w", err)
	}

	for _, w := range existing {
		if w.Address == address {
			return w, nil
		}
	}

	wallet := core.LinkedWallet{
		WalletID:    uuid.New().String(),
		Address:     address,
		Main:        len(existing) == 0,
		ConnectedAt: time.Now(),
	}

	if err := s.store.SaveWallet(ctx, userID, wallet); err != nil {
		return core.LinkedWallet{}, fmt.Errorf("failed to save wallet: %w", err)
	}

	if err := s.eventPub.PublishWalletLinked(ctx, userID, wallet); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to publish wallet linked event")
	}

	return wallet, nil
}

// ListWallets returns the wallets linked to a user
func (s *AuthService) ListWallets(ctx context.Context, userID int64) ([]core.LinkedWallet, error) {
	return s.store.ListWallets(ctx, userID)
}

// assertionDigest keys the replay guard. The assertion's own hash field
// already authenticates the full field set, so hashing the raw string
// is sufficient and avoids storing identity data in the store.
func assertionDigest(initData string) string {
	sum := sha256.Sum256([]byte(initData))
	return hex.EncodeToString(sum[:])
}
