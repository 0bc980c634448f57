package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client          *redis.Client
	assertionPrefix string
	walletPrefix    string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client:          client,
		assertionPrefix: "manetka:assertion:",
		walletPrefix:    "manetka:wallets:",
	}
}

// MarkAssertionUsed records a consumed assertion digest in Redis
func (s *RedisStore) MarkAssertionUsed(ctx context.Context, digest string, ttl time.Duration) error {
	key := s.assertionPrefix + digest

	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark assertion used: %w", err)
	}

	return nil
}

// IsAssertionUsed checks whether an assertion digest was already consumed
func (s *RedisStore) IsAssertionUsed(ctx context.Context, digest string) (bool, error) {
	key := s.assertionPrefix + digest

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check assertion: %w", err)
	}

	return val > 0, nil
}

// SaveWallet records a verified wallet for a user
func (s *RedisStore) SaveWallet(ctx context.Context, userID int64, wallet core.LinkedWallet) error {
	key := fmt.Sprintf("%s%d", s.walletPrefix, userID)

	payload, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}

	return nil
}

// ListWallets returns the wallets linked to a user
func (s *RedisStore) ListWallets(ctx context.Context, userID int64) ([]core.LinkedWallet, error) {
	key := fmt.Sprintf("%s%d", s.walletPrefix, userID)

	entries, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wallets := make([]core.LinkedWallet, 0, len(entries))
	for _, entry := range entries {
		var wallet core.LinkedWallet
		if err := json.Unmarshal([]byte(entry), &wallet); err != nil {
			return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	return wallets, nil
}
