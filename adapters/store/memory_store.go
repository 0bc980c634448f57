package store

import (
	"context"
	"sync"
	"time"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	usedAssertions map[string]time.Time
	wallets        map[int64][]core.LinkedWallet
	mu             sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		usedAssertions: make(map[string]time.Time),
		wallets:        make(map[int64][]core.LinkedWallet),
	}
}

// MarkAssertionUsed records a consumed assertion digest for ttl
func (s *MemoryStore) MarkAssertionUsed(ctx context.Context, digest string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime := time.Now().Add(ttl)
	s.usedAssertions[digest] = expiryTime

	// Drop the record once the assertion itself would have expired.
	go func() {
		time.Sleep(ttl)

		s.mu.Lock()
		defer s.mu.Unlock()

		if storedExpiry, exists := s.usedAssertions[digest]; exists && !storedExpiry.After(expiryTime) {
			delete(s.usedAssertions, digest)
		}
	}()

	return nil
}

// IsAssertionUsed checks whether an assertion digest was already consumed
func (s *MemoryStore) IsAssertionUsed(ctx context.Context, digest string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.usedAssertions[digest]
	if !exists {
		return false, nil
	}

	if time.Now().After(expiryTime) {
		return false, nil
	}

	return true, nil
}

// SaveWallet records a verified wallet for a user
func (s *MemoryStore) SaveWallet(ctx context.Context, userID int64, wallet core.LinkedWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets[userID] = append(s.wallets[userID], wallet)

	return nil
}

// ListWallets returns the wallets linked to a user
func (s *MemoryStore) ListWallets(ctx context.Context, userID int64) ([]core.LinkedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make([]core.LinkedWallet, len(s.wallets[userID]))
	copy(wallets, s.wallets[userID])

	return wallets, nil
}
