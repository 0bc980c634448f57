package ports

import (
	"context"
	"time"

	"github.com/TheLegendOwner/manetka-miniapp/core"
)

// Store persists what the linking flow needs across requests: the
// replay guard for consumed identity assertions and the set of wallets
// linked to each user.
type Store interface {
	// MarkAssertionUsed records a consumed assertion digest for ttl
	MarkAssertionUsed(ctx context.Context, digest string, ttl time.Duration) error

	// IsAssertionUsed checks whether an assertion digest was already consumed
	IsAssertionUsed(ctx context.Context, digest string) (bool, error)

	// SaveWallet records a verified wallet for a user
	SaveWallet(ctx context.Context, userID int64, wallet core.LinkedWallet) error

	// ListWallets returns the wallets linked to a user
	ListWallets(ctx context.Context, userID int64) ([]core.LinkedWallet, error)
}
