package ports

import (
	"context"

	"github.com/TheLegendOwner/manetka-miniapp/core"
)

// WalletSigner is the externally supplied wallet capability that signs
// proof challenges. Signing may take minutes while a human interacts
// with the wallet app; implementations must honor ctx cancellation and
// return core.ErrSignerCancelled when the user declines.
type WalletSigner interface {
	RequestProof(ctx context.Context, challenge core.Challenge) (core.TonAccount, core.WalletProof, error)
}
