package ports

import (
	"context"

	"github.com/TheLegendOwner/manetka-miniapp/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, userID int64) error
	PublishWalletLinked(ctx context.Context, userID int64, wallet core.LinkedWallet) error
}
