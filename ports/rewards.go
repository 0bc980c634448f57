package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// TokenBalance is one reward token position reported by the account API
type TokenBalance struct {
	Token   string
	Logo    string
	URL     string
	Balance decimal.Decimal
	USD     decimal.Decimal
	TON     decimal.Decimal
}

// TokenReward is an accrued reward amount for one token
type TokenReward struct {
	Token  string
	Amount decimal.Decimal
}

// RewardsAPI is the remote account-data service. It is an external
// collaborator: this module only consumes it over HTTP.
type RewardsAPI interface {
	Balances(ctx context.Context, walletID string) ([]TokenBalance, error)
	Rewards(ctx context.Context, walletID string) ([]TokenReward, error)
}
