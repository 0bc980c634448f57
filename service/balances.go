package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// AllWallets selects every linked wallet in balance queries
const AllWallets = "all"

// TokenSummary aggregates one reward token across the selected wallets
type TokenSummary struct {
	Token   string          `json:"token"`
	Logo    string          `json:"logo"`
	URL     string          `json:"url"`
	Balance decimal.Decimal `json:"balance"`
	USD     decimal.Decimal `json:"usd"`
	TON     decimal.Decimal `json:"ton"`
	Rewards decimal.Decimal `json:"rewards"`
}

// Balances aggregates balances and accrued rewards per token across
// the user's wallets. walletID narrows the query to one wallet;
// AllWallets sums over every linked wallet.
func (s *AuthService) Balances(ctx context.Context, userID int64, walletID string) ([]TokenSummary, error) {
	wallets, err := s.selectWallets(ctx, userID, walletID)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]*TokenSummary)

	for _, wallet := range wallets {
		balances, err := s.rewards.Balances(ctx, wallet.WalletID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch balances for wallet %s: %w", wallet.WalletID, err)
		}

		for _, b := range balances {
			summary, ok := summaries[b.Token]
			if !ok {
				summary = &TokenSummary{Token: b.Token, Logo: b.Logo, URL: b.URL}
				summaries[b.Token] = summary
			}
			summary.Balance = summary.Balance.Add(b.Balance)
			summary.USD = summary.USD.Add(b.USD)
			summary.TON = summary.TON.Add(b.TON)
		}

		rewards, err := s.rewards.Rewards(ctx, wallet.WalletID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch rewards for wallet %s: %w", wallet.WalletID, err)
		}

		for _, r := range rewards {
			summary, ok := summaries[r.Token]
			if !ok {
				summary = &TokenSummary{Token: r.Token}
				summaries[r.Token] = summary
			}
			summary.Rewards = summary.Rewards.Add(r.Amount)
		}
	}

	result := make([]TokenSummary, 0, len(summaries))
	for _, summary := range summaries {
		result = append(result, *summary)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Token < result[j].Token })

	return result, nil
}

// RewardTotals sums accrued rewards per token across the selected wallets
func (s *AuthService) RewardTotals(ctx context.Context, userID int64, walletID string) ([]ports.TokenReward, error) {
	wallets, err := s.selectWallets(ctx, userID, walletID)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)

	for _, wallet := range wallets {
		rewards, err := s.rewards.Rewards(ctx, wallet.WalletID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch rewards for wallet %s: %w", wallet.WalletID, err)
		}
		for _, r := range rewards {
			totals[r.Token] = totals[r.Token].Add(r.Amount)
		}
	}

	result := make([]ports.TokenReward, 0, len(totals))
	for token, amount := range totals {
		result = append(result, ports.TokenReward{Token: token, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Token < result[j].Token })

	return result, nil
}

func (s *AuthService) selectWallets(ctx context.Context, userID int64, walletID string) ([]core.LinkedWallet, error) {
	wallets, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	if walletID == "" || walletID == AllWallets {
		return wallets, nil
	}

	for _, wallet := range wallets {
		if wallet.WalletID == walletID {
			return []core.LinkedWallet{wallet}, nil
		}
	}

	return nil, nil
}
