// Package rewards is the HTTP client for the remote account-data API.
// The API is an external collaborator; this module only reads from it.
package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// DefaultTimeout bounds one account API request
const DefaultTimeout = 15 * time.Second

// Client talks to the account-data API
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the account-data API at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

type balancesResponse struct {
	Code int `json:"code"`
	Data struct {
		Balances []struct {
			Token string                     `json:"token"`
			Logo  string                     `json:"logo"`
			URL   string                     `json:"url"`
			Sums  map[string]decimal.Decimal `json:"sums"`
		} `json:"balances"`
	} `json:"data"`
}

type rewardsResponse struct {
	Code int `json:"code"`
	Data struct {
		Rewards []struct {
			Token  string          `json:"token"`
			Amount decimal.Decimal `json:"amount"`
		} `json:"rewards"`
	} `json:"data"`
}

// Balances returns the token balances of one wallet
func (c *Client) Balances(ctx context.Context, walletID string) ([]ports.TokenBalance, error) {
	var resp balancesResponse
	if err := c.get(ctx, fmt.Sprintf("%s/balances/%s", c.baseURL, walletID), &resp); err != nil {
		return nil, err
	}

	balances := make([]ports.TokenBalance, 0, len(resp.Data.Balances))
	for _, b := range resp.Data.Balances {
		balances = append(balances, ports.TokenBalance{
			Token:   b.Token,
			Logo:    b.Logo,
			URL:     b.URL,
			Balance: b.Sums["BALANCE"],
			USD:     b.Sums["USD"],
			TON:     b.Sums["TON"],
		})
	}

	return balances, nil
}

// Rewards returns the accrued rewards of one wallet
func (c *Client) Rewards(ctx context.Context, walletID string) ([]ports.TokenReward, error) {
	var resp rewardsResponse
	if err := c.get(ctx, fmt.Sprintf("%s/rewards/%s", c.baseURL, walletID), &resp); err != nil {
		return nil, err
	}

	rewards := make([]ports.TokenReward, 0, len(resp.Data.Rewards))
	for _, r := range resp.Data.Rewards {
		rewards = append(rewards, ports.TokenReward{Token: r.Token, Amount: r.Amount})
	}

	return rewards, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("account API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("account API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode account API response: %w", err)
	}

	return nil
}
