package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

// Topics published by this adapter
const (
	TopicLogin        = "manetka.login"
	TopicWalletLinked = "manetka.wallet_linked"
)

// LoginEvent is published when a user authenticates
type LoginEvent struct {
	UserID  int64     `json:"user_id"`
	LoginAt time.Time `json:"login_at"`
}

// WalletLinkedEvent is published when a verified wallet is recorded
type WalletLinkedEvent struct {
	UserID   int64  `json:"user_id"`
	WalletID string `json:"wallet_id"`
	Address  string `json:"address"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, userID int64) error {
	return p.publish(TopicLogin, LoginEvent{
		UserID:  userID,
		LoginAt: time.Now(),
	})
}

// PublishWalletLinked publishes a wallet linked event
func (p *WatermillPublisher) PublishWalletLinked(ctx context.Context, userID int64, wallet core.LinkedWallet) error {
	return p.publish(TopicWalletLinked, WalletLinkedEvent{
		UserID:   userID,
		WalletID: wallet.WalletID,
		Address:  wallet.Address,
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
