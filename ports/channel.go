package ports

import (
	"context"

	"github.com/TheLegendOwner/manetka-miniapp/core"
)

// MessageHandler receives every server message delivered on a channel
type MessageHandler func(msg core.ServerMessage)

// Channel owns one persistent connection to the backend, the
// authentication handshake over it, and message dispatch. Opening a new
// connection tears the previous one down first; sends against a
// disconnected channel fail fast with core.ErrNotConnected.
type Channel interface {
	// Connect opens the connection and authenticates. Any previous
	// connection is fully torn down before the new one is dialed.
	Connect(ctx context.Context) error

	// Send writes a message on the live connection
	Send(msg any) error

	// OnMessage registers a handler for incoming server messages
	OnMessage(handler MessageHandler)

	// State returns the current session state
	State() core.SessionState

	// Close tears the connection down and stops reconnecting
	Close() error
}
