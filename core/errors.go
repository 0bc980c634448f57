package core

import "errors"

var (
	// ErrNotConnected is returned when a message is sent on a channel
	// with no live connection. Sends are never queued silently.
	ErrNotConnected = errors.New("channel is not connected")

	// ErrInvalidTransition is returned for an illegal session state change
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrLinkInProgress is returned when a linking handshake is already in flight
	ErrLinkInProgress = errors.New("a linking handshake is already in progress")

	// ErrChallengeExpired is returned when a challenge is past its freshness window
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrSignerCancelled is returned when the user declines the wallet signature
	ErrSignerCancelled = errors.New("wallet signer cancelled")

	// ErrServerMisconfigured is returned when the bot credential is absent
	ErrServerMisconfigured = errors.New("bot credential is not configured")

	// ErrAssertionUsed is returned when an identity assertion is replayed
	ErrAssertionUsed = errors.New("identity assertion already used")

	// ErrAssertionExpired is returned when an identity assertion is past its max age
	ErrAssertionExpired = errors.New("identity assertion expired")

	// ErrInvalidAssertion is returned when an identity assertion fails verification
	ErrInvalidAssertion = errors.New("invalid identity assertion")

	// ErrInvalidToken is returned when a session token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a session token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrChannelClosed is returned when the channel was explicitly closed
	ErrChannelClosed = errors.New("channel is closed")
)
