package core

import "time"

// Default reconnect timing. The delay is constant by default; a custom
// policy may grow it but never shrink it across attempts.
const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultReconnectMaxDelay = time.Minute
)

// ReconnectPolicy decides how long to wait before reopening a dropped
// connection. The policy is consulted exactly once per disconnect and
// the attempt counter resets to zero on a successful reconnect.
type ReconnectPolicy struct {
	Delay    time.Duration // Base delay for the first attempt
	Step     time.Duration // Added per subsequent attempt, may be zero
	MaxDelay time.Duration // Upper bound on the returned delay
}

// DefaultReconnectPolicy returns the constant 5s policy
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Delay:    DefaultReconnectDelay,
		MaxDelay: DefaultReconnectMaxDelay,
	}
}

// NextDelay returns the wait before reconnect attempt number attempt
// (zero-based). The result is monotonically non-decreasing in attempt
// and capped at MaxDelay.
func (p ReconnectPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := p.Delay + time.Duration(attempt)*p.Step
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	return delay
}
