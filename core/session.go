package core

// SessionState describes one logical connection attempt. A reconnect
// supersedes the state rather than mutating it in place.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateAuthPending
	StateAuthenticated
	StateAwaitingChallenge
	StateAwaitingProof
	StateVerifying
	StateLinked
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthPending:
		return "auth_pending"
	case StateAuthenticated:
		return "authenticated"
	case StateAwaitingChallenge:
		return "awaiting_challenge"
	case StateAwaitingProof:
		return "awaiting_proof"
	case StateVerifying:
		return "verifying"
	case StateLinked:
		return "linked"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionEvent is an observed input to the session state machine
type SessionEvent int

const (
	EventConnect SessionEvent = iota
	EventTransportOpen
	EventAuthAccepted
	EventUnauthorized
	EventChallengeRequested
	EventChallengeReceived
	EventProofSubmitted
	EventVerified
	EventServerError
	EventTransportClosed
)

func (e SessionEvent) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventTransportOpen:
		return "transport_open"
	case EventAuthAccepted:
		return "auth_accepted"
	case EventUnauthorized:
		return "unauthorized"
	case EventChallengeRequested:
		return "challenge_requested"
	case EventChallengeReceived:
		return "challenge_received"
	case EventProofSubmitted:
		return "proof_submitted"
	case EventVerified:
		return "verified"
	case EventServerError:
		return "server_error"
	case EventTransportClosed:
		return "transport_closed"
	default:
		return "unknown"
	}
}

// Transition applies an event to a session state and returns the next
// state. Illegal transitions return ErrInvalidTransition so that, for
// example, submitting a proof while disconnected can never happen
// silently.
func Transition(state SessionState, event SessionEvent) (SessionState, error) {
	// Transport loss and unauthorized responses are legal from any
	// connected state.
	switch event {
	case EventTransportClosed:
		return StateDisconnected, nil
	case EventUnauthorized:
		if state == StateDisconnected || state == StateConnecting {
			return state, ErrInvalidTransition
		}
		return StateAuthPending, nil
	}

	switch state {
	case StateDisconnected:
		if event == EventConnect {
			return StateConnecting, nil
		}
	case StateConnecting:
		if event == EventTransportOpen {
			return StateAuthPending, nil
		}
	case StateAuthPending:
		if event == EventAuthAccepted {
			return StateAuthenticated, nil
		}
	case StateAuthenticated:
		switch event {
		case EventChallengeRequested:
			return StateAwaitingChallenge, nil
		case EventProofSubmitted:
			// A pending proof submission redelivered after re-auth.
			return StateVerifying, nil
		case EventServerError:
			return StateFailed, nil
		}
	case StateAwaitingChallenge:
		switch event {
		case EventChallengeReceived:
			return StateAwaitingProof, nil
		case EventServerError:
			return StateFailed, nil
		}
	case StateAwaitingProof:
		switch event {
		case EventProofSubmitted:
			return StateVerifying, nil
		case EventChallengeRequested:
			// Stale challenge discarded, a fresh one is in flight.
			return StateAwaitingChallenge, nil
		case EventServerError:
			return StateFailed, nil
		}
	case StateVerifying:
		switch event {
		case EventVerified:
			return StateLinked, nil
		case EventChallengeRequested:
			return StateAwaitingChallenge, nil
		case EventProofSubmitted:
			// The same proof resubmitted after a failed write.
			return StateVerifying, nil
		case EventServerError:
			return StateFailed, nil
		}
	}

	return state, ErrInvalidTransition
}
