package core

import "time"

// DefaultChallengeTTL is the freshness window of a proof challenge.
// The backend rotates payloads on the same schedule.
const DefaultChallengeTTL = 20 * time.Minute

// Challenge is a single-use payload the wallet must sign to prove
// address ownership. It is issued by the backend and held only for the
// duration of one linking handshake.
type Challenge struct {
	Payload  string        // Opaque payload delivered by the backend
	IssuedAt time.Time     // When the challenge request was sent
	TTL      time.Duration // Freshness window
}

// Expired reports whether the challenge is past its freshness window at t
func (c Challenge) Expired(t time.Time) bool {
	return t.After(c.IssuedAt.Add(c.TTL))
}

// TonAccount describes the wallet account a proof belongs to
type TonAccount struct {
	Address         string `json:"address"`
	Network         string `json:"network,omitempty"`
	PublicKey       string `json:"public_key"`
	WalletStateInit string `json:"wallet_state_init"`
}

// WalletProof is the signature a wallet produced over a Challenge.
// It is bound 1:1 to the challenge it answers and is never reused.
type WalletProof struct {
	Timestamp int64  `json:"timestamp"`
	Domain    string `json:"domain"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

// LinkedWallet is a wallet address verified against a platform identity
type LinkedWallet struct {
	WalletID    string    `json:"wallet_id"`
	Address     string    `json:"address"`
	Main        bool      `json:"main"`
	ConnectedAt time.Time `json:"connected_at"`
}

// LinkStatus is the terminal outcome of one linking attempt
type LinkStatus int

const (
	StatusLinked LinkStatus = iota
	StatusRejected
	StatusCancelled
	StatusTimedOut
)

func (s LinkStatus) String() string {
	switch s {
	case StatusLinked:
		return "linked"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// LinkResult is the terminal result of a linking handshake
type LinkResult struct {
	Status  LinkStatus
	Address string // Set when Status is StatusLinked
	Reason  string // Set when Status is StatusRejected
}
