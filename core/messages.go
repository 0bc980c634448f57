package core

import "strings"

// Message type discriminators on the persistent connection
const (
	MessageTypeAuth       = "auth"
	MessageTypeGetProof   = "get_ton_proof"
	MessageTypeProof      = "ton_proof"
	MessageTypeErrorProof = "error_proof"
	MessageTypeVerify     = "verify"
)

// MessageTypeConnectionLost is dispatched to message handlers when the
// transport drops, so waits tied to the dead connection can end. It
// never travels on the wire.
const MessageTypeConnectionLost = "connection_lost"

// Statuses carried on server responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// CodeUnauthorized is the error envelope code the server uses for
// unauthorized access.
const CodeUnauthorized = 1

// AuthMessage authenticates the connection with the identity assertion
type AuthMessage struct {
	Type     string `json:"type"`
	InitData string `json:"initData"`
}

// NewAuthMessage builds an auth message for the given assertion
func NewAuthMessage(initData string) AuthMessage {
	return AuthMessage{Type: MessageTypeAuth, InitData: initData}
}

// GetProofMessage requests a fresh proof challenge
type GetProofMessage struct {
	Type string `json:"type"`
}

// NewGetProofMessage builds a challenge request
func NewGetProofMessage() GetProofMessage {
	return GetProofMessage{Type: MessageTypeGetProof}
}

// VerifyMessage submits a wallet proof for verification
type VerifyMessage struct {
	Type    string      `json:"type"`
	Account TonAccount  `json:"account"`
	Proof   WalletProof `json:"proof"`
}

// NewVerifyMessage builds a proof submission
func NewVerifyMessage(account TonAccount, proof WalletProof) VerifyMessage {
	return VerifyMessage{Type: MessageTypeVerify, Account: account, Proof: proof}
}

// ServerMessage is the union of everything the server sends: typed
// responses (auth, ton_proof, error_proof, verify) and the generic
// error envelope ({code, error}).
type ServerMessage struct {
	Type    string `json:"type,omitempty"`
	Status  string `json:"status,omitempty"`
	Payload string `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsUnauthorized reports whether the message is the unauthorized error
// envelope that must trigger re-authentication.
func (m ServerMessage) IsUnauthorized() bool {
	return m.Type == "" && m.Code == CodeUnauthorized &&
		strings.Contains(strings.ToLower(m.Error), "unauthorized")
}

// IsAuthAccepted reports whether the message acknowledges authentication
func (m ServerMessage) IsAuthAccepted() bool {
	return m.Type == MessageTypeAuth && m.Status == StatusOK
}
