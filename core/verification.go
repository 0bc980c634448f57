package core

// Reason codes for a failed identity assertion verification.
const (
	ReasonMissingHash         = "MissingHash"
	ReasonMalformedField      = "MalformedField"
	ReasonInvalidHash         = "InvalidHash"
	ReasonExpired             = "Expired"
	ReasonServerMisconfigured = "ServerMisconfigured"
)

// VerificationResult is the outcome of verifying an identity assertion
type VerificationResult struct {
	Valid  bool
	Reason string
}

// ValidResult returns a successful verification result
func ValidResult() VerificationResult {
	return VerificationResult{Valid: true}
}

// Invalid returns a failed verification result with the given reason
func InvalidResult(reason string) VerificationResult {
	return VerificationResult{Valid: false, Reason: reason}
}

// TelegramUser is the profile embedded in the assertion's "user" field
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}
