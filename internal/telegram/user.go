package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/TheLegendOwner/manetka-miniapp/core"
)

// User extracts the user profile embedded in the assertion's "user"
// field. The caller must have verified the assertion first; this is a
// plain parse, not an authentication step.
func User(initData string) (*core.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse init data: %w", err)
	}

	raw := values.Get("user")
	if raw == "" {
		return nil, fmt.Errorf("init data has no user field: %w", core.ErrInvalidAssertion)
	}

	var user core.TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user field: %w", err)
	}

	return &user, nil
}

// AuthDate extracts the issuance timestamp of the assertion
func AuthDate(initData string) (time.Time, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse init data: %w", err)
	}

	raw := values.Get("auth_date")
	if raw == "" {
		return time.Time{}, fmt.Errorf("init data has no auth_date field: %w", core.ErrInvalidAssertion)
	}

	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid auth_date: %w", core.ErrInvalidAssertion)
	}

	return time.Unix(unix, 0), nil
}
