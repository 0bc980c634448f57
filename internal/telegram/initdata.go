// Package telegram verifies the signed init data a Telegram Mini App
// receives from the host client on launch.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/TheLegendOwner/manetka-miniapp/core"
)

const (
	fieldHash      = "hash"
	fieldSignature = "signature"
)

// Verify checks that initData was signed by the bot identified by
// botToken. The algorithm follows the Telegram Web App contract: all
// fields except the hash (and its companion signature field) are
// percent-decoded, sorted byte-wise by key, joined as "key=value" lines,
// and authenticated with HMAC-SHA256 under SHA-256(botToken).
//
// Verify has no side effects and is safe for concurrent use; the
// credential is taken per call so a configuration reload is picked up
// immediately.
func Verify(initData, botToken string) core.VerificationResult {
	if botToken == "" {
		return core.InvalidResult(core.ReasonServerMisconfigured)
	}

	fields, receivedHash, result := parseFields(initData)
	if !result.Valid {
		return result
	}

	computed := computeHash(fields, botToken)

	received, err := hex.DecodeString(receivedHash)
	if err != nil || len(received) != len(computed) {
		// Never compare buffers of unequal length.
		return core.InvalidResult(core.ReasonInvalidHash)
	}

	if subtle.ConstantTimeCompare(computed, received) != 1 {
		return core.InvalidResult(core.ReasonInvalidHash)
	}

	return core.ValidResult()
}

// Sign builds a signed init data string from the given fields. It is
// the inverse of Verify and is intended for local tooling and tests;
// production assertions are always issued by Telegram.
func Sign(fields map[string]string, botToken string) string {
	digest := hex.EncodeToString(computeHash(fields, botToken))

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(fields[key]))
	}
	pairs = append(pairs, fieldHash+"="+digest)

	return strings.Join(pairs, "&")
}

// parseFields splits initData into authenticated key/value pairs and
// extracts the hash field. The signature field, when present, is
// excluded from the authenticated set alongside the hash.
func parseFields(initData string) (map[string]string, string, core.VerificationResult) {
	fields := make(map[string]string)
	hash := ""

	for _, pair := range strings.Split(initData, "&") {
		// Everything after the first "=" belongs to the value.
		rawKey, rawValue, _ := strings.Cut(pair, "=")

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, "", core.InvalidResult(core.ReasonMalformedField)
		}

		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, "", core.InvalidResult(core.ReasonMalformedField)
		}

		switch key {
		case fieldHash:
			hash = value
		case fieldSignature:
			// Authenticated by the hash, not part of the check string.
		default:
			fields[key] = value
		}
	}

	if hash == "" {
		return nil, "", core.InvalidResult(core.ReasonMissingHash)
	}

	return fields, hash, core.ValidResult()
}

// computeHash builds the canonical data-check string and returns its
// HMAC-SHA256 digest under the derived secret key.
func computeHash(fields map[string]string, botToken string) []byte {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+fields[key])
	}
	checkString := strings.Join(lines, "\n")

	secretKey := sha256.Sum256([]byte(botToken))

	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(checkString))
	return mac.Sum(nil)
}
