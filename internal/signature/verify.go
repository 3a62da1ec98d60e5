// Package signature verifies HMAC-SHA256 webhook signatures in the "sha256=<hex>" format.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HeaderName is the request header carrying the signature.
const HeaderName = "X-Hub-Signature-256"

const prefix = "sha256="

// Sign returns the header value a sender would attach to body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided is the signature of body under secret.
// An absent or differently sized signature is a mismatch, not an error.
func Verify(body []byte, provided, secret string) bool {
	if provided == "" {
		return false
	}

	expected := []byte(Sign(body, secret))
	untrusted := []byte(provided)
	if len(expected) != len(untrusted) {
		return false
	}

	return subtle.ConstantTimeCompare(expected, untrusted) == 1
}
