// Package signature authenticates Miniflux webhook payloads.
//
// Miniflux signs every webhook body with HMAC-SHA256 keyed by the shared webhook
// secret and sends the lowercase hex digest in the X-Miniflux-Signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Header is the request header carrying the body signature.
const Header = "X-Miniflux-Signature"

// ErrEmptySecret is returned when no usable key is configured.
var ErrEmptySecret = errors.New("webhook secret is empty")

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret.
func Sign(secret, body []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether received matches the signature of body.
// A mismatch is a negative result, not an error.
func Verify(secret, body []byte, received string) (bool, error) {
	expected, err := Sign(secret, body)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(received)), nil
}
