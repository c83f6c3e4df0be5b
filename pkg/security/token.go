package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const scanTokenBytes = 32

// TokenGenerator mints opaque single-use tokens for delivery scans.
type TokenGenerator interface {
	NewToken() (string, error)
}

// RandomTokenGenerator produces URL-safe random tokens.
type RandomTokenGenerator struct{}

// NewToken returns a 256-bit random token encoded for QR payloads.
func (RandomTokenGenerator) NewToken() (string, error) {
	buf := make([]byte, scanTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TokensEqual compares two tokens without leaking timing information.
func TokensEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
