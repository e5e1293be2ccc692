package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// TokenSize256 is the byte length for opaque tokens carrying 256 bits of
// entropy (43 chars base64url). Used for refresh and invite tokens.
const TokenSize256 = 32

// GenerateToken creates a cryptographically random opaque token of the given
// byte length, encoded base64url without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the deterministic SHA-256 fingerprint of a token
// as base64url. Only fingerprints are ever persisted; the raw token value
// exists solely in the response that handed it to the caller.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
