package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomToken creates a random base64url string from length bytes of
// cryptographically secure randomness. 32 bytes gives 256 bits of entropy.
func RandomToken(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
