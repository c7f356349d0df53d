package pkg

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateNewSessionID - generates a new unique connection session id.
func GenerateNewSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "error-generating-session-id"
	}

	return base64.RawURLEncoding.EncodeToString(b)
}
