package common

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateStateToken returns a cryptographically random url-safe token used
// as the OAuth state parameter. 32 bytes of entropy, never reused.
func GenerateStateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
