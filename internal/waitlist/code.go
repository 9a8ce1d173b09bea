package waitlist

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const inviteCodeBytes = 32

// NewInviteCode returns an unguessable single-use token. 32 random bytes,
// URL-safe base64 without padding.
func NewInviteCode() (string, error) {
	b := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
