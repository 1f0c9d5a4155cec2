package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// DefaultSecretBytes gives 256-bit HS256 signing keys
	DefaultSecretBytes = 32
	// MinSecretLength is the shortest signing secret accepted in production
	MinSecretLength = 32
)

// TokenSecrets holds the two signing keys of the engine. Access tokens and
// boarding tokens use separate keys so one can be rotated without the other.
type TokenSecrets struct {
	Access   string
	Boarding string
}

// NewTokenSecrets draws both secrets from crypto/rand, size bytes each,
// hex encoded
func NewTokenSecrets(size int) (TokenSecrets, error) {
	if size*2 < MinSecretLength {
		return TokenSecrets{}, fmt.Errorf("secret size %d bytes is below the %d character minimum", size, MinSecretLength)
	}

	raw := make([]byte, 2*size)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return TokenSecrets{}, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return TokenSecrets{
		Access:   hex.EncodeToString(raw[:size]),
		Boarding: hex.EncodeToString(raw[size:]),
	}, nil
}

// WriteEnv writes the secrets as .env assignments
func (s TokenSecrets) WriteEnv(w io.Writer) error {
	_, err := fmt.Fprintf(w, "JWT_SECRET=%s\nBOARDING_TOKEN_SECRET=%s\n", s.Access, s.Boarding)
	return err
}

// WeakSecret reports whether a configured signing secret is too short
func WeakSecret(secret string) bool {
	return len(secret) < MinSecretLength
}
