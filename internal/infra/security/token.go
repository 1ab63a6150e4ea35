package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const defaultTokenBytes = 32

// RandomTokenGenerator mints opaque session tokens from the OS entropy
// source. Size is the number of random bytes before encoding; the encoded
// token is URL safe so it can travel in headers and cookies unescaped.
type RandomTokenGenerator struct {
	Size int
}

func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = defaultTokenBytes
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("token: read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
