package service

import (
	"crypto/rand"
	"encoding/hex"
)

// ShortCodeGenerator produces random fixed-length lowercase hex short
// codes. Six hex characters give a 16^6 (2^24) code space: collisions
// are rare but expected at scale, so generation is always paired with
// the uniqueness-enforcing insert in URLService. Codes are independent
// of the target URL so a collision retry always proposes a fresh
// candidate.
type ShortCodeGenerator struct {
	codeLength int
}

// NewShortCodeGenerator creates a new short code generator
func NewShortCodeGenerator(codeLength int) *ShortCodeGenerator {
	return &ShortCodeGenerator{codeLength: codeLength}
}

// Generate returns a new random short code of the configured length.
func (g *ShortCodeGenerator) Generate() (string, error) {
	// hex.EncodedLen doubles the byte count, so over-allocate by one
	// byte for odd code lengths and truncate.
	buf := make([]byte, (g.codeLength+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:g.codeLength], nil
}
