package shortener

import (
	"fmt"
	"io"
	"strings"
)

const (
	// Base62 characters: 0-9, a-z, A-Z (case sensitive, URL safe)
	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Bytes at or above this value are rejected so every character is equally likely
	rejectAbove = 256 - (256 % len(base62Chars))
)

// RandomGenerator draws short codes uniformly from base62 using an entropy source
type RandomGenerator struct {
	entropy io.Reader
}

// NewRandomGenerator creates a generator reading randomness from entropy.
// Production code passes crypto/rand.Reader; tests can pass a fixed reader.
func NewRandomGenerator(entropy io.Reader) *RandomGenerator {
	return &RandomGenerator{entropy: entropy}
}

// Generate returns a random base62 code of the given length
func (g *RandomGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got: %d", length)
	}

	var sb strings.Builder
	sb.Grow(length)

	buf := make([]byte, length)
	for sb.Len() < length {
		if _, err := io.ReadFull(g.entropy, buf); err != nil {
			return "", fmt.Errorf("failed to read entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			sb.WriteByte(base62Chars[int(b)%len(base62Chars)])
			if sb.Len() == length {
				break
			}
		}
	}

	return sb.String(), nil
}

// Type returns the generator type
func (g *RandomGenerator) Type() string {
	return TypeRandom
}

// IsBase62 reports whether code only contains base62 characters
func IsBase62(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(base62Chars, r) {
			return false
		}
	}
	return true
}

// Ensure RandomGenerator implements Generator interface
var _ Generator = (*RandomGenerator)(nil)
