package shortener

import (
	"fmt"
)

// Generator defines the interface for generating short codes
type Generator interface {
	// Generate returns a candidate short code of exactly length characters.
	// It does not consult any store; callers handle collisions.
	Generate(length int) (string, error)

	// Type returns the type identifier of the generator
	Type() string
}

// Config holds configuration for shortener generators
type Config struct {
	CodeLength  int `json:"code_length"`  // Characters per generated code
	MaxAttempts int `json:"max_attempts"` // Collision retries before giving up
}

// GeneratorType constants
const (
	TypeRandom = "random"
)

const (
	// MinCodeLength and MaxCodeLength bound the configurable code length
	MinCodeLength = 4
	MaxCodeLength = 32
)

// DefaultConfig returns the default configuration.
//
// Seven base62 characters give 62^7 ≈ 3.5e12 codes. A single draw collides
// with probability about N/62^7, so at N = 10 million links a draw collides
// roughly 3 times in a million and ten attempts are effectively never
// exhausted.
func DefaultConfig() Config {
	return Config{
		CodeLength:  7,
		MaxAttempts: 10,
	}
}

// Validate checks the configuration values
func (c Config) Validate() error {
	if c.CodeLength < MinCodeLength || c.CodeLength > MaxCodeLength {
		return fmt.Errorf("code length must be between %d and %d, got: %d", MinCodeLength, MaxCodeLength, c.CodeLength)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got: %d", c.MaxAttempts)
	}
	return nil
}
