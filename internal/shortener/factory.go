package shortener

import (
	"crypto/rand"
	"fmt"
)

// NewGenerator creates the generator described by config, backed by crypto/rand
func NewGenerator(config Config) (Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shortener config: %w", err)
	}
	return NewRandomGenerator(rand.Reader), nil
}
