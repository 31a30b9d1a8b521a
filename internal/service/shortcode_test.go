package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortCodeGenerator_Generate(t *testing.T) {
	generator := NewShortCodeGenerator(6)

	code, err := generator.Generate()
	require.NoError(t, err)

	assert.Len(t, code, 6, "code length should be 6")
	for _, c := range code {
		assert.True(t, strings.ContainsRune("0123456789abcdef", c), "code contains invalid character: %c", c)
	}
}

func TestShortCodeGenerator_Generate_Lengths(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"even length", 6},
		{"odd length", 7},
		{"long code", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := NewShortCodeGenerator(tt.length)
			code, err := generator.Generate()
			require.NoError(t, err)
			assert.Len(t, code, tt.length)
		})
	}
}

func TestShortCodeGenerator_Generate_Random(t *testing.T) {
	generator := NewShortCodeGenerator(6)

	// 100 draws from a 2^24 space colliding into a single value would
	// mean the generator is not random at all.
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := generator.Generate()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1, "generator should produce varying codes")
}

func TestHashIP(t *testing.T) {
	hash1 := HashIP("203.0.113.7")
	hash2 := HashIP("203.0.113.7")

	// Deterministic and unsalted: the same visitor stays linkable.
	assert.Equal(t, hash1, hash2, "HashIP should be deterministic")
	assert.Len(t, hash1, 64, "HashIP should return a hex SHA-256 digest")

	hash3 := HashIP("203.0.113.8")
	assert.NotEqual(t, hash1, hash3, "different addresses should produce different hashes")

	assert.NotContains(t, hash1, "203.0.113.7", "raw address must never appear in the digest")
}
