package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "already normalized",
			input:    "games for 4 players",
			expected: "games for 4 players",
		},
		{
			name:     "mixed case",
			input:    "Games For 4 Players",
			expected: "games for 4 players",
		},
		{
			name:     "surrounding whitespace",
			input:    "  games for 4 players  ",
			expected: "games for 4 players",
		},
		{
			name:     "duplicate internal whitespace",
			input:    "games  for\t4   players",
			expected: "games for 4 players",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   \t  ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_EquivalentQueriesShareKey(t *testing.T) {
	variants := []string{
		"Games For 4 Players",
		"games for 4 players",
		" games  for 4 players ",
		"GAMES FOR 4 PLAYERS",
	}
	expected := cacheKey("dev", variants[0])
	for _, v := range variants {
		assert.Equal(t, expected, cacheKey("dev", v))
	}
}

func TestCacheKey_NamespacedByEnvironment(t *testing.T) {
	assert.NotEqual(t, cacheKey("dev", "catan"), cacheKey("prod", "catan"))
}
