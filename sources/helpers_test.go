package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "empty string",
			text:     "",
			expected: "",
		},
		{
			name:     "single line",
			text:     "fix: bug",
			expected: "fix: bug",
		},
		{
			name:     "multi-line commit message",
			text:     "fix: bug\nmore detail\neven more",
			expected: "fix: bug",
		},
		{
			name:     "trailing whitespace",
			text:     "feat: thing  \nbody",
			expected: "feat: thing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, firstLine(tt.text))
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "rfc3339",
			raw:  "2024-01-01T00:00:00Z",
		},
		{
			name: "rfc3339 with offset",
			raw:  "2024-01-01T02:00:00+02:00",
		},
		{
			name: "rfc3339 with fraction",
			raw:  "2024-01-01T00:00:00.123Z",
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "garbage",
			raw:     "not a date",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseTime(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.UTC, parsed.Location())
		})
	}
}

func TestParseTimeNormalizesToUTC(t *testing.T) {
	parsed, err := parseTime("2024-01-01T02:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), parsed)
}

func TestOptional(t *testing.T) {
	assert.Nil(t, optional(""))
	assert.Nil(t, optional("   "))

	value := optional("https://example.com/avatar.png")
	require.NotNil(t, value)
	assert.Equal(t, "https://example.com/avatar.png", *value)
}
