package textutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bankdesk/internal/pkg/rag/textutil"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "bare object",
			input:    `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "object wrapped in prose",
			input:    `Sure! Here is the result: {"a": 1} Hope that helps.`,
			expected: `{"a": 1}`,
		},
		{
			name:     "object in markdown fence",
			input:    "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "stray closing brace in trailing prose",
			input:    `{"a": 1} and that covers the edge case} mentioned above.`,
			expected: `{"a": 1}`,
		},
		{
			name:     "nested object",
			input:    `Result: {"outer": {"inner": 2}} done.`,
			expected: `{"outer": {"inner": 2}}`,
		},
		{
			name:     "braces inside string values",
			input:    `{"answer": "use {placeholders} like this"} trailing`,
			expected: `{"answer": "use {placeholders} like this"}`,
		},
		{
			name:     "escaped quote inside string",
			input:    `{"answer": "she said \"hi\" twice"}`,
			expected: `{"answer": "she said \"hi\" twice"}`,
		},
		{
			name:    "no object",
			input:   "no json here",
			wantErr: true,
		},
		{
			name:    "unterminated object",
			input:   `{"a": 1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := textutil.ExtractJSONObject(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		Answer string `json:"answer"`
	}
	err := textutil.DecodeJSONObject(`The model says: {"answer": "yes"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "yes", out.Answer)
}

func TestDecodeJSONObjectInvalid(t *testing.T) {
	var out map[string]any
	assert.Error(t, textutil.DecodeJSONObject("plain text", &out))
	assert.Error(t, textutil.DecodeJSONObject(`{"broken": `, &out))
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"equal to limit", "hello", 5, "hello"},
		{"over the limit", "hello world", 5, "hello"},
		{"multibyte runes", "héllo wörld", 5, "héllo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textutil.TruncateString(tt.input, tt.maxLen))
		})
	}
}

func TestNormalizeQuestion(t *testing.T) {
	assert.Equal(t, "what is the fee?",
		textutil.NormalizeQuestion("  What   IS the\tfee? "))
	assert.Equal(t, "", textutil.NormalizeQuestion("   "))
}

func TestContainsString(t *testing.T) {
	slice := []string{"accounts.md", "fees.md"}

	assert.True(t, textutil.ContainsString(slice, "fees.md"))
	assert.False(t, textutil.ContainsString(slice, "cards.md"))
	assert.False(t, textutil.ContainsString(nil, "fees.md"))
}
