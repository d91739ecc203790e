package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON untouched",
			input:    `{"title": "Tide"}`,
			expected: `{"title": "Tide"}`,
		},
		{
			name:     "json fenced block",
			input:    "```json\n{\"title\": \"Tide\"}\n```",
			expected: `{"title": "Tide"}`,
		},
		{
			name:     "generic fenced block",
			input:    "```\n{\"title\": \"Tide\"}\n```",
			expected: `{"title": "Tide"}`,
		},
		{
			name:     "fenced block with language identifier",
			input:    "```javascript\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n{}\n```\n  ",
			expected: `{}`,
		},
		{
			name:     "object on fence line is kept",
			input:    "```{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
