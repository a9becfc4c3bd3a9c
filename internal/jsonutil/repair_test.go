package jsonutil_test

import (
	"testing"

	"github.com/aretw0/canopy/internal/jsonutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]any
	}{
		{"valid", `{"city": "Lisbon"}`, map[string]any{"city": "Lisbon"}},
		{"fenced", "```json\n{\"city\": \"Porto\"}\n```", map[string]any{"city": "Porto"}},
		{"trailing comma", `{"city": "Faro",}`, map[string]any{"city": "Faro"}},
		{"single quotes", `{'city': 'Braga'}`, map[string]any{"city": "Braga"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			_, err := jsonutil.Unmarshal(tt.content, &got)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshal_ReturnsDecodedText(t *testing.T) {
	var got map[string]any
	text, err := jsonutil.Unmarshal(`{"a": 1}`, &got)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, text)
}
