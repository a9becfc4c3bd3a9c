package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, sec, 0, time.UTC)
}

func TestFlatten_DepthFirst(t *testing.T) {
	tree := domain.MessageTree{
		{Role: "user", Content: "q1", Timestamp: at(1), Responses: []domain.Message{
			{Role: "assistant", Content: "delegating", Timestamp: at(2), Responses: []domain.Message{
				{Role: "tool", Content: "inner", Timestamp: at(3)},
			}},
			{Role: "assistant", Content: "a1", Timestamp: at(4)},
		}},
		{Role: "user", Content: "q2", Timestamp: at(5)},
	}

	flat := domain.Flatten(tree)

	var contents []string
	for _, m := range flat {
		contents = append(contents, m.Content)
		assert.Nil(t, m.Responses)
	}
	assert.Equal(t, []string{"q1", "delegating", "inner", "a1", "q2"}, contents)

	// The source tree keeps its structure.
	require.Len(t, tree[0].Responses, 2)
	require.Len(t, tree[0].Responses[0].Responses, 1)
}

func TestChronological_Idempotent(t *testing.T) {
	tree := domain.MessageTree{
		{Role: "user", Content: "late", Timestamp: at(9), Responses: []domain.Message{
			{Role: "assistant", Content: "early", Timestamp: at(1)},
			{Role: "assistant", Content: "tie-a", Timestamp: at(5)},
		}},
		{Role: "user", Content: "tie-b", Timestamp: at(5)},
	}

	once := domain.Chronological(tree)
	twice := domain.Chronological(domain.MessageTree(once))

	assert.Equal(t, once, twice)

	var contents []string
	for _, m := range once {
		contents = append(contents, m.Content)
	}
	// Ties keep flatten order.
	assert.Equal(t, []string{"early", "tie-a", "tie-b", "late"}, contents)
}

func TestMessage_ResponsesOmittedWhenEmpty(t *testing.T) {
	flat := domain.Flatten(domain.MessageTree{
		{Role: "user", Content: "hi", Timestamp: at(0), Responses: []domain.Message{{Role: "assistant", Content: "yo", Timestamp: at(1)}}},
	})

	data, err := json.Marshal(flat[0])
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "responses")
	assert.Equal(t, "hi", raw["content"])
	assert.Equal(t, "user", raw["role"])
}
