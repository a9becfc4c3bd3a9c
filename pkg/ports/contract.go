package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a Store implementation
// adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Create is idempotent", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, sessionID))
		require.NoError(t, store.Create(ctx, sessionID))

		ok, err := store.Exists(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Append and Load", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, sessionID))

		turn := domain.Message{
			Role:      domain.RoleUser,
			Content:   "hi",
			Timestamp: ts,
			Responses: []domain.Message{
				{Role: domain.RoleAssistant, Content: "hello", Timestamp: ts.Add(time.Second), SenderName: "AgentB"},
			},
		}
		require.NoError(t, store.Append(ctx, sessionID, "AgentB", turn))
		require.NoError(t, store.Append(ctx, sessionID, "AgentB",
			domain.Message{Role: domain.RoleUser, Content: "again", Timestamp: ts.Add(2 * time.Second)}))

		tree, err := store.Load(ctx, sessionID, "AgentB")
		require.NoError(t, err)
		require.Len(t, tree, 2, "messages load in append order")
		assert.Equal(t, "hi", tree[0].Content)
		assert.True(t, ts.Equal(tree[0].Timestamp))
		require.Len(t, tree[0].Responses, 1, "responses are preserved")
		assert.Equal(t, "hello", tree[0].Responses[0].Content)
		assert.Equal(t, "AgentB", tree[0].Responses[0].SenderName)
		assert.Equal(t, "again", tree[1].Content)

		nodes, err := store.Nodes(ctx, sessionID)
		require.NoError(t, err)
		assert.Contains(t, nodes, "AgentB")
	})

	t.Run("Load Empty Node", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, sessionID))
		tree, err := store.Load(ctx, sessionID, "nobody")
		require.NoError(t, err)
		assert.Empty(t, tree)
	})

	t.Run("Node names are opaque", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, sessionID))
		name := "Web Agent/../v2:beta"
		require.NoError(t, store.Append(ctx, sessionID, name, domain.Message{Role: domain.RoleUser, Content: "x", Timestamp: ts}))

		tree, err := store.Load(ctx, sessionID, name)
		require.NoError(t, err)
		require.Len(t, tree, 1)

		nodes, err := store.Nodes(ctx, sessionID)
		require.NoError(t, err)
		assert.Contains(t, nodes, name)
	})

	t.Run("Missing Session", func(t *testing.T) {
		missing := "non-existent-" + sessionID

		ok, err := store.Exists(ctx, missing)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.Load(ctx, missing, "AgentB")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		err = store.Append(ctx, missing, "AgentB", domain.Message{Role: domain.RoleUser, Content: "x"})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		err = store.Delete(ctx, missing)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Create(ctx, id1))
		require.NoError(t, store.Create(ctx, id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, sessionID))
		require.NoError(t, store.Append(ctx, sessionID, "AgentB", domain.Message{Role: domain.RoleUser, Content: "bye", Timestamp: ts}))

		require.NoError(t, store.Delete(ctx, sessionID))

		ok, err := store.Exists(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.Load(ctx, sessionID, "AgentB")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, sessions, sessionID)
	})
}
