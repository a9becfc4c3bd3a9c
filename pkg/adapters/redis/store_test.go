package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/canopy/pkg/adapters/redis"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	store := redis.NewFromClient(client)
	ports.RunStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	// Create store with 1s TTL
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	require.NoError(t, store.Create(ctx, sessionID))
	require.NoError(t, store.Append(ctx, sessionID, "AgentB", domain.Message{Role: domain.RoleUser, Content: "hi"}))

	sessions, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID, "AgentB")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.False(t, mr.Exists("canopy:session:h:session-ttl:AgentB"), "history expires with the session")

	// The index is pruned against the wall clock, so real time has to pass.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	require.NoError(t, store.Create(ctx, sessionID))
	require.NoError(t, store.Append(ctx, sessionID, "Writer", domain.Message{Role: domain.RoleUser, Content: "draft"}))

	assert.True(t, mr.Exists("custom:app:s:my-session"), "Expected session marker with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:h:my-session:Writer"), "Expected node history with custom prefix to exist")

	members, err := mr.Members("custom:app:n:my-session")
	require.NoError(t, err)
	assert.Equal(t, []string{"Writer"}, members)

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_DeleteRemovesHistory(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1"))
	require.NoError(t, store.Append(ctx, "s1", "A", domain.Message{Content: "a"}))
	require.NoError(t, store.Append(ctx, "s1", "B", domain.Message{Content: "b"}))

	require.NoError(t, store.Delete(ctx, "s1"))
	for _, key := range []string{"canopy:session:s:s1", "canopy:session:n:s1", "canopy:session:h:s1:A", "canopy:session:h:s1:B"} {
		assert.False(t, mr.Exists(key), key)
	}
}

func TestRedisStore_IDsCannotReachOtherKeys(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "a"))
	require.NoError(t, store.Append(ctx, "a", "Agent", domain.Message{Role: domain.RoleUser, Content: "hi"}))

	for _, id := range []string{"index", "a:nodes", "n:a", "s:a", "a:Agent", `a\`} {
		ok, err := store.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
		assert.ErrorIs(t, store.Delete(ctx, id), domain.ErrSessionNotFound, id)
	}

	nodes, err := store.Nodes(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Agent"}, nodes)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	// IDs with separators are ordinary sessions of their own.
	require.NoError(t, store.Create(ctx, "a:nodes"))
	require.NoError(t, store.Append(ctx, "a:nodes", "Agent", domain.Message{Content: "other"}))
	tree, err := store.Load(ctx, "a", "Agent")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "hi", tree[0].Content)
	require.NoError(t, store.Delete(ctx, "a:nodes"))

	tree, err = store.Load(ctx, "a", "Agent")
	require.NoError(t, err)
	assert.Len(t, tree, 1)
}
