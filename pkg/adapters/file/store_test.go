package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/adapters/file"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements ports.Store
var _ ports.Store = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunStoreContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1"))
	require.NoError(t, store.Append(ctx, "s1", "Agent B",
		domain.Message{Role: domain.RoleUser, Content: "one"},
		domain.Message{Role: domain.RoleUser, Content: "two"},
	))

	data, err := os.ReadFile(filepath.Join(dir, "s1", "Agent+B.jsonl"))
	require.NoError(t, err, "node names are escaped into file names")
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines, "one line per message")
}

func TestFileStore_ToleratesBlankLines(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "s1"))

	content := "{\"role\":\"user\",\"content\":\"a\",\"timestamp\":\"2025-01-01T00:00:00Z\"}\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1", "A.jsonl"), []byte(content), 0644))

	tree, err := store.Load(ctx, "s1", "A")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "a", tree[0].Content)
}

func TestFileStore_CorruptLine(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "s1"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1", "A.jsonl"), []byte("{not json\n"), 0644))

	_, err := store.Load(ctx, "s1", "A")
	assert.ErrorContains(t, err, "line 1")
}

func TestFileStore_InvalidSessionID(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Create(ctx, ""))
	assert.Error(t, store.Create(ctx, ".."))
}

func TestFileStore_ListIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".trash-1"), 0755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestLoader_LoadAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0644))

	loader := file.NewLoader(path)
	data, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"a":2}`), 0644))
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a reload signal")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "channel closes on cancel")
}

func TestLoader_Missing(t *testing.T) {
	_, err := file.NewLoader(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	assert.ErrorContains(t, err, "failed to read graph file")
}
