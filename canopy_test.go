package canopy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/pkg/adapters/file"
	"github.com/aretw0/canopy/pkg/bridge"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const soloGraph = `{
  "1": {"class": "user", "data": {}, "outputs": {"output_1": {"connections": [{"node": "2"}]}}},
  "2": {"class": "agent", "data": {"uuid": "a", "name": "Solo"}, "outputs": {}}
}`

const toolGraph = `{
  "1": {"class": "user", "data": {}, "outputs": {"output_1": {"connections": [{"node": "2"}]}}},
  "2": {"class": "agent", "data": {"uuid": "a", "name": "Researcher"}, "outputs": {"output_1": {"connections": [{"node": "3"}]}}},
  "3": {"class": "mcp", "data": {"type": "sse", "url": "http://search"}, "outputs": {}}
}`

// echoModel answers every query with "echo: <query>". When gate is set, it blocks
// until gate is closed.
type echoModel struct {
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func (m *echoModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.started != nil {
		m.once.Do(func() { close(m.started) })
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return schema.AssistantMessage("echo: "+input[len(input)-1].Content, nil), nil
}

func (m *echoModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type models struct{ m model.BaseChatModel }

func (s models) Model(ctx context.Context, cfg *domain.LLMConfig) (model.BaseChatModel, error) {
	return s.m, nil
}

type trackedToolset struct {
	mu     sync.Mutex
	closed bool
}

func (t *trackedToolset) Tools() []*schema.ToolInfo { return nil }
func (t *trackedToolset) Call(ctx context.Context, name, args string) (string, error) {
	return "", nil
}
func (t *trackedToolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
func (t *trackedToolset) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type resolver struct {
	mu   sync.Mutex
	sets []*trackedToolset
}

func (r *resolver) Resolve(ctx context.Context, desc domain.CapabilityDescriptor) (domain.Toolset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := &trackedToolset{}
	r.sets = append(r.sets, ts)
	return ts, nil
}

func newStudio(m model.BaseChatModel, opts ...canopy.Option) *canopy.Studio {
	base := []canopy.Option{
		canopy.WithModels(models{m}),
		canopy.WithResolver(&resolver{}),
	}
	return canopy.New(append(base, opts...)...)
}

func TestStudio_NoWorkflow(t *testing.T) {
	s := newStudio(&echoModel{})
	defer s.Close()

	assert.False(t, s.Status().Loaded)
	assert.Nil(t, s.Workflow())

	_, err := s.Chat(context.Background(), "s1", "hi")
	assert.ErrorIs(t, err, domain.ErrNoWorkflow)
}

func TestStudio_CompileAndChat(t *testing.T) {
	s := newStudio(&echoModel{})
	defer s.Close()
	ctx := context.Background()

	wf, err := s.Compile(ctx, []byte(soloGraph))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), wf.Generation)

	st := s.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, "Solo", st.RootNode)
	assert.Equal(t, uint64(1), st.Generation)

	out, err := s.Chat(ctx, "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sessions, "chat creates the session on first use")

	history, err := s.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "echo: hello", history[1].Content)

	out, err = s.Chat(ctx, "s1", "again")
	require.NoError(t, err)
	assert.Equal(t, "echo: again", out)

	history, err = s.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestStudio_FailedCompileKeepsActiveWorkflow(t *testing.T) {
	s := newStudio(&echoModel{})
	defer s.Close()
	ctx := context.Background()

	_, err := s.Compile(ctx, []byte(soloGraph))
	require.NoError(t, err)

	_, err = s.Compile(ctx, []byte(`{"1": {"class": "agent", "data": {"name": "Orphan"}, "outputs": {}}}`))
	require.Error(t, err)
	assert.True(t, domain.IsStructural(err))

	st := s.Status()
	assert.Equal(t, "Solo", st.RootNode)
	assert.Equal(t, uint64(1), st.Generation)

	wf, err := s.Compile(ctx, []byte(soloGraph))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), wf.Generation)
}

func TestStudio_Stream(t *testing.T) {
	s := newStudio(&echoModel{})
	defer s.Close()
	ctx := context.Background()

	_, err := s.Compile(ctx, []byte(soloGraph))
	require.NoError(t, err)

	id, err := s.CreateSession(ctx)
	require.NoError(t, err)

	var frames []bridge.Frame
	res, err := s.Stream(ctx, id, "ping", func(ctx context.Context, f bridge.Frame) error {
		frames = append(frames, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", res.Response)
	assert.Equal(t, 2, res.Events)

	require.Len(t, frames, 3)
	assert.Equal(t, domain.EventWorkflowStart, frames[0].Event.Type)
	assert.Equal(t, domain.EventFinalResponse, frames[1].Event.Type)
	require.True(t, frames[2].IsTerminal())
	assert.Equal(t, "echo: ping", frames[2].Final.Response)
}

func TestStudio_StreamUnknownSession(t *testing.T) {
	s := newStudio(&echoModel{})
	defer s.Close()
	ctx := context.Background()

	_, err := s.Compile(ctx, []byte(soloGraph))
	require.NoError(t, err)

	var last bridge.Frame
	_, err = s.Stream(ctx, "ghost", "ping", func(ctx context.Context, f bridge.Frame) error {
		last = f
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.True(t, last.IsTerminal())
	assert.NotEmpty(t, last.Final.Error)
}

func TestStudio_RecompileRetiresAfterInFlight(t *testing.T) {
	m := &echoModel{gate: make(chan struct{}), started: make(chan struct{})}
	res := &resolver{}
	s := canopy.New(canopy.WithModels(models{m}), canopy.WithResolver(res))
	defer s.Close()
	ctx := context.Background()

	_, err := s.Compile(ctx, []byte(toolGraph))
	require.NoError(t, err)
	require.NoError(t, s.Sessions().Ensure(ctx, "s1"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Stream(ctx, "s1", "slow", func(context.Context, bridge.Frame) error { return nil })
		done <- err
	}()
	<-m.started

	_, err = s.Compile(ctx, []byte(toolGraph))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Status().Generation)

	res.mu.Lock()
	first, second := res.sets[0], res.sets[1]
	res.mu.Unlock()
	assert.False(t, first.isClosed(), "in-flight invocation keeps its generation alive")

	close(m.gate)
	require.NoError(t, <-done)
	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())

	require.NoError(t, s.Close())
	assert.True(t, second.isClosed())
	assert.False(t, s.Status().Loaded)
}

func TestStudio_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(soloGraph), 0o644))

	s := newStudio(&echoModel{})
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := file.NewLoader(path)
	_, err := s.LoadFrom(ctx, loader)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, loader) }()

	renamed := strings.ReplaceAll(soloGraph, `"Solo"`, `"Renamed"`)
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(renamed), 0o644)
		return s.Status().RootNode == "Renamed"
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestValidate_SkipsCapabilities(t *testing.T) {
	wf, err := canopy.Validate(context.Background(), []byte(toolGraph), nil)
	require.NoError(t, err)
	agent := wf.EntryPoint().(*domain.Agent)
	assert.True(t, agent.UsesTools)
	assert.Empty(t, agent.Toolsets)
}
