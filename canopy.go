package canopy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/canopy/internal/compiler"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/bridge"
	"github.com/aretw0/canopy/pkg/capability"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/session"
)

// Studio is the high-level entry point for the Canopy library.
// It owns the currently compiled workflow and runs chat invocations against it.
type Studio struct {
	compiler *compiler.Compiler
	sessions *session.Manager
	executor *agent.Executor
	bridge   *bridge.Bridge
	metrics  *observability.Metrics
	logger   *slog.Logger

	llm      *domain.LLMConfig
	resolver compiler.Resolver
	models   agent.ModelSource
	store    ports.Store
	locker   ports.DistributedLocker

	workers       int
	buffer        int
	maxToolRounds int
	capTimeout    time.Duration

	current atomic.Pointer[generation]
	counter atomic.Uint64
	mu      sync.Mutex
}

// Option defines a functional option for configuring the Studio.
type Option func(*Studio)

// WithLogger sets a custom structured logger for the studio and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Studio) {
		s.logger = logger
	}
}

// WithMetrics records compiles, invocations and events.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Studio) {
		s.metrics = m
	}
}

// WithLLM sets the model configuration shared by every compiled node.
func WithLLM(cfg *domain.LLMConfig) Option {
	return func(s *Studio) {
		s.llm = cfg
	}
}

// WithResolver replaces the default MCP capability registry.
func WithResolver(r compiler.Resolver) Option {
	return func(s *Studio) {
		s.resolver = r
	}
}

// WithModels replaces the default eino provider set.
func WithModels(m agent.ModelSource) Option {
	return func(s *Studio) {
		s.models = m
	}
}

// WithStore sets the history backend (default: in-memory).
func WithStore(store ports.Store) Option {
	return func(s *Studio) {
		s.store = store
	}
}

// WithLocker serializes history appends across replicas sharing a backend.
func WithLocker(l ports.DistributedLocker) Option {
	return func(s *Studio) {
		s.locker = l
	}
}

// WithWorkers bounds how many invocations compute at once.
func WithWorkers(n int) Option {
	return func(s *Studio) {
		s.workers = n
	}
}

// WithEventBuffer sets how far a worker may run ahead of event delivery.
func WithEventBuffer(n int) Option {
	return func(s *Studio) {
		s.buffer = n
	}
}

// WithMaxToolRounds bounds the tool loop of a single turn.
func WithMaxToolRounds(n int) Option {
	return func(s *Studio) {
		s.maxToolRounds = n
	}
}

// WithCapabilityTimeout bounds the connection to each capability server of the default registry.
func WithCapabilityTimeout(d time.Duration) Option {
	return func(s *Studio) {
		s.capTimeout = d
	}
}

// New initializes a Studio with no workflow loaded.
func New(opts ...Option) *Studio {
	s := &Studio{
		workers:       bridge.DefaultWorkers,
		buffer:        bridge.DefaultBuffer,
		maxToolRounds: agent.DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.llm == nil {
		s.llm = &domain.LLMConfig{Provider: agent.DefaultProvider}
	}
	if s.resolver == nil {
		regOpts := []capability.Option{
			capability.WithLogger(s.logger),
			capability.WithClientInfo("canopy", Version),
		}
		if s.capTimeout > 0 {
			regOpts = append(regOpts, capability.WithTimeout(s.capTimeout))
		}
		s.resolver = capability.NewRegistry(regOpts...)
	}
	if s.models == nil {
		s.models = agent.NewProviders()
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}

	s.compiler = compiler.New(
		compiler.WithResolver(s.resolver),
		compiler.WithLogger(s.logger),
		compiler.WithMetrics(s.metrics),
	)

	sessOpts := []session.Option{session.WithLogger(s.logger)}
	if s.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(s.locker))
	}
	s.sessions = session.NewManager(s.store, sessOpts...)

	s.executor = agent.NewExecutor(s.models,
		agent.WithLogger(s.logger),
		agent.WithMaxToolRounds(s.maxToolRounds),
	)
	s.bridge = bridge.New(
		bridge.WithWorkers(s.workers),
		bridge.WithBuffer(s.buffer),
		bridge.WithLogger(s.logger),
		bridge.WithMetrics(s.metrics),
	)
	return s
}

// Validate parses and compiles data without touching capability servers or
// replacing the active workflow.
func Validate(ctx context.Context, data []byte, llm *domain.LLMConfig) (*domain.Workflow, error) {
	if llm == nil {
		llm = &domain.LLMConfig{Provider: agent.DefaultProvider}
	}
	return compiler.New().CompileBytes(ctx, data, llm)
}

// Compile builds a workflow from a graph export and makes it the active one.
// On failure the previous workflow stays active.
func (s *Studio) Compile(ctx context.Context, data []byte) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, err := s.compiler.CompileBytes(ctx, data, s.llm)
	if err != nil {
		return nil, err
	}
	wf.Generation = s.counter.Add(1)

	old := s.current.Swap(newGeneration(wf, s.retired))
	if old != nil {
		old.release()
	}
	s.logger.Info("workflow published", "generation", wf.Generation, "entry_point", wf.EntryPoint().Name())
	return wf, nil
}

func (s *Studio) retired(wf *domain.Workflow, err error) {
	if err != nil {
		s.logger.Warn("failed to close toolsets", "generation", wf.Generation, "err", err)
		return
	}
	s.logger.Debug("workflow retired", "generation", wf.Generation)
}

// LoadFrom compiles the graph returned by loader.
func (s *Studio) LoadFrom(ctx context.Context, loader ports.GraphLoader) (*domain.Workflow, error) {
	data, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	return s.Compile(ctx, data)
}

// Watch recompiles whenever a Watchable loader reports a change, until ctx is done.
// A failed recompile is logged and the active workflow is kept.
func (s *Studio) Watch(ctx context.Context, loader ports.GraphLoader) error {
	w, ok := loader.(ports.Watchable)
	if !ok {
		return fmt.Errorf("loader %T does not support watching", loader)
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for range changes {
		if _, err := s.LoadFrom(ctx, loader); err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Warn("recompile failed, keeping active workflow", "err", err)
		}
	}
	return nil
}

// Workflow returns the active workflow, or nil before the first successful compile.
// The result is for read-only inspection; use Chat or Stream to run it.
func (s *Studio) Workflow() *domain.Workflow {
	g := s.current.Load()
	if g == nil {
		return nil
	}
	return g.wf
}

// Status describes the active workflow.
type Status struct {
	Loaded     bool
	RootNode   string
	Generation uint64
	CompiledAt time.Time
}

// Status reports whether a workflow is loaded and which generation is active.
func (s *Studio) Status() Status {
	wf := s.Workflow()
	if wf == nil {
		return Status{}
	}
	return Status{
		Loaded:     true,
		RootNode:   wf.EntryPoint().Name(),
		Generation: wf.Generation,
		CompiledAt: wf.CompiledAt,
	}
}

func (s *Studio) acquire() (*generation, error) {
	for {
		g := s.current.Load()
		if g == nil {
			return nil, domain.ErrNoWorkflow
		}
		if g.tryAcquire() {
			return g, nil
		}
	}
}

// Stream runs query against the active workflow in an existing session, delivering
// every intermediate event and then a terminal frame to sink.
// The invocation keeps the generation it started with even if a recompile happens meanwhile.
func (s *Studio) Stream(ctx context.Context, sessionID, query string, sink bridge.Sink) (bridge.Result, error) {
	g, err := s.acquire()
	if err != nil {
		return bridge.Result{}, err
	}
	defer g.release()

	return s.bridge.Invoke(ctx, func(ctx context.Context, emit domain.Emitter) (string, error) {
		conv, err := s.sessions.Rehydrate(ctx, g.wf, sessionID)
		if err != nil {
			return "", err
		}
		return s.executor.Run(ctx, conv, g.wf.EntryPoint(), query, emit)
	}, sink)
}

// Chat runs query and returns only the final response. The session is created on first use.
func (s *Studio) Chat(ctx context.Context, sessionID, query string) (string, error) {
	if s.current.Load() == nil {
		return "", domain.ErrNoWorkflow
	}
	if err := s.sessions.Ensure(ctx, sessionID); err != nil {
		return "", err
	}
	res, err := s.Stream(ctx, sessionID, query, discard)
	if err != nil {
		return "", err
	}
	return res.Response, nil
}

func discard(context.Context, bridge.Frame) error { return nil }

// Sessions exposes the session manager.
func (s *Studio) Sessions() *session.Manager { return s.sessions }

// Metrics returns the configured metrics, which may be nil.
func (s *Studio) Metrics() *observability.Metrics { return s.metrics }

// CreateSession allocates a new session and returns its ID.
func (s *Studio) CreateSession(ctx context.Context) (string, error) {
	return s.sessions.Create(ctx)
}

// ListSessions returns every known session ID.
func (s *Studio) ListSessions(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

// DeleteSession removes a session and its history.
func (s *Studio) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// SessionExists reports whether a session exists.
func (s *Studio) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return s.sessions.Exists(ctx, sessionID)
}

// History returns every message of a session, flattened and sorted by timestamp.
func (s *Studio) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.sessions.History(ctx, sessionID)
}

// Close retires the active workflow. Invocations already running finish on it;
// its toolsets close once they are done.
func (s *Studio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old := s.current.Swap(nil); old != nil {
		old.release()
	}
	return nil
}

// SessionNodes lists the nodes with stored history in a session.
func (s *Studio) SessionNodes(ctx context.Context, sessionID string) ([]string, error) {
	ok, err := s.sessions.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.store.Nodes(ctx, sessionID)
}
