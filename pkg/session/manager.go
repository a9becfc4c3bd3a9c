package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.Store

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given history store.
func NewManager(store ports.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

func nodeKey(sessionID, node string) string {
	return sessionID + "/" + node
}

// Create allocates a new session with a fresh UUIDv4.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := m.store.Create(ctx, id); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	m.logger.Debug("session created", "session_id", id)
	return id, nil
}

// Ensure creates the session under the given id if it does not exist yet.
func (m *Manager) Ensure(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Create(ctx, sessionID)
	})
}

// Exists reports whether the session is known to the store.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.Exists(ctx, sessionID)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Delete removes the session and all of its history.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// LoadHistory returns one node's stored history.
func (m *Manager) LoadHistory(ctx context.Context, sessionID, node string) (domain.MessageTree, error) {
	return m.store.Load(ctx, sessionID, node)
}

// Record appends turns to a node's history.
// Appends to the same (session, node) pair are serialized.
func (m *Manager) Record(ctx context.Context, sessionID, node string, msgs ...domain.Message) error {
	return m.WithLock(ctx, nodeKey(sessionID, node), func(ctx context.Context) error {
		return m.store.Append(ctx, sessionID, node, msgs...)
	})
}

// Rehydrate loads the stored history of every persisting node of wf into a new Conversation.
// Nodes are visited in pre-order and a node shared by two supervisors is loaded once.
// Turns recorded on the returned Conversation are persisted through this Manager.
func (m *Manager) Rehydrate(ctx context.Context, wf *domain.Workflow, sessionID string) (*Conversation, error) {
	if wf == nil {
		return nil, domain.ErrNoWorkflow
	}
	ok, err := m.store.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	conv := NewConversation(sessionID, m.recorder(sessionID))
	err = wf.Walk(func(n domain.WorkerNode) error {
		if !n.PersistsHistory() {
			return nil
		}
		tree, err := m.store.Load(ctx, sessionID, n.Name())
		if err != nil {
			return fmt.Errorf("failed to load history of %q: %w", n.Name(), err)
		}
		conv.seed(n.Name(), tree)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("session rehydrated", "session_id", sessionID, "nodes", conv.Len())
	return conv, nil
}

// History merges every node's history of a session into one flat, timestamp-ordered list.
func (m *Manager) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	nodes, err := m.store.Nodes(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := []domain.Message{}
	for _, node := range nodes {
		tree, err := m.store.Load(ctx, sessionID, node)
		if err != nil {
			return nil, fmt.Errorf("failed to load history of %q: %w", node, err)
		}
		out = append(out, domain.Flatten(tree)...)
	}
	domain.SortByTimestamp(out)
	return out, nil
}

// Store returns the underlying history store.
func (m *Manager) Store() ports.Store {
	return m.store
}

func (m *Manager) recorder(sessionID string) RecordFunc {
	return func(ctx context.Context, node string, msgs ...domain.Message) error {
		return m.Record(ctx, sessionID, node, msgs...)
	}
}

// WithLock executes a function while holding the lock for the key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
