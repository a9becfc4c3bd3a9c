package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
)

// Store implements ports.Store in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]map[string]domain.MessageTree
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]domain.MessageTree),
	}
}

// Create registers the session if it is not known yet.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[sessionID]; !ok {
		s.data[sessionID] = make(map[string]domain.MessageTree)
	}
	return nil
}

// Exists reports whether the session is known.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[sessionID]
	return ok, nil
}

// List returns active sessions in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Delete removes the session and its history.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.data, sessionID)
	return nil
}

// Load returns a copy of the node history so callers can't mutate stored messages.
func (s *Store) Load(ctx context.Context, sessionID, node string) (domain.MessageTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	tree := nodes[node].Clone()
	if tree == nil {
		tree = domain.MessageTree{}
	}
	return tree, nil
}

// Append copies the messages onto the node history.
func (s *Store) Append(ctx context.Context, sessionID, node string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, ok := s.data[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for _, m := range msgs {
		nodes[node] = append(nodes[node], m.Clone())
	}
	return nil
}

// Nodes lists the nodes with history in lexical order.
func (s *Store) Nodes(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
