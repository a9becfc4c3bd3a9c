package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// MockStore is a minimal in-memory implementation of Store used to exercise the contract suite itself.
type MockStore struct {
	data map[string]map[string]domain.MessageTree
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]map[string]domain.MessageTree),
	}
}

func (m *MockStore) Create(ctx context.Context, sessionID string) error {
	if _, ok := m.data[sessionID]; !ok {
		m.data[sessionID] = make(map[string]domain.MessageTree)
	}
	return nil
}

func (m *MockStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, ok := m.data[sessionID]
	return ok, nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	if _, ok := m.data[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID, node string) (domain.MessageTree, error) {
	nodes, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append(domain.MessageTree(nil), nodes[node]...), nil
}

func (m *MockStore) Append(ctx context.Context, sessionID, node string, msgs ...domain.Message) error {
	nodes, ok := m.data[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	nodes[node] = append(nodes[node], msgs...)
	return nil
}

func (m *MockStore) Nodes(ctx context.Context, sessionID string) ([]string, error) {
	nodes, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	return names, nil
}

func TestStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, NewMockStore())
}
