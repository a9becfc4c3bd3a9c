package session

import (
	"context"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
)

// RecordFunc persists turns of one node.
type RecordFunc func(ctx context.Context, node string, msgs ...domain.Message) error

// Conversation is the per-invocation view of a session's history.
// Compiled nodes are shared between sessions, so history lives here, keyed by node name.
// It is safe for concurrent use.
type Conversation struct {
	SessionID string

	mu      sync.RWMutex
	history map[string]domain.MessageTree
	record  RecordFunc
}

// NewConversation creates an empty conversation. A nil record keeps turns in memory only.
func NewConversation(sessionID string, record RecordFunc) *Conversation {
	return &Conversation{
		SessionID: sessionID,
		history:   make(map[string]domain.MessageTree),
		record:    record,
	}
}

func (c *Conversation) seed(node string, tree domain.MessageTree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[node] = tree
}

// History returns a copy of the node's history as seen by this conversation.
func (c *Conversation) History(node string) domain.MessageTree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history[node].Clone()
}

// Len reports how many nodes have history loaded.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}

// Commit records a completed turn of n. Nodes that do not persist history are skipped,
// so their next turn starts from a clean slate.
func (c *Conversation) Commit(ctx context.Context, n domain.WorkerNode, turn domain.Message) error {
	if !n.PersistsHistory() {
		return nil
	}

	c.mu.Lock()
	c.history[n.Name()] = append(c.history[n.Name()], turn.Clone())
	c.mu.Unlock()

	if c.record == nil {
		return nil
	}
	return c.record(ctx, n.Name(), turn)
}
