package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// Store defines the interface for persisting per-session conversation history.
// History is kept per (session, node): an append-only MessageTree whose top-level
// messages are the node's turns.
type Store interface {
	// Create allocates backing storage for a session. Creating an existing session is a no-op.
	Create(ctx context.Context, sessionID string) error

	// Exists reports whether a session has backing storage.
	Exists(ctx context.Context, sessionID string) (bool, error)

	// List returns every known session ID.
	List(ctx context.Context) ([]string, error)

	// Delete removes a session and all of its history.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Delete(ctx context.Context, sessionID string) error

	// Load returns the history of one node in one session, in append order.
	// Returns domain.ErrSessionNotFound if the session does not exist, and an empty
	// tree if the node has no history yet.
	Load(ctx context.Context, sessionID, node string) (domain.MessageTree, error)

	// Append adds top-level messages to a node's history.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Append(ctx context.Context, sessionID, node string, msgs ...domain.Message) error

	// Nodes lists the nodes with stored history in a session.
	Nodes(ctx context.Context, sessionID string) ([]string, error)
}
