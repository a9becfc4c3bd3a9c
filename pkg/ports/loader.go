package ports

import "context"

// GraphLoader defines where graph exports are read from when Canopy starts with a
// graph instead of waiting for one to be compiled over HTTP.
type GraphLoader interface {
	// Load returns the raw graph export (Drawflow JSON or a bare record map).
	Load(ctx context.Context) ([]byte, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is used to recompile the workflow when the graph file is edited.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying graph changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
