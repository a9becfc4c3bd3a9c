package middleware

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Middleware allows wrapping a Store to add behavior.
type Middleware func(ports.Store) ports.Store

// Chain applies middlewares so the first one listed is the outermost.
func Chain(store ports.Store, mws ...Middleware) ports.Store {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// passthrough forwards the session-level operations untouched.
// Middlewares embed it and override only Load and Append.
type passthrough struct {
	next ports.Store
}

func (p passthrough) Create(ctx context.Context, sessionID string) error {
	return p.next.Create(ctx, sessionID)
}

func (p passthrough) Exists(ctx context.Context, sessionID string) (bool, error) {
	return p.next.Exists(ctx, sessionID)
}

func (p passthrough) List(ctx context.Context) ([]string, error) {
	return p.next.List(ctx)
}

func (p passthrough) Delete(ctx context.Context, sessionID string) error {
	return p.next.Delete(ctx, sessionID)
}

func (p passthrough) Nodes(ctx context.Context, sessionID string) ([]string, error) {
	return p.next.Nodes(ctx, sessionID)
}

// transform rewrites the content and tool arguments of every message in place,
// including nested responses.
func transform(msgs []domain.Message, fn func(string) (string, error)) error {
	for i := range msgs {
		m := &msgs[i]
		content, err := fn(m.Content)
		if err != nil {
			return err
		}
		m.Content = content
		for j := range m.ToolCalls {
			args, err := fn(m.ToolCalls[j].Arguments)
			if err != nil {
				return err
			}
			m.ToolCalls[j].Arguments = args
		}
		if err := transform(m.Responses, fn); err != nil {
			return err
		}
	}
	return nil
}

func cloneAll(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
