package domain

import (
	"errors"
	"time"
)

// Workflow is a compiled, immutable call hierarchy.
// It is never mutated after construction; recompiling produces a new Workflow.
type Workflow struct {
	entry      WorkerNode
	index      map[string]WorkerNode
	order      []string
	Generation uint64
	CompiledAt time.Time
}

// NewWorkflow indexes the hierarchy rooted at entry in pre-order.
// The hierarchy must already be free of cycles.
func NewWorkflow(entry WorkerNode, generation uint64) *Workflow {
	wf := &Workflow{
		entry:      entry,
		index:      make(map[string]WorkerNode),
		Generation: generation,
		CompiledAt: time.Now().UTC(),
	}
	_ = walk(entry, func(n WorkerNode) error {
		wf.index[n.Name()] = n
		wf.order = append(wf.order, n.Name())
		return nil
	})
	return wf
}

// EntryPoint returns the root of the call hierarchy.
func (w *Workflow) EntryPoint() WorkerNode { return w.entry }

// Lookup finds a node by name.
func (w *Workflow) Lookup(name string) (WorkerNode, bool) {
	n, ok := w.index[name]
	return n, ok
}

// Names returns node names in pre-order.
func (w *Workflow) Names() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Len returns the number of distinct nodes.
func (w *Workflow) Len() int { return len(w.order) }

// Walk visits every distinct node in pre-order: a supervisor, then each child depth-first in
// child order. Returning ErrSkipChildren from fn skips the node's subtree.
func (w *Workflow) Walk(fn func(WorkerNode) error) error {
	return walk(w.entry, fn)
}

// Agents returns every agent in pre-order.
func (w *Workflow) Agents() []*Agent {
	var out []*Agent
	for _, name := range w.order {
		if a, ok := w.index[name].(*Agent); ok {
			out = append(out, a)
		}
	}
	return out
}

// ErrSkipChildren tells Walk not to descend into the current node.
var ErrSkipChildren = errors.New("skip children")

func walk(root WorkerNode, fn func(WorkerNode) error) error {
	seen := make(map[string]bool)
	var visit func(WorkerNode) error
	visit = func(n WorkerNode) error {
		if seen[n.Name()] {
			return nil
		}
		seen[n.Name()] = true
		if err := fn(n); err != nil {
			if errors.Is(err, ErrSkipChildren) {
				return nil
			}
			return err
		}
		sup, ok := n.(*Supervisor)
		if !ok {
			return nil
		}
		for _, c := range sup.children {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if root == nil {
		return nil
	}
	return visit(root)
}
