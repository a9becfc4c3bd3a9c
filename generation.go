package canopy

import (
	"sync/atomic"

	"github.com/aretw0/canopy/internal/compiler"
	"github.com/aretw0/canopy/pkg/domain"
)

// generation is one published workflow plus the invocations still using it.
// The Studio itself holds one reference while the generation is current; the
// toolsets are closed when the last reference is released.
type generation struct {
	wf   *domain.Workflow
	refs atomic.Int64
	done func(*domain.Workflow, error)
}

func newGeneration(wf *domain.Workflow, done func(*domain.Workflow, error)) *generation {
	g := &generation{wf: wf, done: done}
	g.refs.Store(1)
	return g
}

// tryAcquire takes a reference unless the generation is already retired.
func (g *generation) tryAcquire() bool {
	for {
		n := g.refs.Load()
		if n <= 0 {
			return false
		}
		if g.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (g *generation) release() {
	if g.refs.Add(-1) != 0 {
		return
	}
	err := compiler.CloseToolsets(g.wf)
	if g.done != nil {
		g.done(g.wf, err)
	}
}
