package bridge

import (
	"errors"
	"sync"
)

// DefaultLaneDepth is the number of queries a connection may queue behind the running one.
const DefaultLaneDepth = 16

var (
	// ErrLaneFull is returned when a connection submits more queries than the lane holds.
	ErrLaneFull = errors.New("too many queued queries")
	// ErrLaneClosed is returned after the lane was closed.
	ErrLaneClosed = errors.New("lane closed")
)

// Lane runs submitted jobs one at a time in submission order.
// Each connection owns one, so its queries never interleave.
type Lane struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewLane starts a lane with the given queue depth.
func NewLane(depth int) *Lane {
	if depth <= 0 {
		depth = DefaultLaneDepth
	}
	l := &Lane{jobs: make(chan func(), depth)}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for job := range l.jobs {
			job()
		}
	}()
	return l
}

// Submit queues a job without blocking.
func (l *Lane) Submit(job func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLaneClosed
	}
	select {
	case l.jobs <- job:
		return nil
	default:
		return ErrLaneFull
	}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (l *Lane) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.jobs)
	}
	l.mu.Unlock()
	l.wg.Wait()
}
