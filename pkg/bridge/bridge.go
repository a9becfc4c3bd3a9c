package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultWorkers is the number of invocations that may compute at once.
	DefaultWorkers = 8
	// DefaultBuffer is the number of events a worker may run ahead of delivery.
	DefaultBuffer = 64
)

// Computation produces a response, emitting intermediate events in order.
// emit must not be called after the computation returns.
type Computation func(ctx context.Context, emit domain.Emitter) (string, error)

// Sink delivers one frame to a connection.
type Sink func(ctx context.Context, f Frame) error

// Result summarizes a finished invocation.
type Result struct {
	Response string
	// Events counts intermediate events produced by the computation.
	Events int
	// Dropped counts frames discarded after the sink failed.
	Dropped int
	// DeliveryErr is the first delivery failure, wrapping domain.ErrDeliveryFailed.
	DeliveryErr error
}

// Bridge runs computations on a bounded pool of worker goroutines and relays their
// events to the caller's goroutine.
type Bridge struct {
	sem     *semaphore.Weighted
	workers int
	buffer  int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBuffer sets the event channel capacity.
func WithBuffer(n int) Option {
	return func(b *Bridge) {
		if n >= 0 {
			b.buffer = n
		}
	}
}

// WithLogger configures a logger for the Bridge.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMetrics records invocations, events and delivery failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// New creates a Bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		workers: DefaultWorkers,
		buffer:  DefaultBuffer,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.sem = semaphore.NewWeighted(int64(b.workers))
	return b
}

type outcome struct {
	response string
	err      error
}

// Invoke runs compute on a worker and delivers every event it emits, then the terminal
// frame, through deliver on the calling goroutine.
//
// The returned error is the computation's failure as a *domain.InvocationError, or the
// context error if no worker slot could be acquired. Delivery failures never fail the
// invocation: the sink is marked dead and later frames are discarded.
func (b *Bridge) Invoke(ctx context.Context, compute Computation, deliver Sink) (Result, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("waiting for worker slot: %w", err)
	}
	finish := b.metrics.InvocationStarted()

	events := make(chan domain.Event, b.buffer)
	done := make(chan outcome, 1)

	var emitMu sync.Mutex
	closed := false
	emit := func(ev domain.Event) {
		emitMu.Lock()
		defer emitMu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("panic: %v", r)
				b.logger.Error("invocation panicked", "panic", r)
			}
			emitMu.Lock()
			closed = true
			close(events)
			emitMu.Unlock()
			b.sem.Release(1)
			done <- out
		}()
		out.response, out.err = compute(ctx, emit)
	}()

	var res Result
	send := func(f Frame) {
		if res.DeliveryErr != nil {
			res.Dropped++
			return
		}
		if err := deliver(ctx, f); err != nil {
			res.DeliveryErr = fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
			res.Dropped++
			b.metrics.DeliveryFailed()
			b.logger.Warn("connection stopped accepting frames, discarding the rest", "err", err)
		}
	}

	for ev := range events {
		res.Events++
		b.metrics.ObserveEvent(ev)
		send(Frame{Event: &ev})
	}

	out := <-done
	err := out.err
	if err != nil {
		var inv *domain.InvocationError
		if !errors.As(err, &inv) {
			err = &domain.InvocationError{Err: err}
		}
		send(ErrorFrame(err.Error()))
	} else {
		res.Response = out.response
		send(Frame{Final: &Terminal{Response: out.response, Timestamp: time.Now().UTC()}})
	}
	finish(err)
	return res, err
}
