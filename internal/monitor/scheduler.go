package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"camconnect/internal/clock"
)

// Scheduler drives a probe function on a fixed cadence. The delay is measured
// from the completion of one cycle to the start of the next, so cycles never
// overlap regardless of how long a probe takes.
type Scheduler[T any] struct {
	clock    clock.Clock
	interval time.Duration
	probe    func(context.Context) T
	onResult func(T)
	visible  atomic.Bool

	mu      sync.Mutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}
}

// Start launches the probing loop. The first cycle runs immediately.
func Start[T any](ctx context.Context, clk clock.Clock, interval time.Duration, probe func(context.Context) T, onResult func(T)) *Scheduler[T] {
	if clk == nil {
		clk = clock.Real()
	}
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	runCtx, cancel := context.WithCancel(ctx)
	s := &Scheduler[T]{
		clock:    clk,
		interval: interval,
		probe:    probe,
		onResult: onResult,
		ctx:      runCtx,
		cancel:   cancel,
		doneCh:   make(chan struct{}),
	}
	s.visible.Store(true)
	go s.run()
	return s
}

// Stop terminates the loop and waits for it to exit. A probe in flight is
// cancelled and its result discarded; onResult is never called after Stop returns.
func (s *Scheduler[T]) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancel()
	s.mu.Unlock()
	<-s.done()
}

// SetVisible toggles suspension. While hidden, ticks keep running but skip the probe.
func (s *Scheduler[T]) SetVisible(visible bool) {
	s.visible.Store(visible)
}

// Visible reports whether probing is currently active.
func (s *Scheduler[T]) Visible() bool {
	return s.visible.Load()
}

// done is closed once the loop has exited.
func (s *Scheduler[T]) done() <-chan struct{} {
	return s.doneCh
}

func (s *Scheduler[T]) run() {
	defer close(s.doneCh)

	for {
		if s.visible.Load() {
			s.cycle()
		}

		timer := s.clock.NewTimer(s.interval)
		select {
		case <-timer.C():
		case <-s.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler[T]) cycle() {
	if s.ctx.Err() != nil {
		return
	}
	result := s.probe(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.onResult(result)
}
