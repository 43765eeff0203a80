package monitor

import (
	"context"
	"testing"
	"time"

	"camconnect/internal/clock"
)

const interval = 1500 * time.Millisecond

type probeRig struct {
	clk     *clock.Fake
	calls   chan time.Time
	results chan bool
}

func newProbeRig() *probeRig {
	return &probeRig{
		clk:     clock.NewFake(time.Unix(1_700_000_000, 0)),
		calls:   make(chan time.Time, 16),
		results: make(chan bool, 16),
	}
}

func (r *probeRig) probe(context.Context) bool {
	r.calls <- r.clk.Now()
	return true
}

func (r *probeRig) onResult(ok bool) {
	r.results <- ok
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func expectNone[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s: %v", what, v)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestSchedulerFixedDelayCadence verifies the delay runs from completion to next start.
func TestSchedulerFixedDelayCadence(t *testing.T) {
	rig := newProbeRig()
	s := Start(context.Background(), rig.clk, interval, rig.probe, rig.onResult)
	defer s.Stop()

	first := waitFor(t, rig.calls, "first probe")
	waitFor(t, rig.results, "first result")

	rig.clk.BlockUntil(1)
	rig.clk.Advance(interval - time.Millisecond)
	expectNone(t, rig.calls, "early probe")

	rig.clk.Advance(time.Millisecond)
	second := waitFor(t, rig.calls, "second probe")
	if got := second.Sub(first); got != interval {
		t.Fatalf("gap = %v, want %v", got, interval)
	}
	waitFor(t, rig.results, "second result")
}

// TestSchedulerSuspendSkipsProbes checks hidden ticks skip probing without catching up.
func TestSchedulerSuspendSkipsProbes(t *testing.T) {
	rig := newProbeRig()
	s := Start(context.Background(), rig.clk, interval, rig.probe, rig.onResult)
	defer s.Stop()

	waitFor(t, rig.calls, "first probe")
	waitFor(t, rig.results, "first result")

	s.SetVisible(false)
	for i := 0; i < 3; i++ {
		rig.clk.BlockUntil(1)
		rig.clk.Advance(interval)
	}
	expectNone(t, rig.calls, "probe while hidden")

	s.SetVisible(true)
	rig.clk.BlockUntil(1)
	rig.clk.Advance(interval)
	waitFor(t, rig.calls, "probe after resume")
	waitFor(t, rig.results, "result after resume")
	expectNone(t, rig.calls, "catch-up probe")

	rig.clk.BlockUntil(1)
	if !s.Visible() {
		t.Fatal("expected scheduler to report visible")
	}
}

// TestSchedulerStopDropsInFlightResult simulates a probe resolving after Stop.
func TestSchedulerStopDropsInFlightResult(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	entered := make(chan struct{})
	results := make(chan bool, 1)

	s := Start(context.Background(), clk, interval, func(ctx context.Context) bool {
		close(entered)
		<-ctx.Done()
		return true
	}, func(ok bool) { results <- ok })

	<-entered
	s.Stop()

	expectNone(t, results, "result after stop")
	select {
	case <-s.done():
	default:
		t.Fatal("loop still running after Stop")
	}
}

// TestSchedulerStopIdempotent verifies a second Stop returns immediately.
func TestSchedulerStopIdempotent(t *testing.T) {
	rig := newProbeRig()
	s := Start(context.Background(), rig.clk, interval, rig.probe, rig.onResult)
	waitFor(t, rig.calls, "first probe")
	waitFor(t, rig.results, "first result")

	s.Stop()
	s.Stop()
	rig.clk.Advance(10 * interval)
	expectNone(t, rig.calls, "probe after stop")
}
