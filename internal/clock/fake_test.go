package clock

import (
	"testing"
	"time"
)

// TestFakeAdvanceFiresDueTimersInOrder verifies ordering of due callbacks.
func TestFakeAdvanceFiresDueTimersInOrder(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	var fired []string
	clk.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "late") })
	clk.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
	clk.AfterFunc(time.Second, func() { fired = append(fired, "future") })

	clk.Advance(500 * time.Millisecond)

	if len(fired) != 2 || fired[0] != "early" || fired[1] != "late" {
		t.Fatalf("fired = %v, want [early late]", fired)
	}
	if clk.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", clk.Pending())
	}
}

// TestFakeStopPreventsFire checks cancellation of pending timers.
func TestFakeStopPreventsFire(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	called := false
	timer := clk.AfterFunc(time.Second, func() { called = true })

	if !timer.Stop() {
		t.Fatal("expected Stop to report a pending timer")
	}
	if timer.Stop() {
		t.Fatal("second Stop should report false")
	}
	clk.Advance(2 * time.Second)
	if called {
		t.Fatal("stopped timer fired")
	}
}

// TestFakeChannelTimer verifies channel delivery on advance.
func TestFakeChannelTimer(t *testing.T) {
	start := time.Unix(100, 0)
	clk := NewFake(start)
	timer := clk.NewTimer(time.Second)

	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clk.Advance(time.Second)
	select {
	case at := <-timer.C():
		if !at.Equal(start.Add(time.Second)) {
			t.Fatalf("fired at %v, want %v", at, start.Add(time.Second))
		}
	default:
		t.Fatal("timer did not fire")
	}
}
