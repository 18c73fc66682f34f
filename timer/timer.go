// timer/timer.go
package timer

import (
	"sync"
	"time"
)

// RoundTimer is a cancellable countdown owned by a single room. It ticks
// at one-second granularity, reporting the remaining seconds through
// onTick and firing onElapsed exactly once when the countdown reaches
// zero. Starting a running timer stops the previous countdown first;
// Stop is idempotent and never fires onElapsed.
//
// Callbacks run on the timer's own goroutine. Callers that mutate shared
// state from a callback must take the same lock they use for direct
// actions and re-check that the callback still applies, because a stop
// can race with a tick that is already in flight.
type RoundTimer struct {
	mu        sync.Mutex
	remaining int
	run       int // generation counter, bumped by Start and Stop
	running   bool
	interval  time.Duration
}

func New() *RoundTimer {
	return newRoundTimer(time.Second)
}

func newRoundTimer(interval time.Duration) *RoundTimer {
	return &RoundTimer{interval: interval}
}

// Start begins a countdown of the given number of seconds. Any previous
// countdown is cancelled without firing its callbacks.
func (t *RoundTimer) Start(seconds int, onTick func(remaining int), onElapsed func()) {
	t.mu.Lock()
	t.run++
	run := t.run
	t.remaining = seconds
	t.running = true
	t.mu.Unlock()

	go t.loop(run, onTick, onElapsed)
}

func (t *RoundTimer) loop(run int, onTick func(remaining int), onElapsed func()) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		if t.run != run {
			// Superseded by a later Start or a Stop.
			t.mu.Unlock()
			return
		}
		t.remaining--
		remaining := t.remaining
		if remaining <= 0 {
			t.running = false
			t.run++
			t.mu.Unlock()
			if onElapsed != nil {
				onElapsed()
			}
			return
		}
		t.mu.Unlock()
		if onTick == nil {
			continue
		}
		// A Stop can land between the decrement and here; re-check so
		// the cancelled countdown does not get one last tick out.
		t.mu.Lock()
		stale := t.run != run
		t.mu.Unlock()
		if stale {
			return
		}
		onTick(remaining)
	}
}

// Stop cancels any in-flight countdown. Calling Stop on an idle timer is
// a no-op.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	t.run++
	t.remaining = 0
}

// Remaining returns the seconds left in the current countdown, or 0 when
// the timer is idle.
func (t *RoundTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	return t.remaining
}
