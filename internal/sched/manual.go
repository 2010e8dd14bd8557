package sched

import (
	"sync"
	"time"
)

// Manual is a Scheduler whose timers fire only when the test tells them
// to. Callbacks run synchronously on the firing goroutine.
type Manual struct {
	mu      sync.Mutex
	pending []*ManualTimer
}

// ManualTimer is a timer scheduled on a Manual scheduler.
type ManualTimer struct {
	m       *Manual
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc records a pending timer without starting any real clock.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &ManualTimer{m: m, delay: d, fn: f}
	m.pending = append(m.pending, t)
	return t
}

// Fire runs the oldest pending timer and returns its scheduled delay.
// It reports false when nothing is pending.
func (m *Manual) Fire() (time.Duration, bool) {
	m.mu.Lock()
	var next *ManualTimer
	for len(m.pending) > 0 {
		t := m.pending[0]
		m.pending = m.pending[1:]
		if !t.stopped {
			next = t
			break
		}
	}
	if next == nil {
		m.mu.Unlock()
		return 0, false
	}
	next.fired = true
	m.mu.Unlock()

	next.fn()
	return next.delay, true
}

// Pending returns how many timers are scheduled and not stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// NextDelay returns the delay of the oldest pending timer.
func (m *Manual) NextDelay() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.pending {
		if !t.stopped {
			return t.delay, true
		}
	}
	return 0, false
}

// Stop cancels the timer if it has not fired yet.
func (t *ManualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
