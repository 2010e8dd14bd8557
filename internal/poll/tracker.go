// Package poll tracks a backend-driven batch job to completion. The
// tracker is a small state machine: fetches are strictly sequential
// (the next one is scheduled only after the previous resolves), errors
// back off linearly, and repeated failures abandon the loop instead of
// polling forever.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recondash-dev/recondash/internal/model"
	"github.com/recondash-dev/recondash/internal/sched"
)

// State is the tracker's position in its lifecycle.
type State string

const (
	StateIdle      State = "IDLE"
	StatePolling   State = "POLLING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateAbandoned State = "ABANDONED"
)

// Terminal reports whether the tracker has stopped on its own.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAbandoned
}

// Defaults for the polling loop.
const (
	DefaultInterval  = 2 * time.Second
	DefaultMaxErrors = 3
)

// BatchFetcher fetches the current snapshot of a batch.
type BatchFetcher interface {
	Batch(ctx context.Context, id uuid.UUID) (model.Batch, error)
}

// Tracker polls one batch until it reaches a terminal state.
type Tracker struct {
	fetcher   BatchFetcher
	scheduler sched.Scheduler
	batchID   uuid.UUID
	interval  time.Duration
	maxErrors int

	mu         sync.Mutex
	state      State
	errCount   int
	gen        int
	timer      sched.Timer
	snapshot   *model.Batch
	lastErr    error
	onSnapshot func(model.Batch)
	done       chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval sets the base poll interval.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// WithMaxErrors sets how many consecutive failures are tolerated before
// the tracker abandons polling.
func WithMaxErrors(n int) Option {
	return func(t *Tracker) { t.maxErrors = n }
}

// WithScheduler replaces the timer scheduler (tests use sched.Manual).
func WithScheduler(s sched.Scheduler) Option {
	return func(t *Tracker) { t.scheduler = s }
}

// NewTracker creates an idle tracker for one batch.
func NewTracker(fetcher BatchFetcher, batchID uuid.UUID, opts ...Option) *Tracker {
	t := &Tracker{
		fetcher:   fetcher,
		scheduler: sched.Real(),
		batchID:   batchID,
		interval:  DefaultInterval,
		maxErrors: DefaultMaxErrors,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnSnapshot registers a callback invoked with every successfully
// fetched batch snapshot, terminal ones included. It must be set before
// Start; the callback runs without the tracker lock held.
func (t *Tracker) OnSnapshot(f func(model.Batch)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSnapshot = f
}

// Start enters POLLING and issues an immediate fetch. Calling Start
// while already polling is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StatePolling {
		return
	}
	t.state = StatePolling
	t.errCount = 0
	t.lastErr = nil
	t.done = make(chan struct{})
	t.scheduleLocked(ctx, 0)
}

// Stop cancels any pending fetch. No fetch fires after Stop returns. A
// polling tracker returns to IDLE; terminal states are preserved.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.state == StatePolling {
		t.state = StateIdle
		t.closeDoneLocked()
	}
}

// Retry resets the error counter and re-enters POLLING with an
// immediate fetch. It only applies to an ABANDONED tracker.
func (t *Tracker) Retry(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateAbandoned {
		return
	}
	t.state = StatePolling
	t.errCount = 0
	t.lastErr = nil
	t.done = make(chan struct{})
	t.scheduleLocked(ctx, 0)
}

// Refresh performs a one-shot snapshot fetch outside the polling loop,
// publishing the result like any poll success. It never schedules
// anything.
func (t *Tracker) Refresh(ctx context.Context) error {
	batch, err := t.fetcher.Batch(ctx, t.batchID)
	if err != nil {
		return err
	}
	t.publish(batch)
	return nil
}

// State returns the tracker's current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns the latest fetched batch, if any fetch has succeeded.
func (t *Tracker) Snapshot() (model.Batch, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot == nil {
		return model.Batch{}, false
	}
	return *t.snapshot, true
}

// Err returns the error that caused abandonment, or the most recent
// poll failure while still retrying.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Done returns a channel closed when the tracker leaves POLLING, via a
// terminal state or Stop. It is only valid after Start.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// closeDoneLocked signals waiters. Each POLLING entry creates a fresh
// channel, and the only transitions out of POLLING close it, so a
// channel is never closed twice.
func (t *Tracker) closeDoneLocked() {
	if t.done != nil {
		close(t.done)
	}
}

// scheduleLocked arms the single pending timer. Bumping the generation
// invalidates anything scheduled before.
func (t *Tracker) scheduleLocked(ctx context.Context, d time.Duration) {
	t.gen++
	gen := t.gen
	t.timer = t.scheduler.AfterFunc(d, func() { t.fire(ctx, gen) })
}

// fire performs one fetch. The generation check on both sides of the
// network call keeps a stale fetch from writing state after Stop, a
// terminal transition, or a newer schedule.
func (t *Tracker) fire(ctx context.Context, gen int) {
	t.mu.Lock()
	if gen != t.gen || t.state != StatePolling {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	batch, err := t.fetcher.Batch(ctx, t.batchID)

	t.mu.Lock()
	if gen != t.gen || t.state != StatePolling {
		t.mu.Unlock()
		return
	}
	t.timer = nil

	if err != nil {
		t.errCount++
		t.lastErr = err
		if t.errCount >= t.maxErrors {
			t.state = StateAbandoned
			t.closeDoneLocked()
			t.mu.Unlock()
			return
		}
		t.scheduleLocked(ctx, t.interval*time.Duration(t.errCount))
		t.mu.Unlock()
		return
	}

	t.errCount = 0
	t.lastErr = nil
	snapshot := batch
	t.snapshot = &snapshot

	switch batch.Status {
	case model.BatchCompleted:
		t.state = StateCompleted
		t.closeDoneLocked()
	case model.BatchFailed:
		t.state = StateFailed
		t.closeDoneLocked()
	default:
		t.scheduleLocked(ctx, t.interval)
	}
	cb := t.onSnapshot
	t.mu.Unlock()

	if cb != nil {
		cb(batch)
	}
}

func (t *Tracker) publish(batch model.Batch) {
	t.mu.Lock()
	snapshot := batch
	t.snapshot = &snapshot
	cb := t.onSnapshot
	t.mu.Unlock()

	if cb != nil {
		cb(batch)
	}
}
