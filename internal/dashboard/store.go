// Package dashboard assembles the reconciliation client: one Store per
// process, one BatchView per batch under review. All construction is
// explicit here so everything downstream takes its dependencies as
// arguments.
package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/recondash-dev/recondash/internal/actions"
	"github.com/recondash-dev/recondash/internal/api"
	"github.com/recondash-dev/recondash/internal/auditlog"
	"github.com/recondash-dev/recondash/internal/collection"
	"github.com/recondash-dev/recondash/internal/config"
	"github.com/recondash-dev/recondash/internal/model"
	"github.com/recondash-dev/recondash/internal/poll"
	"github.com/recondash-dev/recondash/internal/search"
	"github.com/recondash-dev/recondash/internal/sched"
)

// Store is the top-level container. It owns the API gateway and hands
// out batch views that share it.
type Store struct {
	cfg    *config.Config
	client *api.Client
	clock  sched.Scheduler
	record func(auditlog.Entry)

	mu    sync.Mutex
	views map[uuid.UUID]*BatchView
}

// Option configures a Store.
type Option func(*Store)

// WithClient replaces the API gateway (tests point it at a stub server).
func WithClient(c *api.Client) Option {
	return func(s *Store) { s.client = c }
}

// WithScheduler replaces the timer source for every tracker and search
// session the store creates.
func WithScheduler(c sched.Scheduler) Option {
	return func(s *Store) { s.clock = c }
}

// WithRecorder replaces the audit log sink.
func WithRecorder(f func(auditlog.Entry)) Option {
	return func(s *Store) { s.record = f }
}

// New builds a store from configuration.
func New(cfg *config.Config, opts ...Option) *Store {
	s := &Store{
		cfg:   cfg,
		clock: sched.Real(),
		views: make(map[uuid.UUID]*BatchView),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = api.NewClient(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout()))
	}
	if s.record == nil {
		dir := cfg.Log.Dir
		s.record = func(e auditlog.Entry) {
			// Local log only; a write failure must not fail the action.
			_ = auditlog.Append(dir, []auditlog.Entry{e})
		}
	}
	return s
}

// Client returns the shared API gateway.
func (s *Store) Client() *api.Client {
	return s.client
}

// Upload streams a transaction file to the backend and returns the id
// of the batch created for it.
func (s *Store) Upload(ctx context.Context, path string) (uuid.UUID, error) {
	f, err := os.Open(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("opening upload file: %w", err)
	}
	defer f.Close()

	return s.client.UploadBatch(ctx, filepath.Base(path), f)
}

// Batch returns the view for a batch, creating it on first use. Views
// are memoized so repeated lookups share polling and loaded state.
func (s *Store) Batch(batchID uuid.UUID) *BatchView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[batchID]; ok {
		return v
	}
	v := newBatchView(s, batchID)
	s.views[batchID] = v
	return v
}

// BatchView is everything the UI needs for one batch: progress
// tracking, the transaction list, and action dispatch, wired together.
type BatchView struct {
	store   *Store
	batchID uuid.UUID

	tracker     *poll.Tracker
	collection  *collection.Manager
	coordinator *actions.Coordinator
}

func newBatchView(s *Store, batchID uuid.UUID) *BatchView {
	v := &BatchView{store: s, batchID: batchID}

	v.tracker = poll.NewTracker(s.client, batchID,
		poll.WithInterval(s.cfg.Poll.Interval()),
		poll.WithMaxErrors(s.cfg.Poll.MaxConsecutiveErrors),
		poll.WithScheduler(s.clock),
	)
	v.collection = collection.NewManager(s.client, batchID, s.cfg.List.PageSize)
	v.coordinator = actions.NewCoordinator(s.client, v.collection,
		actions.WithBatchSource(v.tracker.Snapshot),
		actions.WithBulkRefresh(v.refreshAfterBulk),
		actions.WithRecorder(s.record),
	)
	return v
}

// refreshAfterBulk re-fetches state a bulk confirm invalidated. The
// batch counts always change; the loaded rows only disappear from view
// when the active filter is AUTO_MATCHED, so only that filter reloads.
func (v *BatchView) refreshAfterBulk(ctx context.Context) error {
	if err := v.tracker.Refresh(ctx); err != nil {
		return err
	}
	if v.collection.Filter() == model.TxAutoMatched {
		return v.collection.Load(ctx)
	}
	return nil
}

// BatchID returns the batch this view is for.
func (v *BatchView) BatchID() uuid.UUID {
	return v.batchID
}

// Tracker returns the progress tracker.
func (v *BatchView) Tracker() *poll.Tracker {
	return v.tracker
}

// Collection returns the transaction list.
func (v *BatchView) Collection() *collection.Manager {
	return v.collection
}

// Dispatch runs one review action through the coordinator.
func (v *BatchView) Dispatch(ctx context.Context, req actions.Request) (model.Transaction, error) {
	return v.coordinator.Dispatch(ctx, req)
}

// InFlight reports whether an action is running against a transaction.
func (v *BatchView) InFlight(id uuid.UUID) (actions.Kind, bool) {
	return v.coordinator.InFlight(id)
}

// BulkConfirm confirms every auto-matched transaction in the batch.
func (v *BatchView) BulkConfirm(ctx context.Context) (api.BulkConfirmResult, error) {
	return v.coordinator.BulkConfirm(ctx, v.batchID)
}

// BulkInFlight reports whether a bulk confirm is running.
func (v *BatchView) BulkInFlight() bool {
	return v.coordinator.BulkInFlight()
}

// OpenSearch opens a manual-match invoice lookup for a loaded
// transaction, seeded with its amount. The seed search runs before
// OpenSearch returns.
func (v *BatchView) OpenSearch(ctx context.Context, txnID uuid.UUID) (*search.Session, error) {
	txn, ok := v.collection.Transaction(txnID)
	if !ok {
		return nil, actions.ErrUnknownTransaction
	}
	session := search.NewSession(v.store.client, txn.Amount,
		search.WithDebounce(v.store.cfg.Search.Debounce()),
		search.WithLimit(v.store.cfg.Search.Limit),
		search.WithScheduler(v.store.clock),
	)
	if err := session.Open(ctx); err != nil {
		return session, err
	}
	return session, nil
}
