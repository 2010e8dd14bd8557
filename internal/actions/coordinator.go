// Package actions serializes review actions against transactions. At
// most one action is in flight per transaction, plus one independent
// bulk confirm, and nothing is sent to the backend unless the
// transaction's status makes the action legal and the caller has
// satisfied the confirmation gate.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recondash-dev/recondash/internal/api"
	"github.com/recondash-dev/recondash/internal/auditlog"
	"github.com/recondash-dev/recondash/internal/model"
)

// Kind identifies a single-row review action.
type Kind string

const (
	KindConfirm      Kind = "confirm"
	KindReject       Kind = "reject"
	KindMatch        Kind = "match"
	KindMarkExternal Kind = "external"
)

// Dispatch failures that never reach the network.
var (
	ErrNotAllowed           = errors.New("action not allowed for transaction status")
	ErrActionInFlight       = errors.New("another action is in flight for this transaction")
	ErrBulkInFlight         = errors.New("a bulk confirm is already in flight")
	ErrConfirmationRequired = errors.New("action requires explicit confirmation")
	ErrUnknownTransaction   = errors.New("transaction is not loaded")
	ErrMissingInvoice       = errors.New("manual match requires an invoice id")
)

// legal is the action matrix by transaction status.
var legal = map[model.TransactionStatus]map[Kind]bool{
	model.TxAutoMatched: {KindConfirm: true, KindReject: true},
	model.TxNeedsReview: {KindConfirm: true, KindReject: true, KindMatch: true},
	model.TxUnmatched:   {KindMatch: true, KindMarkExternal: true},
	model.TxConfirmed:   {},
	model.TxExternal:    {},
}

// Allowed reports whether kind is legal for a transaction in the given
// status.
func Allowed(status model.TransactionStatus, kind Kind) bool {
	return legal[status][kind]
}

// API is the slice of the gateway the coordinator needs. *api.Client
// satisfies it.
type API interface {
	ConfirmTransaction(ctx context.Context, id uuid.UUID) (api.ActionResult, error)
	RejectTransaction(ctx context.Context, id uuid.UUID) (api.ActionResult, error)
	MatchTransaction(ctx context.Context, id, invoiceID uuid.UUID) (api.ActionResult, error)
	MarkExternal(ctx context.Context, id uuid.UUID) (api.ActionResult, error)
	BulkConfirm(ctx context.Context, batchID uuid.UUID) (api.BulkConfirmResult, error)
}

// Collection is the transaction list the coordinator reads statuses
// from and writes server-returned rows back into.
type Collection interface {
	Transaction(id uuid.UUID) (model.Transaction, bool)
	ReplaceTransaction(updated model.Transaction) bool
}

// Request is one dispatch. Confirmed records that the upstream
// confirmation step (a prompt, a --yes flag) has been satisfied; the
// coordinator refuses to execute without it.
type Request struct {
	Kind          Kind
	TransactionID uuid.UUID
	InvoiceID     uuid.UUID
	Confirmed     bool
}

// Coordinator tracks in-flight actions for one batch view.
type Coordinator struct {
	api  API
	coll Collection

	batchSnapshot func() (model.Batch, bool)
	afterBulk     func(ctx context.Context) error
	record        func(auditlog.Entry)

	mu       sync.Mutex
	inFlight map[uuid.UUID]Kind
	bulk     bool
	lastErr  error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBatchSource supplies the latest batch snapshot, used to make bulk
// confirm a no-op when nothing is auto-matched.
func WithBatchSource(f func() (model.Batch, bool)) Option {
	return func(c *Coordinator) { c.batchSnapshot = f }
}

// WithBulkRefresh registers the refresh performed after a successful
// bulk confirm. Bulk success reports only a count, so dependent state
// is re-fetched rather than inferred locally.
func WithBulkRefresh(f func(ctx context.Context) error) Option {
	return func(c *Coordinator) { c.afterBulk = f }
}

// WithRecorder registers an audit log sink for completed dispatches.
func WithRecorder(f func(auditlog.Entry)) Option {
	return func(c *Coordinator) { c.record = f }
}

// NewCoordinator creates a coordinator over the given gateway and
// collection.
func NewCoordinator(gateway API, coll Collection, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:      gateway,
		coll:     coll,
		inFlight: make(map[uuid.UUID]Kind),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight returns the action currently running against a transaction,
// so the UI can lock the row.
func (c *Coordinator) InFlight(id uuid.UUID) (Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kind, ok := c.inFlight[id]
	return kind, ok
}

// BulkInFlight reports whether a bulk confirm is running.
func (c *Coordinator) BulkInFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bulk
}

// Err returns the most recent dispatch failure, cleared by any success.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Dispatch executes one review action. Illegal, duplicate, and
// unconfirmed requests are rejected synchronously without issuing a
// request. On success the server-returned transaction replaces the row
// in the collection; the transaction is never mutated by guesswork.
func (c *Coordinator) Dispatch(ctx context.Context, req Request) (model.Transaction, error) {
	txn, ok := c.coll.Transaction(req.TransactionID)
	if !ok {
		return model.Transaction{}, ErrUnknownTransaction
	}
	if !Allowed(txn.Status, req.Kind) {
		return model.Transaction{}, fmt.Errorf("%w: %s on %s", ErrNotAllowed, req.Kind, txn.Status)
	}
	if !req.Confirmed {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrConfirmationRequired, req.Kind)
	}
	if req.Kind == KindMatch && req.InvoiceID == uuid.Nil {
		return model.Transaction{}, ErrMissingInvoice
	}

	c.mu.Lock()
	if _, busy := c.inFlight[req.TransactionID]; busy {
		c.mu.Unlock()
		return model.Transaction{}, ErrActionInFlight
	}
	c.inFlight[req.TransactionID] = req.Kind
	c.mu.Unlock()

	res, err := c.call(ctx, req)

	c.mu.Lock()
	delete(c.inFlight, req.TransactionID)
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logEntry(string(req.Kind), req.TransactionID.String(), txn.BatchID.String(), "", auditlog.OutcomeError, err.Error())
		return model.Transaction{}, fmt.Errorf("dispatching %s: %w", req.Kind, err)
	}

	c.coll.ReplaceTransaction(res.Transaction)
	c.logEntry(string(req.Kind), req.TransactionID.String(), txn.BatchID.String(), res.AuditLogID.String(), auditlog.OutcomeOK, "")
	return res.Transaction, nil
}

func (c *Coordinator) call(ctx context.Context, req Request) (api.ActionResult, error) {
	switch req.Kind {
	case KindConfirm:
		return c.api.ConfirmTransaction(ctx, req.TransactionID)
	case KindReject:
		return c.api.RejectTransaction(ctx, req.TransactionID)
	case KindMatch:
		return c.api.MatchTransaction(ctx, req.TransactionID, req.InvoiceID)
	case KindMarkExternal:
		return c.api.MarkExternal(ctx, req.TransactionID)
	default:
		return api.ActionResult{}, fmt.Errorf("unknown action kind %q", req.Kind)
	}
}

// BulkConfirm confirms every auto-matched transaction in the batch. It
// is a no-op when the latest batch snapshot shows none, and runs under
// its own in-flight flag so row-level actions cannot deadlock it. After
// success the registered refresh re-fetches dependent state.
func (c *Coordinator) BulkConfirm(ctx context.Context, batchID uuid.UUID) (api.BulkConfirmResult, error) {
	if c.batchSnapshot != nil {
		if batch, ok := c.batchSnapshot(); ok && batch.AutoMatchedCount == 0 {
			return api.BulkConfirmResult{}, nil
		}
	}

	c.mu.Lock()
	if c.bulk {
		c.mu.Unlock()
		return api.BulkConfirmResult{}, ErrBulkInFlight
	}
	c.bulk = true
	c.mu.Unlock()

	res, err := c.api.BulkConfirm(ctx, batchID)

	c.mu.Lock()
	c.bulk = false
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logEntry("bulk-confirm", "", batchID.String(), "", auditlog.OutcomeError, err.Error())
		return api.BulkConfirmResult{}, fmt.Errorf("bulk confirm: %w", err)
	}

	c.logEntry("bulk-confirm", "", batchID.String(), "", auditlog.OutcomeOK, fmt.Sprintf("confirmed %d", res.ConfirmedCount))

	if c.afterBulk != nil {
		if err := c.afterBulk(ctx); err != nil {
			return res, fmt.Errorf("refreshing after bulk confirm: %w", err)
		}
	}
	return res, nil
}

func (c *Coordinator) logEntry(action, txnID, batchID, auditID, outcome, details string) {
	if c.record == nil {
		return
	}
	c.record(auditlog.Entry{
		Timestamp:     time.Now().UTC(),
		Action:        action,
		TransactionID: txnID,
		BatchID:       batchID,
		AuditLogID:    auditID,
		Outcome:       outcome,
		Details:       details,
	})
}
