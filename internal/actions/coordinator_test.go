package actions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recondash-dev/recondash/internal/api"
	"github.com/recondash-dev/recondash/internal/auditlog"
	"github.com/recondash-dev/recondash/internal/model"
)

// fakeGateway counts calls and answers each action with the requested
// transaction in a terminal status. A non-nil gate blocks every call
// until closed.
type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	bulkErr  error
	rowErr   error
	bulkRes  api.BulkConfirmResult
	statuses map[Kind]model.TransactionStatus
	gate     chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		statuses: map[Kind]model.TransactionStatus{
			KindConfirm:      model.TxConfirmed,
			KindReject:       model.TxUnmatched,
			KindMatch:        model.TxConfirmed,
			KindMarkExternal: model.TxExternal,
		},
	}
}

func (g *fakeGateway) respond(kind Kind, id uuid.UUID) (api.ActionResult, error) {
	g.mu.Lock()
	g.calls++
	gate := g.gate
	err := g.rowErr
	status := g.statuses[kind]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return api.ActionResult{}, err
	}
	return api.ActionResult{
		Transaction: model.Transaction{ID: id, Status: status},
		AuditLogID:  uuid.New(),
	}, nil
}

func (g *fakeGateway) ConfirmTransaction(_ context.Context, id uuid.UUID) (api.ActionResult, error) {
	return g.respond(KindConfirm, id)
}

func (g *fakeGateway) RejectTransaction(_ context.Context, id uuid.UUID) (api.ActionResult, error) {
	return g.respond(KindReject, id)
}

func (g *fakeGateway) MatchTransaction(_ context.Context, id, _ uuid.UUID) (api.ActionResult, error) {
	return g.respond(KindMatch, id)
}

func (g *fakeGateway) MarkExternal(_ context.Context, id uuid.UUID) (api.ActionResult, error) {
	return g.respond(KindMarkExternal, id)
}

func (g *fakeGateway) BulkConfirm(_ context.Context, _ uuid.UUID) (api.BulkConfirmResult, error) {
	g.mu.Lock()
	g.calls++
	gate := g.gate
	res, err := g.bulkRes, g.bulkErr
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return res, err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// fakeCollection is a minimal in-memory transaction list.
type fakeCollection struct {
	mu   sync.Mutex
	rows []model.Transaction
}

func (c *fakeCollection) Transaction(id uuid.UUID) (model.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tx := range c.rows {
		if tx.ID == id {
			return tx, true
		}
	}
	return model.Transaction{}, false
}

func (c *fakeCollection) ReplaceTransaction(updated model.Transaction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, tx := range c.rows {
		if tx.ID == updated.ID {
			c.rows[i] = updated
			return true
		}
	}
	return false
}

func (c *fakeCollection) add(status model.TransactionStatus) model.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx := model.Transaction{ID: uuid.New(), BatchID: uuid.New(), Status: status}
	c.rows = append(c.rows, tx)
	return tx
}

func TestAllowed_Matrix(t *testing.T) {
	tests := []struct {
		status  model.TransactionStatus
		kind    Kind
		allowed bool
	}{
		{model.TxAutoMatched, KindConfirm, true},
		{model.TxAutoMatched, KindReject, true},
		{model.TxAutoMatched, KindMatch, false},
		{model.TxAutoMatched, KindMarkExternal, false},

		{model.TxNeedsReview, KindConfirm, true},
		{model.TxNeedsReview, KindReject, true},
		{model.TxNeedsReview, KindMatch, true},
		{model.TxNeedsReview, KindMarkExternal, false},

		{model.TxUnmatched, KindConfirm, false},
		{model.TxUnmatched, KindReject, false},
		{model.TxUnmatched, KindMatch, true},
		{model.TxUnmatched, KindMarkExternal, true},

		{model.TxConfirmed, KindConfirm, false},
		{model.TxConfirmed, KindReject, false},
		{model.TxConfirmed, KindMatch, false},
		{model.TxConfirmed, KindMarkExternal, false},

		{model.TxExternal, KindConfirm, false},
		{model.TxExternal, KindReject, false},
		{model.TxExternal, KindMatch, false},
		{model.TxExternal, KindMarkExternal, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, Allowed(tt.status, tt.kind), "%s on %s", tt.kind, tt.status)
	}
}

func TestDispatch_IllegalStatusRejectedWithoutNetworkCall(t *testing.T) {
	gateway := newFakeGateway()
	coll := &fakeCollection{}
	tx := coll.add(model.TxUnmatched)
	c := NewCoordinator(gateway, coll)

	_, err := c.Dispatch(context.Background(), Request{Kind: KindConfirm, TransactionID: tx.ID, Confirmed: true})
	require.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 0, gateway.callCount())
}

func TestDispatch_RequiresConfirmationGate(t *testing.T) {
	gateway := newFakeGateway()
	coll := &fakeCollection{}
	tx := coll.add(model.TxAutoMatched)
	c := NewCoordinator(gateway, coll)

	_, err := c.Dispatch(context.Background(), Request{Kind: KindConfirm, TransactionID: tx.ID})
	require.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, 0, gateway.callCount())
}

func TestDispatch_UnknownTransaction(t *testing.T) {
	gateway := newFakeGateway()
	c := NewCoordinator(gateway, &fakeCollection{})

	_, err := c.Dispatch(context.Background(), Request{Kind: KindConfirm, TransactionID: uuid.New(), Confirmed: true})
	require.ErrorIs(t, err, ErrUnknownTransaction)
	assert.Equal(t, 0, gateway.callCount())
}

func TestDispatch_MatchNeedsInvoice(t *testing.T) {
	gateway := newFakeGateway()
	coll := &fakeCollection{}
	tx := coll.add(model.TxUnmatched)
	c := NewCoordinator(gateway, coll)

	_, err := c.Dispatch(context.Background(), Request{Kind: KindMatch, TransactionID: tx.ID, Confirmed: true})
	require.ErrorIs(t, err, ErrMissingInvoice)
	assert.Equal(t, 0, gateway.callCount())
}

func TestDispatch_SecondDispatchBlockedWhileInFlight(t *testing.T) {
	gateway := newFakeGateway()
	gateway.gate = make(chan struct{})
	coll := &fakeCollection{}
	tx := coll.add(model.TxAutoMatched)
	c := NewCoordinator(gateway, coll)

	done := make(chan error, 1)
	go func() {
		_, err := c.Dispatch(context.Background(), Request{Kind: KindConfirm, TransactionID: tx.ID, Confirmed: true})
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, busy := c.InFlight(tx.ID)
		return busy
	}, 2*time.Second, 5*time.Millisecond)

	_, err := c.Dispatch(context.Background(), Request{Kind: KindConfirm, TransactionID: tx.ID, Confirmed: true})
	require.ErrorIs(t, err, ErrActionInFlight)

	close(gateway.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gateway.callCount(), "rapid double dispatch issues exactly one network call")

	_, busy := c.InFlight(tx.ID)
	assert.False(t, busy, "in-flight marker cleared after completion")
}

func TestDispatch_SuccessReplacesOnlyTarget(t *testing.T) {
	gateway := newFakeGateway()
	coll := &fakeCollection{}
	target := coll.add(model.TxAutoMatched)
	other := coll.add(model.TxNeedsReview)
	c := NewCoordinator(gateway, coll)

	updated, err := c.Dispatch(context.Background(), Request{Kind: KindConfirm, TransactionID: target.ID, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, model.TxConfirmed, updated.Status)

	got, _ := coll.Transaction(target.ID)
	assert.Equal(t, model.TxConfirmed, got.Status, "server-returned row replaces the target")

	untouched, _ := coll.Transaction(other.ID)
	assert.Equal(t, other, untouched, "no other transaction is mutated")
}

func TestDispatch_FailureClearsInFlightAndKeepsRow(t *testing.T) {
	gateway := newFakeGateway()
	gateway.rowErr = errors.New("backend rejected it")
	coll := &fakeCollection{}
	tx := coll.add(model.TxNeedsReview)
	c := NewCoordinator(gateway, coll)

	_, err := c.Dispatch(context.Background(), Request{Kind: KindReject, TransactionID: tx.ID, Confirmed: true})
	require.Error(t, err)

	_, busy := c.InFlight(tx.ID)
	assert.False(t, busy)
	require.Error(t, c.Err())

	got, _ := coll.Transaction(tx.ID)
	assert.Equal(t, model.TxNeedsReview, got.Status, "failure must not modify the transaction")
}

func TestBulkConfirm_NoOpWhenNothingAutoMatched(t *testing.T) {
	gateway := newFakeGateway()
	c := NewCoordinator(gateway, &fakeCollection{},
		WithBatchSource(func() (model.Batch, bool) {
			return model.Batch{AutoMatchedCount: 0}, true
		}))

	res, err := c.BulkConfirm(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, res.ConfirmedCount)
	assert.Equal(t, 0, gateway.callCount(), "no request for an empty bulk confirm")
}

func TestBulkConfirm_RefreshesAfterSuccess(t *testing.T) {
	gateway := newFakeGateway()
	gateway.bulkRes = api.BulkConfirmResult{ConfirmedCount: 4}

	refreshed := 0
	c := NewCoordinator(gateway, &fakeCollection{},
		WithBatchSource(func() (model.Batch, bool) {
			return model.Batch{AutoMatchedCount: 4}, true
		}),
		WithBulkRefresh(func(context.Context) error {
			refreshed++
			return nil
		}))

	res, err := c.BulkConfirm(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 4, res.ConfirmedCount)
	assert.Equal(t, 1, refreshed, "dependent state is re-fetched, not inferred")
	assert.False(t, c.BulkInFlight())
}

func TestBulkConfirm_ExclusiveFlag(t *testing.T) {
	gateway := newFakeGateway()
	gateway.gate = make(chan struct{})
	coll := &fakeCollection{}
	tx := coll.add(model.TxAutoMatched)
	c := NewCoordinator(gateway, coll)

	done := make(chan error, 1)
	go func() {
		_, err := c.BulkConfirm(context.Background(), uuid.New())
		done <- err
	}()

	require.Eventually(t, c.BulkInFlight, 2*time.Second, 5*time.Millisecond)

	_, err := c.BulkConfirm(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrBulkInFlight)

	// A row-level action is tracked independently and is also blocked
	// only by its own gate, not the bulk flag.
	_, busy := c.InFlight(tx.ID)
	assert.False(t, busy)

	close(gateway.gate)
	require.NoError(t, <-done)
}

func TestDispatch_RecordsAuditEntries(t *testing.T) {
	gateway := newFakeGateway()
	coll := &fakeCollection{}
	tx := coll.add(model.TxAutoMatched)

	var entries []auditlog.Entry
	c := NewCoordinator(gateway, coll, WithRecorder(func(e auditlog.Entry) {
		entries = append(entries, e)
	}))

	_, err := c.Dispatch(context.Background(), Request{Kind: KindConfirm, TransactionID: tx.ID, Confirmed: true})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "confirm", entries[0].Action)
	assert.Equal(t, auditlog.OutcomeOK, entries[0].Outcome)
	assert.NotEmpty(t, entries[0].AuditLogID)
}
