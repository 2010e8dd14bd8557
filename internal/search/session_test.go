package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recondash-dev/recondash/internal/api"
	"github.com/recondash-dev/recondash/internal/model"
	"github.com/recondash-dev/recondash/internal/sched"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type searchResult struct {
	invoices []model.Invoice
	err      error
}

// fakeSearcher records queries and serves queued results in order. When
// gate is non-nil each call blocks until the gate is closed.
type fakeSearcher struct {
	mu      sync.Mutex
	queries []api.InvoiceQuery
	results []searchResult
	gate    chan struct{}
}

func (f *fakeSearcher) SearchInvoices(_ context.Context, q api.InvoiceQuery) ([]model.Invoice, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.gate
	var r searchResult
	if len(f.results) > 0 {
		r = f.results[0]
		f.results = f.results[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return r.invoices, r.err
}

func (f *fakeSearcher) queue(invoices ...model.Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, searchResult{invoices: invoices})
}

func (f *fakeSearcher) queueErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, searchResult{err: err})
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeSearcher) query(i int) api.InvoiceQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[i]
}

func invoice(customer string) model.Invoice {
	return model.Invoice{CustomerName: customer, Amount: decimal.NewFromInt(100)}
}

func TestOpen_SeedsAmountSearchImmediately(t *testing.T) {
	searcher := &fakeSearcher{}
	searcher.queue(invoice("Acme Corp"))
	clock := sched.NewManual()

	s := NewSession(searcher, decimal.RequireFromString("100.50"), WithScheduler(clock))
	require.NoError(t, s.Open(context.Background()))

	require.Equal(t, 1, searcher.callCount())
	q := searcher.query(0)
	require.NotNil(t, q.Amount)
	assert.True(t, q.Amount.Equal(decimal.RequireFromString("100.50")))
	assert.Empty(t, q.Text)
	assert.Equal(t, 0, clock.Pending(), "the seed search is not debounced")

	require.Len(t, s.Results(), 1)
	assert.False(t, s.Loading())
}

func TestSetInput_DebouncesToSingleSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	searcher.queue(invoice("ACME Industrial"))
	clock := sched.NewManual()

	s := NewSession(searcher, decimal.NewFromInt(100), WithScheduler(clock))
	ctx := context.Background()

	s.SetInput(ctx, "100")
	s.SetInput(ctx, "100.5")
	s.SetInput(ctx, "ACME")

	delay, fired := clock.Fire()
	require.True(t, fired)
	assert.Equal(t, DefaultDebounce, delay)

	require.Equal(t, 1, searcher.callCount(), "intermediate keystrokes never reach the network")
	q := searcher.query(0)
	assert.Equal(t, "ACME", q.Text, "only the final input is searched")
	assert.Nil(t, q.Amount)

	_, fired = clock.Fire()
	assert.False(t, fired, "earlier keystrokes were cancelled")
}

func TestSetInput_DecimalIsAmountSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	searcher.queue()
	clock := sched.NewManual()

	s := NewSession(searcher, decimal.NewFromInt(100), WithScheduler(clock))
	s.SetInput(context.Background(), " 250.75 ")

	_, fired := clock.Fire()
	require.True(t, fired)

	q := searcher.query(0)
	require.NotNil(t, q.Amount)
	assert.True(t, q.Amount.Equal(decimal.RequireFromString("250.75")), "whitespace-trimmed decimals search by amount")
}

func TestSetInput_EmptyFallsBackToSeed(t *testing.T) {
	searcher := &fakeSearcher{}
	searcher.queue()
	clock := sched.NewManual()

	s := NewSession(searcher, decimal.NewFromInt(42), WithScheduler(clock))
	s.SetInput(context.Background(), "")

	_, fired := clock.Fire()
	require.True(t, fired)

	q := searcher.query(0)
	require.NotNil(t, q.Amount)
	assert.True(t, q.Amount.Equal(decimal.NewFromInt(42)), "clearing the input restores the seed amount search")
}

func TestStaleResultsDiscarded(t *testing.T) {
	searcher := &fakeSearcher{}
	searcher.gate = make(chan struct{})
	searcher.queue(invoice("stale"))
	clock := sched.NewManual()

	s := NewSession(searcher, decimal.NewFromInt(100), WithScheduler(clock))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Open(ctx) }()
	require.Eventually(t, func() bool { return searcher.callCount() == 1 }, waitFor, tick)

	// New input before the seed search resolves.
	s.SetInput(ctx, "ACME")
	close(searcher.gate)
	require.NoError(t, <-done)

	assert.Empty(t, s.Results(), "a superseded search must not populate the list")

	searcher.queue(invoice("ACME Industrial"))
	_, fired := clock.Fire()
	require.True(t, fired)

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "ACME Industrial", results[0].CustomerName)
}

func TestSearchFailureSurfacesAndClears(t *testing.T) {
	searcher := &fakeSearcher{}
	searcher.queueErr(errors.New("backend down"))
	clock := sched.NewManual()

	s := NewSession(searcher, decimal.NewFromInt(100), WithScheduler(clock))
	require.Error(t, s.Open(context.Background()))
	require.Error(t, s.Err())

	searcher.queue(invoice("Acme Corp"))
	s.SetInput(context.Background(), "ACME")
	_, fired := clock.Fire()
	require.True(t, fired)

	assert.NoError(t, s.Err(), "a later success clears the error")
	assert.Len(t, s.Results(), 1)
}

func TestClose_CancelsPendingSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	clock := sched.NewManual()

	s := NewSession(searcher, decimal.NewFromInt(100), WithScheduler(clock))
	s.SetInput(context.Background(), "ACME")
	s.Close()

	_, fired := clock.Fire()
	assert.False(t, fired)
	assert.Equal(t, 0, searcher.callCount())

	// Input after close is ignored.
	s.SetInput(context.Background(), "more")
	assert.Equal(t, 0, clock.Pending())
}
