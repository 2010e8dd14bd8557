// Package search runs the invoice lookup behind the manual-match flow.
// A session debounces keystrokes, interprets the input as either an
// amount or free text, and discards results that arrive for anything
// but the latest input.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recondash-dev/recondash/internal/api"
	"github.com/recondash-dev/recondash/internal/model"
	"github.com/recondash-dev/recondash/internal/sched"
)

// Defaults for a session.
const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultLimit    = 10
)

// Searcher is the slice of the gateway a session needs. *api.Client
// satisfies it.
type Searcher interface {
	SearchInvoices(ctx context.Context, q api.InvoiceQuery) ([]model.Invoice, error)
}

// Session is one manual-match lookup, opened for a specific
// transaction. Opening seeds the candidate list with an exact-amount
// search for that transaction's amount; typing replaces it.
type Session struct {
	searcher Searcher
	clock    sched.Scheduler
	debounce time.Duration
	limit    int
	seed     decimal.Decimal

	onResults func([]model.Invoice)

	mu      sync.Mutex
	gen     uint64
	timer   sched.Timer
	closed  bool
	loading bool
	results []model.Invoice
	lastErr error
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce overrides the keystroke debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithLimit overrides the maximum number of candidates requested.
func WithLimit(n int) Option {
	return func(s *Session) { s.limit = n }
}

// WithScheduler overrides the timer source. Tests inject sched.Manual.
func WithScheduler(c sched.Scheduler) Option {
	return func(s *Session) { s.clock = c }
}

// NewSession creates a session seeded with the transaction amount the
// operator is trying to match.
func NewSession(searcher Searcher, seedAmount decimal.Decimal, opts ...Option) *Session {
	s := &Session{
		searcher: searcher,
		clock:    sched.Real(),
		debounce: DefaultDebounce,
		limit:    DefaultLimit,
		seed:     seedAmount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnResults registers a callback fired whenever the candidate list is
// replaced. Set it before Open; it runs without the session lock held.
func (s *Session) OnResults(f func([]model.Invoice)) {
	s.onResults = f
}

// Open runs the seed amount search immediately, without debouncing.
// The operator sees likely candidates before typing anything.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	return s.search(ctx, gen, s.interpret(""))
}

// SetInput records a keystroke. The search itself runs only after the
// debounce window passes with no further input; each call cancels the
// previous pending search.
func (s *Session) SetInput(ctx context.Context, input string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	query := s.interpret(input)
	s.timer = s.clock.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if s.closed || gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.loading = true
		s.mu.Unlock()
		// Failures surface through Err; there is no caller to return to.
		_ = s.search(ctx, gen, query)
	})
}

// interpret classifies raw input. A parseable decimal is an amount
// search, other non-empty text is a customer-name search, and empty
// input falls back to the seed amount.
func (s *Session) interpret(input string) api.InvoiceQuery {
	input = strings.TrimSpace(input)
	if input == "" {
		seed := s.seed
		return api.InvoiceQuery{Amount: &seed, Limit: s.limit}
	}
	if amount, err := decimal.NewFromString(input); err == nil {
		return api.InvoiceQuery{Amount: &amount, Limit: s.limit}
	}
	return api.InvoiceQuery{Text: input, Limit: s.limit}
}

func (s *Session) search(ctx context.Context, gen uint64, query api.InvoiceQuery) error {
	invoices, err := s.searcher.SearchInvoices(ctx, query)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	s.lastErr = nil
	s.results = invoices
	callback := s.onResults
	s.mu.Unlock()

	if callback != nil {
		callback(invoices)
	}
	return nil
}

// Results returns the current candidate list.
func (s *Session) Results() []model.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Invoice, len(s.results))
	copy(out, s.results)
	return out
}

// Loading reports whether a search is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the most recent search failure, cleared by any success.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close cancels any pending search and drops late completions. The
// session cannot be reopened.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
