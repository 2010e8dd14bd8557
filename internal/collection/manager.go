// Package collection owns the paginated, filterable transaction list
// for one batch. Rows stay in server order; a filter change replaces
// the whole sequence, never splices it.
package collection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/recondash-dev/recondash/internal/api"
	"github.com/recondash-dev/recondash/internal/model"
)

// DefaultPageSize is used when the caller does not configure one.
const DefaultPageSize = 50

// Pager fetches one page of transactions. *api.Client satisfies it.
type Pager interface {
	Transactions(ctx context.Context, batchID uuid.UUID, q api.TransactionQuery) (api.TransactionPage, error)
}

// Manager holds the loaded sequence plus its pagination position. Every
// fetch is tagged with the filter generation it was issued under;
// results for a stale generation are discarded, so a filter change can
// never be overwritten by a late response.
type Manager struct {
	pager   Pager
	batchID uuid.UUID
	limit   int

	mu          sync.Mutex
	filter      model.TransactionStatus
	gen         int
	txns        []model.Transaction
	cursor      string
	hasMore     bool
	pagination  *api.Pagination
	loading     bool
	loadingMore bool
	lastErr     error
	lastQuery   api.TransactionQuery
	lastReplace bool
}

// NewManager creates an empty collection for one batch.
func NewManager(pager Pager, batchID uuid.UUID, limit int) *Manager {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &Manager{pager: pager, batchID: batchID, limit: limit, lastReplace: true}
}

// SetFilter switches the active status filter ("" means all). The
// loaded sequence, cursor, and pagination position are cleared
// synchronously so no stale rows are visible while the next load runs,
// and any fetch still in flight under the old filter is invalidated.
func (m *Manager) SetFilter(f model.TransactionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f == m.filter {
		return
	}
	m.filter = f
	m.gen++
	m.txns = nil
	m.cursor = ""
	m.hasMore = false
	m.pagination = nil
	m.loading = false
	m.loadingMore = false
	m.lastErr = nil
	m.lastQuery = api.TransactionQuery{Status: f, Limit: m.limit}
	m.lastReplace = true
}

// Load fetches the first page under the active filter in cursor mode,
// replacing the sequence.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	gen := m.gen
	q := api.TransactionQuery{Status: m.filter, Limit: m.limit}
	m.loading = true
	m.lastQuery = q
	m.lastReplace = true
	m.mu.Unlock()

	return m.fetch(ctx, gen, q, true)
}

// LoadPage jumps to an arbitrary page in page mode, replacing the
// sequence.
func (m *Manager) LoadPage(ctx context.Context, page int) error {
	m.mu.Lock()
	gen := m.gen
	q := api.TransactionQuery{Status: m.filter, Page: page, Limit: m.limit}
	m.loading = true
	m.lastQuery = q
	m.lastReplace = true
	m.mu.Unlock()

	return m.fetch(ctx, gen, q, true)
}

// LoadMore appends the next cursor page. It is a no-op when there is
// nothing more to load or another fetch is already in flight.
func (m *Manager) LoadMore(ctx context.Context) error {
	m.mu.Lock()
	if !m.hasMore || m.cursor == "" || m.loading || m.loadingMore {
		m.mu.Unlock()
		return nil
	}
	gen := m.gen
	q := api.TransactionQuery{Status: m.filter, Cursor: m.cursor, Limit: m.limit}
	m.loadingMore = true
	m.lastQuery = q
	m.lastReplace = false
	m.mu.Unlock()

	return m.fetch(ctx, gen, q, false)
}

// Retry re-issues the parameters of the last fetch, after a failure.
func (m *Manager) Retry(ctx context.Context) error {
	m.mu.Lock()
	gen := m.gen
	q := m.lastQuery
	replace := m.lastReplace
	if replace {
		m.loading = true
	} else {
		m.loadingMore = true
	}
	m.mu.Unlock()

	return m.fetch(ctx, gen, q, replace)
}

func (m *Manager) fetch(ctx context.Context, gen int, q api.TransactionQuery, replace bool) error {
	page, err := m.pager.Transactions(ctx, m.batchID, q)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		// Filter changed while this fetch was in flight; the result
		// belongs to a sequence that no longer exists.
		return nil
	}
	if replace {
		m.loading = false
	} else {
		m.loadingMore = false
	}
	if err != nil {
		// Keep whatever was already loaded; the error is retryable.
		m.lastErr = err
		return err
	}
	m.lastErr = nil

	switch {
	case page.Pagination != nil:
		m.txns = page.Transactions
		m.pagination = page.Pagination
		m.cursor = ""
		m.hasMore = false
	case replace:
		m.txns = page.Transactions
		m.cursor = page.NextCursor
		m.hasMore = page.HasMore && page.NextCursor != ""
		m.pagination = nil
	default:
		m.txns = append(m.txns, page.Transactions...)
		m.cursor = page.NextCursor
		m.hasMore = page.HasMore && page.NextCursor != ""
	}
	return nil
}

// Transactions returns a copy of the loaded sequence in server order.
func (m *Manager) Transactions() []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Transaction, len(m.txns))
	copy(out, m.txns)
	return out
}

// Transaction looks up a loaded row by id.
func (m *Manager) Transaction(id uuid.UUID) (model.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.txns {
		if tx.ID == id {
			return tx, true
		}
	}
	return model.Transaction{}, false
}

// ReplaceTransaction swaps in the server-returned copy of a row,
// preserving its position. It reports whether the row was present.
func (m *Manager) ReplaceTransaction(updated model.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, tx := range m.txns {
		if tx.ID == updated.ID {
			m.txns[i] = updated
			return true
		}
	}
	return false
}

// Filter returns the active status filter ("" means all).
func (m *Manager) Filter() model.TransactionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// HasMore reports whether a further cursor page is available.
func (m *Manager) HasMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasMore
}

// Loading reports whether a replacing fetch is in flight (full-page
// skeleton), as opposed to LoadingMore (append spinner).
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// LoadingMore reports whether an appending fetch is in flight.
func (m *Manager) LoadingMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadingMore
}

// Err returns the most recent fetch failure, cleared by any success.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Pagination returns the page-mode bookkeeping from the last page-mode
// fetch.
func (m *Manager) Pagination() (api.Pagination, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pagination == nil {
		return api.Pagination{}, false
	}
	return *m.pagination, true
}
