// Package apitest is an in-memory reconciliation backend used as the
// server side of client tests. Route shapes mirror the production API:
// everything is wrapped in a {success, data} envelope and transactions
// are served in either cursor or page mode depending on the query.
package apitest

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recondash-dev/recondash/internal/model"
)

const defaultLimit = 50

// Server holds the in-memory backend state. All exported mutators are
// safe for concurrent use with the router.
type Server struct {
	mu       sync.Mutex
	batches  map[uuid.UUID]*model.Batch
	txnOrder map[uuid.UUID][]uuid.UUID
	txns     map[uuid.UUID]*model.Transaction
	invoices []model.Invoice
	failures map[string]int
	calls    map[string]int
}

// NewServer creates an empty backend.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	return &Server{
		batches:  make(map[uuid.UUID]*model.Batch),
		txnOrder: make(map[uuid.UUID][]uuid.UUID),
		txns:     make(map[uuid.UUID]*model.Transaction),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

// AddBatch seeds a batch.
func (s *Server) AddBatch(b model.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := b
	s.batches[b.ID] = &copied
}

// SetBatch replaces a seeded batch snapshot.
func (s *Server) SetBatch(b model.Batch) { s.AddBatch(b) }

// AddTransaction seeds a transaction, preserving insertion order within
// its batch.
func (s *Server) AddTransaction(tx model.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := tx
	s.txns[tx.ID] = &copied
	s.txnOrder[tx.BatchID] = append(s.txnOrder[tx.BatchID], tx.ID)
}

// Transaction returns the current server-side copy of a transaction.
func (s *Server) Transaction(id uuid.UUID) (model.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txns[id]
	if !ok {
		return model.Transaction{}, false
	}
	return *tx, true
}

// AddInvoice seeds an invoice for search.
func (s *Server) AddInvoice(inv model.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append(s.invoices, inv)
}

// FailNext makes the next n requests to a route answer 500 with a
// structured error body. Route keys: upload, batch, transactions,
// confirm, reject, match, external, bulk-confirm, invoices.
func (s *Server) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = n
}

// Calls returns how many requests a route has served, failures included.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Router builds the gin engine serving the API under /api/v1.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	v1 := r.Group("/api/v1")

	v1.POST("/reconciliation/upload", s.track("upload", s.handleUpload))
	v1.GET("/reconciliation/:batchId", s.track("batch", s.handleBatch))
	v1.GET("/reconciliation/:batchId/transactions", s.track("transactions", s.handleTransactions))

	v1.POST("/transactions/:id/confirm", s.track("confirm", s.handleAction("confirm")))
	v1.POST("/transactions/:id/reject", s.track("reject", s.handleAction("reject")))
	v1.POST("/transactions/:id/match", s.track("match", s.handleAction("match")))
	v1.POST("/transactions/:id/external", s.track("external", s.handleAction("external")))
	v1.POST("/transactions/bulk-confirm", s.track("bulk-confirm", s.handleBulkConfirm))

	v1.GET("/invoices/search", s.track("invoices", s.handleInvoiceSearch))

	return r
}

func (s *Server) track(route string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[route]++
		if s.failures[route] > 0 {
			s.failures[route]--
			s.mu.Unlock()
			fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "simulated backend failure")
			return
		}
		s.mu.Unlock()
		h(c)
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	_, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "FILE_REQUIRED", "file required")
		return
	}

	batch := model.Batch{
		ID:       uuid.New(),
		Filename: header.Filename,
		Status:   model.BatchProcessing,
	}
	s.mu.Lock()
	s.batches[batch.ID] = &batch
	s.mu.Unlock()

	ok(c, gin.H{"batchId": batch.ID})
}

func (s *Server) handleBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "INVALID_ID", "invalid batch id")
		return
	}

	s.mu.Lock()
	batch, found := s.batches[id]
	var snapshot model.Batch
	if found {
		snapshot = *batch
	}
	s.mu.Unlock()

	if !found {
		fail(c, http.StatusNotFound, "BATCH_NOT_FOUND", "batch not found")
		return
	}
	ok(c, snapshot)
}

func (s *Server) handleTransactions(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "INVALID_ID", "invalid batch id")
		return
	}

	limit := defaultLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	status := model.TransactionStatus(c.Query("status"))

	s.mu.Lock()
	var rows []model.Transaction
	for _, id := range s.txnOrder[batchID] {
		tx := s.txns[id]
		if status != "" && tx.Status != status {
			continue
		}
		rows = append(rows, *tx)
	}
	s.mu.Unlock()

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			fail(c, http.StatusBadRequest, "INVALID_PAGE", "invalid page")
			return
		}
		total := len(rows)
		totalPages := (total + limit - 1) / limit
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}
		ok(c, gin.H{
			"transactions": rows[start:end],
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
		return
	}

	start := 0
	if cursor := c.Query("cursor"); cursor != "" {
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			fail(c, http.StatusBadRequest, "INVALID_CURSOR", "invalid cursor")
			return
		}
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}

	resp := gin.H{"data": rows[start:end], "hasMore": end < len(rows)}
	if end < len(rows) {
		resp["nextCursor"] = strconv.Itoa(end)
	}
	ok(c, resp)
}

func (s *Server) handleAction(verb string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			fail(c, http.StatusBadRequest, "INVALID_ID", "invalid transaction id")
			return
		}

		var invoiceID uuid.UUID
		if verb == "match" {
			var body struct {
				InvoiceID uuid.UUID `json:"invoiceId"`
			}
			if err := c.BindJSON(&body); err != nil || body.InvoiceID == uuid.Nil {
				fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invoiceId required")
				return
			}
			invoiceID = body.InvoiceID
		}

		s.mu.Lock()
		tx, found := s.txns[id]
		if !found {
			s.mu.Unlock()
			fail(c, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")
			return
		}

		switch verb {
		case "confirm":
			tx.Status = model.TxConfirmed
		case "reject":
			tx.Status = model.TxUnmatched
			tx.MatchedInvoice = nil
		case "external":
			tx.Status = model.TxExternal
		case "match":
			var matched *model.Invoice
			for i := range s.invoices {
				if s.invoices[i].ID == invoiceID {
					matched = &s.invoices[i]
					break
				}
			}
			if matched == nil {
				s.mu.Unlock()
				fail(c, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found")
				return
			}
			summary := matched.Summary()
			tx.Status = model.TxConfirmed
			tx.MatchedInvoice = &summary
			tx.Confidence = decimal.NewNullDecimal(decimal.NewFromInt(100))
		}
		snapshot := *tx
		s.mu.Unlock()

		ok(c, gin.H{"transaction": snapshot, "auditLogId": uuid.New()})
	}
}

func (s *Server) handleBulkConfirm(c *gin.Context) {
	var body struct {
		BatchID uuid.UUID `json:"batchId"`
	}
	if err := c.BindJSON(&body); err != nil || body.BatchID == uuid.Nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", "batchId required")
		return
	}

	s.mu.Lock()
	var confirmed []uuid.UUID
	for _, id := range s.txnOrder[body.BatchID] {
		tx := s.txns[id]
		if tx.Status == model.TxAutoMatched {
			tx.Status = model.TxConfirmed
			confirmed = append(confirmed, id)
		}
	}
	if batch, found := s.batches[body.BatchID]; found {
		batch.AutoMatchedCount -= len(confirmed)
	}
	s.mu.Unlock()

	ok(c, gin.H{"confirmedCount": len(confirmed), "transactionIds": confirmed})
}

func (s *Server) handleInvoiceSearch(c *gin.Context) {
	limit := defaultLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	var amount *decimal.Decimal
	if amountStr := c.Query("amount"); amountStr != "" {
		parsed, err := decimal.NewFromString(amountStr)
		if err != nil {
			fail(c, http.StatusBadRequest, "INVALID_AMOUNT", "invalid amount")
			return
		}
		amount = &parsed
	}
	text := strings.ToLower(strings.TrimSpace(c.Query("q")))

	s.mu.Lock()
	var found []model.Invoice
	for _, inv := range s.invoices {
		if amount != nil && !inv.Amount.Equal(*amount) {
			continue
		}
		if amount == nil && text != "" && !strings.Contains(strings.ToLower(inv.CustomerName), text) {
			continue
		}
		found = append(found, inv)
		if len(found) == limit {
			break
		}
	}
	s.mu.Unlock()

	ok(c, gin.H{"invoices": found, "count": len(found)})
}
