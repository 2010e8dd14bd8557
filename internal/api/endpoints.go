package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recondash-dev/recondash/internal/model"
)

// UploadBatch uploads a transaction file and returns the id of the batch
// the backend created for it. The file contents are streamed opaquely;
// parsing happens server-side.
func (c *Client) UploadBatch(ctx context.Context, filename string, r io.Reader) (uuid.UUID, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return uuid.Nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return uuid.Nil, fmt.Errorf("reading upload file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return uuid.Nil, fmt.Errorf("finalizing upload form: %w", err)
	}

	var out struct {
		BatchID uuid.UUID `json:"batchId"`
	}
	if err := c.do(ctx, http.MethodPost, "/reconciliation/upload", nil, &buf, mw.FormDataContentType(), &out); err != nil {
		return uuid.Nil, err
	}
	return out.BatchID, nil
}

// Batch fetches the current snapshot of a batch.
func (c *Client) Batch(ctx context.Context, id uuid.UUID) (model.Batch, error) {
	var out model.Batch
	if err := c.doJSON(ctx, http.MethodGet, "/reconciliation/"+id.String(), nil, nil, &out); err != nil {
		return model.Batch{}, err
	}
	return out, nil
}

// TransactionQuery selects one page of a batch's transactions. A
// positive Page selects page mode; otherwise cursor mode is used and
// Cursor (possibly empty, for the first page) applies.
type TransactionQuery struct {
	Status model.TransactionStatus
	Cursor string
	Page   int
	Limit  int
}

// Pagination is the page-mode bookkeeping returned by the backend.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// TransactionPage is one fetched page in either pagination mode.
// Pagination is non-nil exactly when the backend answered in page mode.
type TransactionPage struct {
	Transactions []model.Transaction
	NextCursor   string
	HasMore      bool
	Pagination   *Pagination
}

// Transactions lists one page of a batch's transactions. The backend
// answers cursor requests as {data, nextCursor, hasMore} and page
// requests as {transactions, pagination}; both are accepted.
func (c *Client) Transactions(ctx context.Context, batchID uuid.UUID, q TransactionQuery) (TransactionPage, error) {
	query := url.Values{}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	} else if q.Cursor != "" {
		query.Set("cursor", q.Cursor)
	}

	var wire struct {
		Data         []model.Transaction `json:"data"`
		NextCursor   string              `json:"nextCursor"`
		HasMore      bool                `json:"hasMore"`
		Transactions []model.Transaction `json:"transactions"`
		Pagination   *Pagination         `json:"pagination"`
	}
	path := "/reconciliation/" + batchID.String() + "/transactions"
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &wire); err != nil {
		return TransactionPage{}, err
	}

	if wire.Pagination != nil {
		return TransactionPage{Transactions: wire.Transactions, Pagination: wire.Pagination}, nil
	}
	return TransactionPage{
		Transactions: wire.Data,
		NextCursor:   wire.NextCursor,
		HasMore:      wire.HasMore,
	}, nil
}

// ActionResult is the backend's answer to a single-row mutation: the
// updated transaction plus the id of the audit log row it wrote.
type ActionResult struct {
	Transaction model.Transaction `json:"transaction"`
	AuditLogID  uuid.UUID         `json:"auditLogId"`
}

// ConfirmTransaction confirms a matched transaction.
func (c *Client) ConfirmTransaction(ctx context.Context, id uuid.UUID) (ActionResult, error) {
	return c.transactionAction(ctx, id, "confirm", nil)
}

// RejectTransaction rejects a proposed match.
func (c *Client) RejectTransaction(ctx context.Context, id uuid.UUID) (ActionResult, error) {
	return c.transactionAction(ctx, id, "reject", nil)
}

// MatchTransaction manually matches a transaction to an invoice.
func (c *Client) MatchTransaction(ctx context.Context, id, invoiceID uuid.UUID) (ActionResult, error) {
	body := struct {
		InvoiceID uuid.UUID `json:"invoiceId"`
	}{InvoiceID: invoiceID}
	return c.transactionAction(ctx, id, "match", body)
}

// MarkExternal marks a transaction as outside the invoicing system.
func (c *Client) MarkExternal(ctx context.Context, id uuid.UUID) (ActionResult, error) {
	return c.transactionAction(ctx, id, "external", nil)
}

func (c *Client) transactionAction(ctx context.Context, id uuid.UUID, verb string, body any) (ActionResult, error) {
	var out ActionResult
	path := "/transactions/" + id.String() + "/" + verb
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return ActionResult{}, err
	}
	return out, nil
}

// BulkConfirmResult reports what a bulk confirm changed. The backend
// returns only a count and the affected ids, not updated rows.
type BulkConfirmResult struct {
	ConfirmedCount int         `json:"confirmedCount"`
	TransactionIDs []uuid.UUID `json:"transactionIds"`
}

// BulkConfirm confirms every auto-matched transaction in a batch.
func (c *Client) BulkConfirm(ctx context.Context, batchID uuid.UUID) (BulkConfirmResult, error) {
	body := struct {
		BatchID uuid.UUID `json:"batchId"`
	}{BatchID: batchID}
	var out BulkConfirmResult
	if err := c.doJSON(ctx, http.MethodPost, "/transactions/bulk-confirm", nil, body, &out); err != nil {
		return BulkConfirmResult{}, err
	}
	return out, nil
}

// InvoiceQuery is a manual-match invoice lookup: either free text
// (customer name) or an exact amount, never both.
type InvoiceQuery struct {
	Text   string
	Amount *decimal.Decimal
	Limit  int
}

// SearchInvoices looks up candidate invoices for a manual match.
func (c *Client) SearchInvoices(ctx context.Context, q InvoiceQuery) ([]model.Invoice, error) {
	query := url.Values{}
	if q.Amount != nil {
		query.Set("amount", q.Amount.String())
	} else if q.Text != "" {
		query.Set("q", q.Text)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var out struct {
		Invoices []model.Invoice `json:"invoices"`
		Count    int             `json:"count"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/invoices/search", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Invoices, nil
}
