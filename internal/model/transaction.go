package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus determines which review actions are legal for a row.
type TransactionStatus string

const (
	TxAutoMatched TransactionStatus = "AUTO_MATCHED"
	TxNeedsReview TransactionStatus = "NEEDS_REVIEW"
	TxUnmatched   TransactionStatus = "UNMATCHED"
	TxConfirmed   TransactionStatus = "CONFIRMED"
	TxExternal    TransactionStatus = "EXTERNAL"
)

// TransactionStatuses lists every status the backend can report, in
// display order.
var TransactionStatuses = []TransactionStatus{
	TxAutoMatched, TxNeedsReview, TxUnmatched, TxConfirmed, TxExternal,
}

// ParseTransactionStatus converts user input like "needs_review" into a
// known status.
func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	candidate := TransactionStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range TransactionStatuses {
		if candidate == known {
			return known, true
		}
	}
	return "", false
}

// Transaction is a single bank transaction row within a batch.
// Confidence is present only when a match exists or existed.
type Transaction struct {
	ID             uuid.UUID           `json:"id"`
	BatchID        uuid.UUID           `json:"batchId"`
	Date           time.Time           `json:"date"`
	Description    string              `json:"description"`
	Amount         decimal.Decimal     `json:"amount"`
	Status         TransactionStatus   `json:"status"`
	Confidence     decimal.NullDecimal `json:"confidence"` // 0-100
	MatchedInvoice *InvoiceSummary     `json:"matchedInvoice,omitempty"`
	Explanation    *MatchExplanation   `json:"explanation,omitempty"`
}

// InvoiceSummary is the slim invoice view embedded in a matched transaction.
type InvoiceSummary struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerName  string          `json:"customerName"`
	Amount        decimal.Decimal `json:"amount"`
}
