package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is a candidate match returned by the invoice search endpoint.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	DueDate       time.Time       `json:"dueDate"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// Summary returns the slim view embedded in a matched transaction.
func (i Invoice) Summary() InvoiceSummary {
	return InvoiceSummary{
		ID:            i.ID,
		InvoiceNumber: i.InvoiceNumber,
		CustomerName:  i.CustomerName,
		Amount:        i.Amount,
	}
}
