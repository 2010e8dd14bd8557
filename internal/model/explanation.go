package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ExplanationFactor is one scored component of a match decision.
type ExplanationFactor struct {
	Factor string          `json:"factor"`
	Score  decimal.Decimal `json:"score"`
	Detail string          `json:"detail,omitempty"`
}

// MatchExplanation describes why the backend matched (or almost matched)
// a transaction to an invoice. The nested breakdown shape is
// authoritative; older backends send a flat shape with one score field
// per factor, which is normalized into the breakdown on decode.
type MatchExplanation struct {
	Summary   string              `json:"summary,omitempty"`
	Breakdown []ExplanationFactor `json:"breakdown,omitempty"`
}

// legacy flat factor names, in the order they are normalized.
const (
	factorAmount = "amount"
	factorDate   = "date"
	factorName   = "name"
)

// UnmarshalJSON accepts both the nested breakdown shape and the legacy
// flat shape. When both are present the breakdown wins.
func (e *MatchExplanation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Summary   string              `json:"summary"`
		Breakdown []ExplanationFactor `json:"breakdown"`

		AmountScore *decimal.Decimal `json:"amountScore"`
		DateScore   *decimal.Decimal `json:"dateScore"`
		NameScore   *decimal.Decimal `json:"nameScore"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	e.Summary = wire.Summary
	e.Breakdown = wire.Breakdown
	if len(e.Breakdown) > 0 {
		return nil
	}

	flat := []struct {
		factor string
		score  *decimal.Decimal
	}{
		{factorAmount, wire.AmountScore},
		{factorDate, wire.DateScore},
		{factorName, wire.NameScore},
	}
	for _, f := range flat {
		if f.score == nil {
			continue
		}
		e.Breakdown = append(e.Breakdown, ExplanationFactor{Factor: f.factor, Score: *f.score})
	}
	return nil
}
