package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplanation_NestedShape(t *testing.T) {
	raw := `{
		"summary": "amount and date aligned",
		"breakdown": [
			{"factor": "amount", "score": 100, "detail": "exact"},
			{"factor": "date", "score": 80}
		]
	}`

	var e MatchExplanation
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	assert.Equal(t, "amount and date aligned", e.Summary)
	require.Len(t, e.Breakdown, 2)
	assert.Equal(t, "amount", e.Breakdown[0].Factor)
	assert.Equal(t, "exact", e.Breakdown[0].Detail)
	assert.True(t, e.Breakdown[1].Score.Equal(dec("80")))
}

func TestExplanation_LegacyFlatShape(t *testing.T) {
	raw := `{"amountScore": 95, "nameScore": 60.5}`

	var e MatchExplanation
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	require.Len(t, e.Breakdown, 2, "absent factors are skipped")
	assert.Equal(t, "amount", e.Breakdown[0].Factor)
	assert.True(t, e.Breakdown[0].Score.Equal(dec("95")))
	assert.Equal(t, "name", e.Breakdown[1].Factor)
	assert.True(t, e.Breakdown[1].Score.Equal(dec("60.5")))
}

func TestExplanation_BreakdownWinsOverFlat(t *testing.T) {
	raw := `{
		"amountScore": 10,
		"breakdown": [{"factor": "amount", "score": 99}]
	}`

	var e MatchExplanation
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	require.Len(t, e.Breakdown, 1)
	assert.True(t, e.Breakdown[0].Score.Equal(dec("99")))
}

func TestParseTransactionStatus(t *testing.T) {
	tests := []struct {
		in   string
		want TransactionStatus
		ok   bool
	}{
		{"AUTO_MATCHED", TxAutoMatched, true},
		{"needs_review", TxNeedsReview, true},
		{" unmatched ", TxUnmatched, true},
		{"confirmed", TxConfirmed, true},
		{"external", TxExternal, true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTransactionStatus(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
