package statement

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecheck(t *testing.T) {
	csv := strings.Join([]string{
		"date,description,amount",
		"2026-04-01,STRIPE PAYOUT,1500.00",
		"2026-04-03,WIRE ACME CORP,-250.50",
		"2026-04-02,UNKNOWN DEPOSIT,100.00",
	}, "\n")

	sum, err := Precheck(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Rows)
	assert.True(t, sum.Total.Equal(decimal.RequireFromString("1349.50")))
	assert.Equal(t, "2026-04-01", sum.From.Format("2006-01-02"))
	assert.Equal(t, "2026-04-03", sum.To.Format("2006-01-02"))
}

func TestPrecheck_ColumnOrderIrrelevant(t *testing.T) {
	csv := strings.Join([]string{
		"Amount,Date,Description",
		"42.00,04/01/2026,STRIPE PAYOUT",
	}, "\n")

	sum, err := Precheck(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Rows)
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(42)))
}

func TestPrecheck_MissingColumn(t *testing.T) {
	csv := "date,amount\n2026-04-01,42.00\n"

	_, err := Precheck(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing a "description" column`)
}

func TestPrecheck_BadRow(t *testing.T) {
	csv := strings.Join([]string{
		"date,description,amount",
		"2026-04-01,STRIPE PAYOUT,1500.00",
		"someday,WIRE ACME CORP,-250.50",
	}, "\n")

	_, err := Precheck(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestPrecheck_Empty(t *testing.T) {
	_, err := Precheck(strings.NewReader("date,description,amount\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transaction rows")
}
