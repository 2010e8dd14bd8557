// Package statement prechecks a bank CSV export before it is uploaded.
// Parsing and matching happen server-side; the precheck only catches
// the cheap local mistakes, a wrong file, an empty export, rows the
// backend is guaranteed to reject.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Required header columns, matched case-insensitively by name so column
// order does not matter.
const (
	colDate   = "date"
	colDesc   = "description"
	colAmount = "amount"
)

// dateFormats lists the layouts bank exports are seen to use.
var dateFormats = []string{"2006-01-02", "01/02/2006"}

// Summary describes a statement file that passed the precheck.
type Summary struct {
	Rows  int
	Total decimal.Decimal
	From  time.Time
	To    time.Time
}

// PrecheckFile runs Precheck against a file on disk.
func PrecheckFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	return Precheck(f)
}

// Precheck parses a statement CSV and summarizes it. It fails when the
// header is missing a required column, any row has an unparseable date
// or amount, or the file contains no transaction rows.
func Precheck(r io.Reader) (Summary, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("reading statement header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Summary{}, fmt.Errorf("row %d: %w", row, err)
		}

		date, err := parseDate(rec[cols[colDate]])
		if err != nil {
			return Summary{}, fmt.Errorf("row %d: %w", row, err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(rec[cols[colAmount]]))
		if err != nil {
			return Summary{}, fmt.Errorf("row %d: parsing amount %q: %w", row, rec[cols[colAmount]], err)
		}

		sum.Rows++
		sum.Total = sum.Total.Add(amount)
		if sum.From.IsZero() || date.Before(sum.From) {
			sum.From = date
		}
		if date.After(sum.To) {
			sum.To = date
		}
	}

	if sum.Rows == 0 {
		return Summary{}, fmt.Errorf("statement has no transaction rows")
	}
	return sum, nil
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colDate, colDesc, colAmount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("statement header is missing a %q column", required)
		}
	}
	return cols, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", raw)
}
