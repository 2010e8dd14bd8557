package auditlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(action, outcome string) Entry {
	return Entry{
		Timestamp:     time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC),
		Action:        action,
		TransactionID: "0b8e9c52-4f1d-4a9e-9d5a-1f2e3c4d5e6f",
		BatchID:       "7a1b2c3d-0000-4111-8222-333344445555",
		AuditLogID:    "9f8e7d6c-5b4a-4391-8201-abcdefabcdef",
		Outcome:       outcome,
		Details:       "confirmed via CLI",
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	err := Append(dir, []Entry{entry("confirm", OutcomeOK)})
	require.NoError(t, err)
	err = Append(dir, []Entry{entry("reject", OutcomeError)})
	require.NoError(t, err)

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "confirm", entries[0].Action)
	assert.Equal(t, OutcomeOK, entries[0].Outcome)
	assert.Equal(t, "reject", entries[1].Action)
	assert.True(t, entries[0].Timestamp.Equal(time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)))
}

func TestHeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Append(dir, []Entry{entry("confirm", OutcomeOK)}))
	require.NoError(t, Append(dir, []Entry{entry("match", OutcomeOK)}))

	data, err := os.ReadFile(filepath.Join(dir, "actions.csv"))
	require.NoError(t, err)

	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 3, lines, "header plus two entries")
	assert.Contains(t, string(data), Header)
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnmarshal_WrongFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"only", "four", "fields", "here"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 7 fields")
}
