package ledgerarchive

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetObjectKey(t *testing.T) {
	cfg := &Config{BucketName: "marketlens-archive"}
	day := time.Date(2026, 2, 3, 15, 4, 5, 0, time.UTC)

	key := cfg.GetObjectKey(day, "abc-123")
	assert.Equal(t, "ledger/2026/02/03/abc-123.jsonl", key)

	// Non-UTC input maps to the UTC day.
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	late := time.Date(2026, 2, 4, 0, 30, 0, 0, berlin) // still Feb 3 UTC
	assert.Equal(t, "ledger/2026/02/03/abc-123.jsonl", cfg.GetObjectKey(late, "abc-123"))
}

func TestEncodeEntriesIsJSONLines(t *testing.T) {
	entries := []models.LedgerEntry{
		{ID: 1, UserID: 7, Delta: 6000, BalanceAfter: 6000, Reason: models.LedgerReasonPlanGrant, IdempotencyKey: "plan:7:2026-02"},
		{ID: 2, UserID: 7, Delta: -1200, BalanceAfter: 4800, Reason: models.LedgerReasonUsageDebit, IdempotencyKey: "usage:inv-1"},
	}

	body, err := EncodeEntries(entries)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimRight(body, "\n"), []byte("\n"))
	require.Len(t, lines, 2)

	var first models.LedgerEntry
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, int64(6000), first.Delta)

	var second models.LedgerEntry
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, int64(-1200), second.Delta)
	assert.Equal(t, int64(4800), second.BalanceAfter)
}

func TestLoadConfigValidatesWhenEnabled(t *testing.T) {
	t.Setenv("LEDGER_ARCHIVE_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("LEDGER_ARCHIVE_ENABLED", "false")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsEnabled())
}
