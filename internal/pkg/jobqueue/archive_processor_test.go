package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	days []time.Time
	key  string
}

func (f *fakeExporter) ExportDay(ctx context.Context, day time.Time) (string, int, error) {
	f.days = append(f.days, day)
	return f.key, 3, nil
}

func TestArchiveProcessorExportsParsedDay(t *testing.T) {
	exp := &fakeExporter{key: "ledger/2026/08/30/abc.jsonl"}
	p := NewArchiveProcessor(exp)

	payload := LedgerArchiveJobPayload{Day: "2026-08-30"}
	job := &Job{ID: "j1", Type: JobTypeLedgerArchive, Payload: payload.ToMap()}

	err := p.Handle(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, exp.days, 1)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), exp.days[0])
}

func TestArchiveProcessorRejectsBadDay(t *testing.T) {
	p := NewArchiveProcessor(&fakeExporter{})

	job := &Job{ID: "j2", Type: JobTypeLedgerArchive, Payload: map[string]interface{}{"day": "30.08.2026"}}
	err := p.Handle(context.Background(), job)
	assert.Error(t, err)
}

func TestLedgerArchivePayloadRoundTrip(t *testing.T) {
	payload := LedgerArchiveJobPayload{Day: "2026-01-02"}
	decoded, err := LedgerArchiveJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload.Day, decoded.Day)
}
