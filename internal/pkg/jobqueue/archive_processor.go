package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// LedgerExporter is the archive surface the processor needs.
type LedgerExporter interface {
	ExportDay(ctx context.Context, day time.Time) (objectKey string, count int, err error)
}

// ArchiveProcessor handles ledger_archive jobs by exporting one UTC day of
// ledger entries to the archive bucket.
type ArchiveProcessor struct {
	exporter LedgerExporter
}

func NewArchiveProcessor(exporter LedgerExporter) *ArchiveProcessor {
	return &ArchiveProcessor{exporter: exporter}
}

func (p *ArchiveProcessor) Handle(ctx context.Context, job *Job) error {
	payload, err := LedgerArchiveJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid ledger archive payload: %w", err)
	}

	day, err := time.ParseInLocation("2006-01-02", payload.Day, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid archive day %q: %w", payload.Day, err)
	}

	objectKey, count, err := p.exporter.ExportDay(ctx, day)
	if err != nil {
		return fmt.Errorf("ledger export for %s failed: %w", payload.Day, err)
	}
	if count > 0 {
		log.Infof("[JobQueue] Archived %d ledger entries for %s as %s", count, payload.Day, objectKey)
	}
	return nil
}

// EnqueueLedgerArchive schedules the export of one UTC day.
func EnqueueLedgerArchive(q *Queue, day time.Time) (*Job, error) {
	payload := LedgerArchiveJobPayload{Day: day.UTC().Format("2006-01-02")}
	return q.EnqueueJob(JobTypeLedgerArchive, payload.ToMap())
}
