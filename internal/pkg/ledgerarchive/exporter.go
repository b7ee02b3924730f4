package ledgerarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Uploader stores one export object; satisfied by *Client.
type Uploader interface {
	Upload(ctx context.Context, objectKey string, body []byte) error
}

// Exporter writes daily ledger snapshots to the archive bucket as JSON
// lines. The ledger itself stays in the database; the export is an audit
// copy, never a source for balance math.
type Exporter struct {
	db       *gorm.DB
	uploader Uploader
	config   *Config
}

// NewExporter creates a ledger archive exporter.
func NewExporter(db *gorm.DB, uploader Uploader, cfg *Config) *Exporter {
	return &Exporter{db: db, uploader: uploader, config: cfg}
}

// ExportDay uploads every ledger entry created on the given UTC day.
// Returns the object key and entry count.
func (e *Exporter) ExportDay(ctx context.Context, day time.Time) (string, int, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var entries []models.LedgerEntry
	err := e.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return "", 0, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	if len(entries) == 0 {
		log.Infof("[LedgerArchive] No entries for %s, skipping export", start.Format("2006-01-02"))
		return "", 0, nil
	}

	body, err := EncodeEntries(entries)
	if err != nil {
		return "", 0, err
	}

	objectKey := e.config.GetObjectKey(start, uuid.New().String())
	if err := e.uploader.Upload(ctx, objectKey, body); err != nil {
		return "", 0, err
	}
	return objectKey, len(entries), nil
}

// EncodeEntries renders ledger entries as JSON lines, one entry per line.
func EncodeEntries(entries []models.LedgerEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return nil, fmt.Errorf("failed to encode ledger entry %d: %w", entries[i].ID, err)
		}
	}
	return buf.Bytes(), nil
}
