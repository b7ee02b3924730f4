package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventInput is one incoming provider event before dedup.
type EventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// Guard deduplicates at-least-once event deliveries. Register answers
// "have we seen this event before" with the stored row either way; the
// unique (provider, provider_event_id) pair is the dedup scope.
type Guard interface {
	// Register stores the event if unseen. Returns created=false with the
	// previously stored row for a redelivery.
	Register(ctx context.Context, in EventInput) (created bool, event *models.WebhookEvent, err error)

	// MarkProcessed stamps the event with the processing outcome. An empty
	// error string means success.
	MarkProcessed(ctx context.Context, eventID uint, processingError string) error
}

type gormGuard struct {
	db *gorm.DB
}

// NewGuard creates a GORM-backed event dedup guard.
func NewGuard(db *gorm.DB) Guard {
	return &gormGuard{db: db}
}

func (g *gormGuard) Register(ctx context.Context, in EventInput) (bool, *models.WebhookEvent, error) {
	event := buildEvent(in)

	tx := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := g.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (g *gormGuard) MarkProcessed(ctx context.Context, eventID uint, processingError string) error {
	now := time.Now()
	return g.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}

// buildEvent normalizes the input. Providers without stable event ids get a
// payload-hash id so identical redeliveries still dedup.
func buildEvent(in EventInput) *models.WebhookEvent {
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}
	return &models.WebhookEvent{
		Provider:        strings.ToLower(strings.TrimSpace(in.Provider)),
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
}
