package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
)

// MemoryGuard is an in-memory Guard used by tests.
type MemoryGuard struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent
	byID   map[uint]*models.WebhookEvent
	nextID uint
}

// NewMemoryGuard creates an empty in-memory dedup guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		events: make(map[string]*models.WebhookEvent),
		byID:   make(map[uint]*models.WebhookEvent),
		nextID: 1,
	}
}

func (g *MemoryGuard) Register(ctx context.Context, in EventInput) (bool, *models.WebhookEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	event := buildEvent(in)
	key := event.Provider + "|" + event.ProviderEventID
	if existing, ok := g.events[key]; ok {
		copied := *existing
		return false, &copied, nil
	}

	event.ID = g.nextID
	g.nextID++
	event.CreatedAt = time.Now()
	g.events[key] = event
	g.byID[event.ID] = event
	copied := *event
	return true, &copied, nil
}

func (g *MemoryGuard) MarkProcessed(ctx context.Context, eventID uint, processingError string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if event, ok := g.byID[eventID]; ok {
		now := time.Now()
		event.ProcessedAt = &now
		event.ProcessingError = processingError
	}
	return nil
}
