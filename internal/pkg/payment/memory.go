package payment

import (
	"sync"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"gorm.io/gorm"
)

// MemoryRepository is an in-memory Repository used by tests.
type MemoryRepository struct {
	mu        sync.Mutex
	purchases map[string]*models.Purchase
	byKey     map[string]string
}

// NewMemoryRepository creates an empty in-memory purchase repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		purchases: make(map[string]*models.Purchase),
		byKey:     make(map[string]string),
	}
}

func (r *MemoryRepository) CreatePurchaseIfNotExists(p *models.Purchase) (bool, *models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[p.IdempotencyKey]; ok {
		copied := *r.purchases[id]
		return false, &copied, nil
	}
	stored := *p
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.purchases[stored.ID] = &stored
	r.byKey[stored.IdempotencyKey] = stored.ID
	copied := stored
	return true, &copied, nil
}

func (r *MemoryRepository) GetPurchaseByID(id string) (*models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *MemoryRepository) GetPurchaseByProviderOrderID(providerOrderID string) (*models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.purchases {
		if p.ProviderOrderID == providerOrderID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryRepository) SetProviderOrderID(id, providerOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.purchases[id]; ok {
		p.ProviderOrderID = providerOrderID
	}
	return nil
}

func (r *MemoryRepository) TransitionStatus(id string, fromStatuses []string, toStatus string, creditedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.purchases[id]
	if !ok {
		return false, nil
	}
	for _, from := range fromStatuses {
		if p.Status == from {
			p.Status = toStatus
			p.UpdatedAt = time.Now()
			if creditedAt != nil {
				p.CreditedAt = creditedAt
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) ListPurchasesByUser(userID uint, limit int) ([]models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Purchase
	for _, p := range r.purchases {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
