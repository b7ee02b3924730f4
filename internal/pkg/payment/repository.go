package payment

import (
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the purchase orchestrator.
type Repository interface {
	CreatePurchaseIfNotExists(p *models.Purchase) (bool, *models.Purchase, error)
	GetPurchaseByID(id string) (*models.Purchase, error)
	GetPurchaseByProviderOrderID(providerOrderID string) (*models.Purchase, error)
	SetProviderOrderID(id, providerOrderID string) error
	// TransitionStatus moves a purchase from one of fromStatuses to toStatus.
	// Returns false without error when the purchase was not in an eligible
	// state, which makes replays and races harmless.
	TransitionStatus(id string, fromStatuses []string, toStatus string, creditedAt *time.Time) (bool, error)
	ListPurchasesByUser(userID uint, limit int) ([]models.Purchase, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a purchase repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePurchaseIfNotExists(p *models.Purchase) (bool, *models.Purchase, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(p)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Purchase
	if err := r.db.Where("idempotency_key = ?", p.IdempotencyKey).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) GetPurchaseByID(id string) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPurchaseByProviderOrderID(providerOrderID string) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.Where("provider_order_id = ?", providerOrderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SetProviderOrderID(id, providerOrderID string) error {
	return r.db.Model(&models.Purchase{}).
		Where("id = ?", id).
		Update("provider_order_id", providerOrderID).Error
}

func (r *gormRepository) TransitionStatus(id string, fromStatuses []string, toStatus string, creditedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     toStatus,
		"updated_at": time.Now(),
	}
	if creditedAt != nil {
		updates["credited_at"] = creditedAt
	}
	res := r.db.Model(&models.Purchase{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ListPurchasesByUser(userID uint, limit int) ([]models.Purchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&purchases).Error
	return purchases, err
}
