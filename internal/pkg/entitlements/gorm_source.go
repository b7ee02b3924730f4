package entitlements

import (
	"context"

	"gorm.io/gorm"

	"github.com/MarketLensHQ/MarketLens/app/models"
)

type gormSettingsSource struct {
	db *gorm.DB
}

// NewGormSettingsSource reads plan and AI flag from the user_settings table,
// creating default settings for users that have none yet.
func NewGormSettingsSource(db *gorm.DB) SettingsSource {
	return &gormSettingsSource{db: db}
}

func (s *gormSettingsSource) AISettings(ctx context.Context, userID uint) (Plan, bool, error) {
	us, err := models.GetOrCreateUserSettings(s.db.WithContext(ctx), userID)
	if err != nil {
		return PlanFree, false, err
	}
	return NormalizePlan(us.Plan), us.AIEnabled, nil
}
