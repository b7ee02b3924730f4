package plangrant

import (
	"context"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/entitlements"
	"gorm.io/gorm"
)

type gormRecipientSource struct {
	db *gorm.DB
}

// NewRecipientSource lists grant recipients from the user settings table.
func NewRecipientSource(db *gorm.DB) RecipientSource {
	return &gormRecipientSource{db: db}
}

func (s *gormRecipientSource) ListGrantRecipients(ctx context.Context) ([]Recipient, error) {
	type row struct {
		UserID uint
		Plan   string
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Table("user_settings").
		Select("user_settings.user_id, user_settings.plan").
		Joins("JOIN users ON users.id = user_settings.user_id AND users.status = ?", "active").
		Where("user_settings.plan <> ?", string(entitlements.PlanFree)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Recipient, 0, len(rows))
	for _, r := range rows {
		out = append(out, Recipient{UserID: r.UserID, Plan: entitlements.NormalizePlan(r.Plan)})
	}
	return out, nil
}
