package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tontine-backend/models"
)

type GormAlertStore struct {
	db *gorm.DB
}

func NewGormAlertStore(db *gorm.DB) *GormAlertStore {
	return &GormAlertStore{db: db}
}

func (s *GormAlertStore) Append(ctx context.Context, alert *models.Alert) error {
	return s.db.WithContext(ctx).Create(alert).Error
}

func (s *GormAlertStore) ByGroups(ctx context.Context, groupIDs []uuid.UUID, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	if len(groupIDs) == 0 {
		return alerts, nil
	}
	err := s.db.WithContext(ctx).
		Where("group_id IN ?", groupIDs).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}
