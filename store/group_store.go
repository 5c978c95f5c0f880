package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tontine-backend/models"
)

const inviteCodeCacheTTL = 24 * time.Hour

// GormGroupStore persists group records in Postgres, with an optional
// Redis cache in front of invite-code lookups.
type GormGroupStore struct {
	db    *gorm.DB
	cache *redis.Client // nil means no cache
}

func NewGormGroupStore(db *gorm.DB, cache *redis.Client) *GormGroupStore {
	return &GormGroupStore{db: db, cache: cache}
}

func (s *GormGroupStore) Create(ctx context.Context, group *models.Group) error {
	return s.db.WithContext(ctx).Create(group).Error
}

func (s *GormGroupStore) Read(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// WriteIfUnchanged is a single guarded UPDATE: the WHERE clause carries
// both id and the version the caller read, so two concurrent writers can
// never both commit against the same snapshot.
func (s *GormGroupStore) WriteIfUnchanged(ctx context.Context, group *models.Group) error {
	res := s.db.WithContext(ctx).Model(&models.Group{}).
		Where("id = ? AND version = ?", group.ID, group.Version).
		Updates(map[string]interface{}{
			"name":             group.Name,
			"members":          group.Members,
			"turn_order":       group.TurnOrder,
			"reception_status": group.ReceptionStatus,
			"status":           group.Status,
			"version":          group.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", group.ID).Count(&count)
		if count == 0 {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}
	group.Version++
	return nil
}

func (s *GormGroupStore) Delete(ctx context.Context, id uuid.UUID) error {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Group{}, "id = ?", id).Error; err != nil {
		return err
	}
	s.invalidateCode(ctx, group.InviteCode)
	return nil
}

func (s *GormGroupStore) ByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	if id, ok := s.cachedCode(ctx, code); ok {
		group, err := s.Read(ctx, id)
		if err == nil {
			return group, nil
		}
		// Stale cache entry; fall through to the database.
		s.invalidateCode(ctx, code)
	}

	var group models.Group
	err := s.db.WithContext(ctx).First(&group, "invite_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.cacheCode(ctx, code, group.ID)
	return &group, nil
}

func (s *GormGroupStore) ByMember(ctx context.Context, memberID string) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Where("? = ANY(members)", memberID).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func codeKey(code string) string { return "invite_code:" + code }

func (s *GormGroupStore) cachedCode(ctx context.Context, code string) (uuid.UUID, bool) {
	if s.cache == nil {
		return uuid.Nil, false
	}
	val, err := s.cache.Get(ctx, codeKey(code)).Result()
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *GormGroupStore) cacheCode(ctx context.Context, code string, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, codeKey(code), id.String(), inviteCodeCacheTTL).Err(); err != nil {
		log.Printf("⚠️  Failed to cache invite code: %v", err)
	}
}

func (s *GormGroupStore) invalidateCode(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, codeKey(code)).Err(); err != nil {
		log.Printf("⚠️  Failed to drop invite code from cache: %v", err)
	}
}
