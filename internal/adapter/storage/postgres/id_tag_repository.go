package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type IdTagRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewIdTagRepository(db *gorm.DB, log *zap.Logger) ports.IdTagRepository {
	return &IdTagRepository{db: db, log: log}
}

func (r *IdTagRepository) Save(ctx context.Context, tag *domain.IdTag) error {
	result := r.db.WithContext(ctx).Create(tag)
	if result.Error != nil {
		r.log.Error("failed to save id tag",
			zap.String("id_tag", tag.IdTag),
			zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (r *IdTagRepository) FindByTag(ctx context.Context, tag string) (*domain.IdTag, error) {
	var t domain.IdTag
	result := r.db.WithContext(ctx).First(&t, "id_tag = ?", tag)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("id tag", "id_tag", tag)
		}
		return nil, result.Error
	}
	return &t, nil
}

func (r *IdTagRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.IdTag, error) {
	if limit <= 0 {
		limit = 100
	}
	var tags []domain.IdTag
	result := r.db.WithContext(ctx).
		Order("id_tag").
		Limit(limit).
		Offset(offset).
		Find(&tags)
	if result.Error != nil {
		return nil, result.Error
	}
	return tags, nil
}

func (r *IdTagRepository) Update(ctx context.Context, tag *domain.IdTag) error {
	return r.db.WithContext(ctx).Save(tag).Error
}

func (r *IdTagRepository) Delete(ctx context.Context, tag string) error {
	result := r.db.WithContext(ctx).Delete(&domain.IdTag{}, "id_tag = ?", tag)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("id tag", "id_tag", tag)
	}
	return nil
}

func (r *IdTagRepository) TouchLastUsed(ctx context.Context, tag string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.IdTag{}).
		Where("id_tag = ?", tag).
		Update("last_used_at", at).Error
}
