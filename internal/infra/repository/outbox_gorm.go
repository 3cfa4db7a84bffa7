package repository

import (
	"context"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
	repo "github.com/yamadatarousan/ec-sub001/internal/repository"

	"gorm.io/gorm"
)

type OutboxGormRepository struct {
	db *gorm.DB
}

func NewOutboxGormRepository(db *gorm.DB) *OutboxGormRepository {
	return &OutboxGormRepository{db: db}
}

func (r *OutboxGormRepository) Enqueue(ctx context.Context, msg model.OutboxMessage) error {
	return r.db.WithContext(ctx).Create(&msg).Error
}

// PENDINGを古い順に取得
func (r *OutboxGormRepository) ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	var msgs []model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return []model.OutboxMessage{}, err
	}
	return msgs, nil
}

func (r *OutboxGormRepository) MarkSent(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", model.OutboxStatusSent)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// attemptsを+1して最後のエラーを記録。finalならFAILED。
func (r *OutboxGormRepository) MarkFailed(ctx context.Context, id string, lastError string, final bool) error {
	updates := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": lastError,
	}
	if final {
		updates["status"] = model.OutboxStatusFailed
	}

	res := r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(updates)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
