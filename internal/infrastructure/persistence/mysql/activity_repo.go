package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建审计日志仓储
func NewActivityRepository(db *gorm.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, l *activity.ActivityLog) error {
	model := &ActivityLogModel{
		Actor:       l.Actor,
		Action:      l.Action,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入审计日志失败")
	}
	l.ID = model.ID
	return nil
}

func (r *activityRepository) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]*activity.ActivityLog, error) {
	var models []ActivityLogModel
	if err := dbFromContext(ctx, r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询审计日志失败")
	}
	out := make([]*activity.ActivityLog, len(models))
	for i, m := range models {
		out[i] = &activity.ActivityLog{
			ID:          m.ID,
			Actor:       m.Actor,
			Action:      m.Action,
			EntityType:  m.EntityType,
			EntityID:    m.EntityID,
			Description: m.Description,
			CreatedAt:   m.CreatedAt,
		}
	}
	return out, nil
}
