package repositories

import (
	"context"

	"smartbin-server/db"
	"smartbin-server/entities"
)

type deviceLogPgRepository struct {
	db db.Database
}

func NewDeviceLogPgRepository(database db.Database) DeviceLogRepository {
	return &deviceLogPgRepository{db: database}
}

func (r *deviceLogPgRepository) Create(ctx context.Context, logEntry *entities.DeviceLog) error {
	return r.db.GetDB().WithContext(ctx).Create(logEntry).Error
}

func (r *deviceLogPgRepository) GetByDustbinID(ctx context.Context, dustbinID string, limit int) ([]entities.DeviceLog, error) {
	var logs []entities.DeviceLog
	q := r.db.GetDB().WithContext(ctx).
		Where("dustbin_id = ?", dustbinID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}
