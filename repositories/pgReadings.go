package repositories

import (
	"context"
	"errors"

	"smartbin-server/db"
	"smartbin-server/entities"

	"gorm.io/gorm"
)

type readingPgRepository struct {
	db db.Database
}

func NewReadingPgRepository(database db.Database) ReadingRepository {
	return &readingPgRepository{db: database}
}

func (r *readingPgRepository) Create(ctx context.Context, reading *entities.Reading) error {
	return r.db.GetDB().WithContext(ctx).Create(reading).Error
}

func (r *readingPgRepository) GetLatestByDustbinID(ctx context.Context, dustbinID string) (*entities.Reading, error) {
	var reading entities.Reading
	err := r.db.GetDB().WithContext(ctx).
		Where("dustbin_id = ?", dustbinID).
		Order("created_at DESC").
		First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *readingPgRepository) GetByDustbinID(ctx context.Context, dustbinID string, limit int) ([]entities.Reading, error) {
	var readings []entities.Reading
	q := r.db.GetDB().WithContext(ctx).
		Where("dustbin_id = ?", dustbinID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&readings).Error
	return readings, err
}
