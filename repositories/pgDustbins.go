package repositories

import (
	"context"
	"errors"
	"time"

	"smartbin-server/db"
	"smartbin-server/entities"

	"gorm.io/gorm"
)

type dustbinPgRepository struct {
	db db.Database
}

func NewDustbinPgRepository(database db.Database) DustbinRepository {
	return &dustbinPgRepository{db: database}
}

func (r *dustbinPgRepository) Create(ctx context.Context, bin *entities.Dustbin) error {
	return r.db.GetDB().WithContext(ctx).Create(bin).Error
}

func (r *dustbinPgRepository) GetByID(ctx context.Context, id string) (*entities.Dustbin, error) {
	var bin entities.Dustbin
	err := r.db.GetDB().WithContext(ctx).Where("id = ?", id).First(&bin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bin, nil
}

func (r *dustbinPgRepository) GetByCode(ctx context.Context, code string) (*entities.Dustbin, error) {
	var bin entities.Dustbin
	err := r.db.GetDB().WithContext(ctx).Where("dustbin_code = ?", code).First(&bin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bin, nil
}

func (r *dustbinPgRepository) GetAll(ctx context.Context) ([]entities.Dustbin, error) {
	var bins []entities.Dustbin
	err := r.db.GetDB().WithContext(ctx).Order("dustbin_code").Find(&bins).Error
	return bins, err
}

func (r *dustbinPgRepository) Update(ctx context.Context, bin *entities.Dustbin) error {
	return r.db.GetDB().WithContext(ctx).Save(bin).Error
}

// UpdateLiveness touches only the gateway-owned fields; firmware_version is
// left alone when the report carried none.
func (r *dustbinPgRepository) UpdateLiveness(ctx context.Context, id string, seenAt time.Time, firmwareVersion string) error {
	fields := map[string]interface{}{"last_seen": seenAt}
	if firmwareVersion != "" {
		fields["firmware_version"] = firmwareVersion
	}
	return r.db.GetDB().WithContext(ctx).Model(&entities.Dustbin{}).Where("id = ?", id).Updates(fields).Error
}

func (r *dustbinPgRepository) Delete(ctx context.Context, id string) error {
	return r.db.GetDB().WithContext(ctx).Where("id = ?", id).Delete(&entities.Dustbin{}).Error
}
