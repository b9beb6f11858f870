package repositories

import (
	"context"
	"errors"
	"time"

	"smartbin-server/entities"
)

// ErrNotFound is returned for missing rows so callers can tell an unknown
// record from a store failure.
var ErrNotFound = errors.New("record not found")

type DustbinRepository interface {
	Create(ctx context.Context, bin *entities.Dustbin) error
	GetByID(ctx context.Context, id string) (*entities.Dustbin, error)
	GetByCode(ctx context.Context, code string) (*entities.Dustbin, error)
	GetAll(ctx context.Context) ([]entities.Dustbin, error)
	Update(ctx context.Context, bin *entities.Dustbin) error
	UpdateLiveness(ctx context.Context, id string, seenAt time.Time, firmwareVersion string) error
	Delete(ctx context.Context, id string) error
}

type ReadingRepository interface {
	Create(ctx context.Context, reading *entities.Reading) error
	GetLatestByDustbinID(ctx context.Context, dustbinID string) (*entities.Reading, error)
	GetByDustbinID(ctx context.Context, dustbinID string, limit int) ([]entities.Reading, error)
}

type DeviceLogRepository interface {
	Create(ctx context.Context, logEntry *entities.DeviceLog) error
	GetByDustbinID(ctx context.Context, dustbinID string, limit int) ([]entities.DeviceLog, error)
}
