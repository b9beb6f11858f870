package usecases

import (
	"context"
	"errors"

	"smartbin-server/entities"
	"smartbin-server/repositories"
)

// DustbinCredentials carries the secrets minted at registration. They are
// shown exactly once; afterwards the store never re-exposes them.
type DustbinCredentials struct {
	APIKey       string `json:"api_key"`
	DeviceSecret string `json:"device_secret"`
}

// DustbinStatus is a bin joined with its latest accepted reading, the shape
// the dashboard list and map consume.
type DustbinStatus struct {
	entities.Dustbin
	FillPercentage *float64 `json:"fill_percentage,omitempty"`
	LastReadingAt  *string  `json:"last_reading_at,omitempty"`
}

type DustbinUseCase struct {
	DustbinRepo repositories.DustbinRepository
	ReadingRepo repositories.ReadingRepository
	LogRepo     repositories.DeviceLogRepository
}

func NewDustbinUseCase(dustbinRepo repositories.DustbinRepository, readingRepo repositories.ReadingRepository, logRepo repositories.DeviceLogRepository) *DustbinUseCase {
	return &DustbinUseCase{
		DustbinRepo: dustbinRepo,
		ReadingRepo: readingRepo,
		LogRepo:     logRepo,
	}
}

// CreateDustbin registers a bin and returns its one-time credentials.
func (uc *DustbinUseCase) CreateDustbin(ctx context.Context, bin *entities.Dustbin) (*DustbinCredentials, error) {
	if bin.DustbinCode == "" {
		return nil, errors.New("dustbin_code is required")
	}
	if existing, err := uc.DustbinRepo.GetByCode(ctx, bin.DustbinCode); err == nil && existing != nil {
		return nil, errors.New("dustbin_code already registered")
	}
	if err := uc.DustbinRepo.Create(ctx, bin); err != nil {
		return nil, err
	}
	return &DustbinCredentials{APIKey: bin.APIKey, DeviceSecret: bin.DeviceSecret}, nil
}

// GetDustbin retrieves a bin by ID.
func (uc *DustbinUseCase) GetDustbin(ctx context.Context, id string) (*entities.Dustbin, error) {
	if id == "" {
		return nil, errors.New("dustbin id is required")
	}
	return uc.DustbinRepo.GetByID(ctx, id)
}

// GetDustbinStatuses returns every bin with its latest fill level.
func (uc *DustbinUseCase) GetDustbinStatuses(ctx context.Context) ([]DustbinStatus, error) {
	bins, err := uc.DustbinRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make([]DustbinStatus, 0, len(bins))
	for _, bin := range bins {
		status := DustbinStatus{Dustbin: bin}
		latest, err := uc.ReadingRepo.GetLatestByDustbinID(ctx, bin.ID)
		if err == nil {
			status.FillPercentage = &latest.FillPercentage
			at := latest.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
			status.LastReadingAt = &at
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// UpdateDustbin updates location metadata. Credentials are write-once and
// never touched here.
func (uc *DustbinUseCase) UpdateDustbin(ctx context.Context, bin *entities.Dustbin) error {
	if bin.ID == "" {
		return errors.New("dustbin id is required")
	}
	existing, err := uc.DustbinRepo.GetByID(ctx, bin.ID)
	if err != nil {
		return errors.New("dustbin not found")
	}

	if bin.LocationName != "" {
		existing.LocationName = bin.LocationName
	}
	if bin.Latitude != 0 {
		existing.Latitude = bin.Latitude
	}
	if bin.Longitude != 0 {
		existing.Longitude = bin.Longitude
	}
	if bin.InstitutionID != "" {
		existing.InstitutionID = bin.InstitutionID
	}
	return uc.DustbinRepo.Update(ctx, existing)
}

// DeleteDustbin removes a bin registration.
func (uc *DustbinUseCase) DeleteDustbin(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("dustbin id is required")
	}
	if _, err := uc.DustbinRepo.GetByID(ctx, id); err != nil {
		return errors.New("dustbin not found")
	}
	return uc.DustbinRepo.Delete(ctx, id)
}

// GetReadings returns a bin's reading history, newest first.
func (uc *DustbinUseCase) GetReadings(ctx context.Context, dustbinID string, limit int) ([]entities.Reading, error) {
	if dustbinID == "" {
		return nil, errors.New("dustbin id is required")
	}
	if _, err := uc.DustbinRepo.GetByID(ctx, dustbinID); err != nil {
		return nil, err
	}
	return uc.ReadingRepo.GetByDustbinID(ctx, dustbinID, limit)
}

// GetDeviceLogs returns a bin's audit trail, newest first.
func (uc *DustbinUseCase) GetDeviceLogs(ctx context.Context, dustbinID string, limit int) ([]entities.DeviceLog, error) {
	if dustbinID == "" {
		return nil, errors.New("dustbin id is required")
	}
	if _, err := uc.DustbinRepo.GetByID(ctx, dustbinID); err != nil {
		return nil, err
	}
	return uc.LogRepo.GetByDustbinID(ctx, dustbinID, limit)
}
