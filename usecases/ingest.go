package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"smartbin-server/entities"
	"smartbin-server/protocol"
	"smartbin-server/repositories"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Rejection reasons. Handlers map these to HTTP statuses; anything else
// coming out of Ingest is a store failure worth a 500.
var (
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrBadTimestamp     = errors.New("invalid timestamp")
	ErrStaleTimestamp   = errors.New("timestamp outside freshness window")
	ErrUnknownDevice    = errors.New("device not found")
	ErrReplayDetected   = errors.New("replay detected")
	ErrInvalidSignature = errors.New("invalid signature")
)

const (
	DefaultFreshnessWindow = 300 * time.Second
	DefaultStoreTimeout    = 5 * time.Second

	// Anomaly detection: a jump bigger than this between readings closer
	// together than anomalyWindow gets flagged for review.
	anomalyWindow = 60 * time.Second
	anomalyJump   = 50.0
)

// NonceRegistry is the replay set behind the pipeline. Process-local today;
// a shared deployment swaps in a distributed set behind the same method.
type NonceRegistry interface {
	CheckAndRecord(nonce string) bool
}

// DeviceRateLimiter admits or sheds a device's request before any
// cryptographic work happens.
type DeviceRateLimiter interface {
	Allow(dustbinCode string) bool
}

// ReadingPublisher receives each accepted reading, e.g. for a live
// dashboard feed. Publishing is best-effort and must not block ingestion.
type ReadingPublisher interface {
	PublishReading(dustbinCode string, fill float64, flagged bool, at time.Time)
}

// IngestResult is what an accepted report produces.
type IngestResult struct {
	FillPercentage   float64
	FlaggedForReview bool
	// Warning is set when the report was accepted but the audit trail
	// could not be written.
	Warning string
}

type IngestConfig struct {
	FreshnessWindow time.Duration
	StoreTimeout    time.Duration
}

// IngestUseCase runs the validation pipeline for one telemetry report:
// rate limit, freshness, device lookup, replay, signature, anomaly check,
// then persistence. Each step is terminal on failure; devices retry with a
// fresh nonce and timestamp.
type IngestUseCase struct {
	bins      repositories.DustbinRepository
	readings  repositories.ReadingRepository
	logs      repositories.DeviceLogRepository
	nonces    NonceRegistry
	limiter   DeviceRateLimiter
	publisher ReadingPublisher
	logger    *zap.Logger

	freshnessWindow time.Duration
	storeTimeout    time.Duration
	nowFn           func() time.Time
}

func NewIngestUseCase(
	bins repositories.DustbinRepository,
	readings repositories.ReadingRepository,
	logs repositories.DeviceLogRepository,
	nonces NonceRegistry,
	limiter DeviceRateLimiter,
	cfg IngestConfig,
	logger *zap.Logger,
) *IngestUseCase {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		bins:            bins,
		readings:        readings,
		logs:            logs,
		nonces:          nonces,
		limiter:         limiter,
		logger:          logger,
		freshnessWindow: cfg.FreshnessWindow,
		storeTimeout:    cfg.StoreTimeout,
		nowFn:           time.Now,
	}
}

// SetPublisher attaches a live feed for accepted readings.
func (uc *IngestUseCase) SetPublisher(p ReadingPublisher) {
	uc.publisher = p
}

// Ingest runs the pipeline for one report. The store context is detached
// from the caller so a device dropping the connection mid-request cannot
// leave a nonce recorded without its reading persisted.
func (uc *IngestUseCase) Ingest(report protocol.TelemetryReport) (*IngestResult, error) {
	if !uc.limiter.Allow(report.DustbinCode) {
		return nil, ErrRateLimited
	}

	reportedAt, err := time.Parse(time.RFC3339, report.Timestamp)
	if err != nil {
		return nil, ErrBadTimestamp
	}
	now := uc.nowFn()
	if drift := now.Sub(reportedAt); drift > uc.freshnessWindow || drift < -uc.freshnessWindow {
		return nil, ErrStaleTimestamp
	}

	ctx, cancel := context.WithTimeout(context.Background(), uc.storeTimeout)
	defer cancel()

	bin, err := uc.bins.GetByCode(ctx, report.DustbinCode)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnknownDevice
	}
	if err != nil {
		return nil, fmt.Errorf("device lookup: %w", err)
	}

	if !uc.nonces.CheckAndRecord(report.Nonce) {
		uc.logger.Warn("replayed nonce rejected",
			zap.String("dustbin_code", report.DustbinCode),
			zap.String("nonce", report.Nonce))
		return nil, ErrReplayDetected
	}

	if bin.DeviceSecret == "" {
		uc.logger.Warn("no device secret provisioned, verifying against api key",
			zap.String("dustbin_code", bin.DustbinCode))
	}
	if !protocol.Verify(report.Canonical(), report.Signature, bin.HMACKey()) {
		if logErr := uc.writeAuditLog(ctx, bin.ID, report, reportedAt, false, nil); logErr != nil {
			uc.logger.Error("audit log write failed for rejected report",
				zap.String("dustbin_code", bin.DustbinCode), zap.Error(logErr))
		}
		return nil, ErrInvalidSignature
	}

	fill := clampFill((report.Sensor1Value + report.Sensor2Value) / 2)
	flagged := uc.detectAnomaly(ctx, bin.ID, fill, now)

	reading := &entities.Reading{
		DustbinID:      bin.ID,
		FillPercentage: fill,
		Sensor1Value:   report.Sensor1Value,
		Sensor2Value:   report.Sensor2Value,
	}
	if err := uc.readings.Create(ctx, reading); err != nil {
		return nil, fmt.Errorf("insert reading: %w", err)
	}

	result := &IngestResult{FillPercentage: fill, FlaggedForReview: flagged}

	if err := uc.writeAuditLog(ctx, bin.ID, report, reportedAt, true, result); err != nil {
		uc.logger.Error("audit log write failed for accepted report",
			zap.String("dustbin_code", bin.DustbinCode), zap.Error(err))
		result.Warning = "audit log unavailable"
	}

	if err := uc.bins.UpdateLiveness(ctx, bin.ID, now, report.FirmwareVersion); err != nil {
		uc.logger.Error("device liveness update failed",
			zap.String("dustbin_code", bin.DustbinCode), zap.Error(err))
	}

	if uc.publisher != nil {
		uc.publisher.PublishReading(bin.DustbinCode, fill, flagged, now)
	}
	return result, nil
}

// detectAnomaly flags a fill-level jump of more than anomalyJump points
// against a reading accepted less than anomalyWindow ago. Advisory only:
// step changes like an emptied bin are legitimate, so the report is still
// accepted. Lookup trouble degrades to "no previous reading".
func (uc *IngestUseCase) detectAnomaly(ctx context.Context, dustbinID string, fill float64, now time.Time) bool {
	last, err := uc.readings.GetLatestByDustbinID(ctx, dustbinID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			uc.logger.Warn("latest reading lookup failed, skipping anomaly check",
				zap.String("dustbin_id", dustbinID), zap.Error(err))
		}
		return false
	}
	return now.Sub(last.CreatedAt) < anomalyWindow && math.Abs(fill-last.FillPercentage) > anomalyJump
}

// auditEntry is the payload snapshot stored with every DeviceLog row.
type auditEntry struct {
	Report           protocol.TelemetryReport `json:"report"`
	FillPercentage   *float64                 `json:"fill_percentage,omitempty"`
	FlaggedForReview *bool                    `json:"flagged_for_review,omitempty"`
}

func (uc *IngestUseCase) writeAuditLog(ctx context.Context, dustbinID string, report protocol.TelemetryReport, reportedAt time.Time, signatureValid bool, result *IngestResult) error {
	entry := auditEntry{Report: report}
	if result != nil {
		entry.FillPercentage = &result.FillPercentage
		entry.FlaggedForReview = &result.FlaggedForReview
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	return uc.logs.Create(ctx, &entities.DeviceLog{
		DustbinID:      dustbinID,
		Payload:        datatypes.JSON(payload),
		ReportedAt:     reportedAt,
		SignatureValid: signatureValid,
		Nonce:          report.Nonce,
	})
}

func clampFill(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
