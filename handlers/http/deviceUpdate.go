package httpHandler

import (
	"errors"
	"net/http"
	"time"

	"smartbin-server/metrics"
	"smartbin-server/protocol"
	"smartbin-server/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ingestor is what the handler needs from the pipeline.
type Ingestor interface {
	Ingest(report protocol.TelemetryReport) (*usecases.IngestResult, error)
}

// deviceUpdateRequest is the inbound JSON body. Sensor values are pointers
// so a legitimate zero reading is distinguishable from an absent field.
type deviceUpdateRequest struct {
	DustbinCode     string   `json:"dustbin_code"`
	Sensor1Value    *float64 `json:"sensor1_value"`
	Sensor2Value    *float64 `json:"sensor2_value"`
	Timestamp       string   `json:"timestamp"`
	Nonce           string   `json:"nonce"`
	Signature       string   `json:"signature"`
	FirmwareVersion string   `json:"firmware_version"`
}

type DeviceUpdateHandler struct {
	ingestor Ingestor
	logger   *zap.Logger
}

func NewDeviceUpdateHandler(ingestor Ingestor, logger *zap.Logger) *DeviceUpdateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceUpdateHandler{ingestor: ingestor, logger: logger}
}

// HandleDeviceUpdate handles POST /api/v1/device-update, the single
// endpoint field devices report through.
func (h *DeviceUpdateHandler) HandleDeviceUpdate(c *gin.Context) {
	start := time.Now()

	var req deviceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, start, http.StatusBadRequest, "malformed", "Invalid request body")
		return
	}
	if req.DustbinCode == "" || req.Sensor1Value == nil || req.Sensor2Value == nil ||
		req.Timestamp == "" || req.Nonce == "" || req.Signature == "" {
		h.reject(c, start, http.StatusBadRequest, "malformed", "Missing required fields")
		return
	}

	result, err := h.ingestor.Ingest(protocol.TelemetryReport{
		DustbinCode:     req.DustbinCode,
		Sensor1Value:    *req.Sensor1Value,
		Sensor2Value:    *req.Sensor2Value,
		Timestamp:       req.Timestamp,
		Nonce:           req.Nonce,
		Signature:       req.Signature,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		status, outcome, message := classify(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("ingestion failed",
				zap.String("dustbin_code", req.DustbinCode), zap.Error(err))
		}
		h.reject(c, start, status, outcome, message)
		return
	}

	if result.FlaggedForReview {
		metrics.FlaggedReadingsTotal.Inc()
	}
	metrics.IngestRequestsTotal.WithLabelValues("accepted").Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	body := gin.H{
		"success":            true,
		"fill_percentage":    result.FillPercentage,
		"flagged_for_review": result.FlaggedForReview,
	}
	if result.Warning != "" {
		body["warning"] = result.Warning
	}
	c.JSON(http.StatusOK, body)
}

func (h *DeviceUpdateHandler) reject(c *gin.Context, start time.Time, status int, outcome, message string) {
	metrics.IngestRequestsTotal.WithLabelValues(outcome).Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	c.JSON(status, gin.H{"error": message})
}

// classify maps pipeline rejections to status, metric label, and message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, usecases.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded"
	case errors.Is(err, usecases.ErrBadTimestamp):
		return http.StatusBadRequest, "malformed", "Invalid timestamp"
	case errors.Is(err, usecases.ErrStaleTimestamp):
		return http.StatusBadRequest, "stale_timestamp", "Timestamp outside allowed window"
	case errors.Is(err, usecases.ErrUnknownDevice):
		return http.StatusNotFound, "unknown_device", "Device not found"
	case errors.Is(err, usecases.ErrReplayDetected):
		return http.StatusBadRequest, "replay", "Replay detected"
	case errors.Is(err, usecases.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature", "Invalid signature"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}
