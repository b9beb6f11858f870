package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartbin-server/cache"
	"smartbin-server/entities"
	"smartbin-server/protocol"
	"smartbin-server/repositories"
)

// ---- fakes over the repository interfaces ----

type livenessUpdate struct {
	id       string
	seenAt   time.Time
	firmware string
}

type fakeDustbinRepo struct {
	binsByCode map[string]*entities.Dustbin
	liveness   []livenessUpdate
	lookupErr  error
}

func (f *fakeDustbinRepo) Create(ctx context.Context, bin *entities.Dustbin) error { return nil }
func (f *fakeDustbinRepo) GetByID(ctx context.Context, id string) (*entities.Dustbin, error) {
	for _, b := range f.binsByCode {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeDustbinRepo) GetByCode(ctx context.Context, code string) (*entities.Dustbin, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if b, ok := f.binsByCode[code]; ok {
		return b, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeDustbinRepo) GetAll(ctx context.Context) ([]entities.Dustbin, error) { return nil, nil }
func (f *fakeDustbinRepo) Update(ctx context.Context, bin *entities.Dustbin) error {
	return nil
}
func (f *fakeDustbinRepo) UpdateLiveness(ctx context.Context, id string, seenAt time.Time, firmwareVersion string) error {
	f.liveness = append(f.liveness, livenessUpdate{id: id, seenAt: seenAt, firmware: firmwareVersion})
	return nil
}
func (f *fakeDustbinRepo) Delete(ctx context.Context, id string) error { return nil }

type fakeReadingRepo struct {
	readings  []*entities.Reading
	createErr error
}

func (f *fakeReadingRepo) Create(ctx context.Context, reading *entities.Reading) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.readings = append(f.readings, reading)
	return nil
}
func (f *fakeReadingRepo) GetLatestByDustbinID(ctx context.Context, dustbinID string) (*entities.Reading, error) {
	var latest *entities.Reading
	for _, r := range f.readings {
		if r.DustbinID != dustbinID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return latest, nil
}
func (f *fakeReadingRepo) GetByDustbinID(ctx context.Context, dustbinID string, limit int) ([]entities.Reading, error) {
	return nil, nil
}

type fakeLogRepo struct {
	logs      []*entities.DeviceLog
	createErr error
}

func (f *fakeLogRepo) Create(ctx context.Context, logEntry *entities.DeviceLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.logs = append(f.logs, logEntry)
	return nil
}
func (f *fakeLogRepo) GetByDustbinID(ctx context.Context, dustbinID string, limit int) ([]entities.DeviceLog, error) {
	return nil, nil
}

type fakeLimiter struct{ allow bool }

func (f *fakeLimiter) Allow(string) bool { return f.allow }

// ---- harness ----

type ingestHarness struct {
	uc       *IngestUseCase
	bins     *fakeDustbinRepo
	readings *fakeReadingRepo
	logs     *fakeLogRepo
	limiter  *fakeLimiter
	now      time.Time
	bin      *entities.Dustbin
}

func newIngestHarness(t *testing.T) *ingestHarness {
	t.Helper()
	bin := &entities.Dustbin{
		ID:           "bin-uuid-1",
		DustbinCode:  "BIN-001",
		DeviceSecret: "S",
		APIKey:       "legacy-key",
	}
	h := &ingestHarness{
		bins:     &fakeDustbinRepo{binsByCode: map[string]*entities.Dustbin{bin.DustbinCode: bin}},
		readings: &fakeReadingRepo{},
		logs:     &fakeLogRepo{},
		limiter:  &fakeLimiter{allow: true},
		now:      time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		bin:      bin,
	}
	h.uc = NewIngestUseCase(h.bins, h.readings, h.logs, cache.NewNonceCache(100), h.limiter, IngestConfig{}, nil)
	h.uc.nowFn = func() time.Time { return h.now }
	return h
}

// signedReport builds a report with a fresh timestamp and a valid signature
// under the given key.
func (h *ingestHarness) signedReport(sensor1, sensor2 float64, nonce, key string) protocol.TelemetryReport {
	r := protocol.TelemetryReport{
		DustbinCode:  "BIN-001",
		Sensor1Value: sensor1,
		Sensor2Value: sensor2,
		Timestamp:    h.now.Format(time.RFC3339),
		Nonce:        nonce,
	}
	r.Signature = protocol.Sign(r.Canonical(), []byte(key))
	return r
}

// ---- tests ----

func TestIngest_AcceptsValidReport(t *testing.T) {
	h := newIngestHarness(t)
	report := h.signedReport(40, 60, "nonce-1", "S")
	report.FirmwareVersion = "1.2.0" // not part of the canonical payload

	result, err := h.uc.Ingest(report)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if result.FillPercentage != 50 {
		t.Errorf("FillPercentage = %v, want 50", result.FillPercentage)
	}
	if result.FlaggedForReview {
		t.Error("fresh device flagged for review")
	}
	if result.Warning != "" {
		t.Errorf("unexpected warning %q", result.Warning)
	}

	if len(h.readings.readings) != 1 {
		t.Fatalf("persisted %d readings, want 1", len(h.readings.readings))
	}
	if got := h.readings.readings[0]; got.DustbinID != h.bin.ID || got.Sensor1Value != 40 || got.Sensor2Value != 60 {
		t.Errorf("persisted reading %+v mismatch", got)
	}

	if len(h.logs.logs) != 1 {
		t.Fatalf("wrote %d device logs, want 1", len(h.logs.logs))
	}
	if !h.logs.logs[0].SignatureValid {
		t.Error("accepted report logged with signature_valid=false")
	}
	if h.logs.logs[0].Nonce != "nonce-1" {
		t.Errorf("logged nonce %q, want nonce-1", h.logs.logs[0].Nonce)
	}

	if len(h.bins.liveness) != 1 {
		t.Fatalf("liveness updated %d times, want 1", len(h.bins.liveness))
	}
	if h.bins.liveness[0].firmware != "1.2.0" {
		t.Errorf("firmware recorded as %q, want 1.2.0", h.bins.liveness[0].firmware)
	}
}

func TestIngest_ReplayRejectedOnSecondAttempt(t *testing.T) {
	h := newIngestHarness(t)
	report := h.signedReport(40, 60, "nonce-1", "S")

	if _, err := h.uc.Ingest(report); err != nil {
		t.Fatalf("first attempt rejected: %v", err)
	}
	_, err := h.uc.Ingest(report)
	if !errors.Is(err, ErrReplayDetected) {
		t.Fatalf("replay returned %v, want ErrReplayDetected", err)
	}
	if len(h.readings.readings) != 1 {
		t.Errorf("replay persisted a second reading")
	}
}

func TestIngest_StaleAndFutureTimestamps(t *testing.T) {
	h := newIngestHarness(t)

	for name, offset := range map[string]time.Duration{
		"stale":  -301 * time.Second,
		"future": 301 * time.Second,
	} {
		r := protocol.TelemetryReport{
			DustbinCode:  "BIN-001",
			Sensor1Value: 40,
			Sensor2Value: 60,
			Timestamp:    h.now.Add(offset).Format(time.RFC3339),
			Nonce:        "nonce-" + name,
		}
		// Even a valid signature must not rescue a stale report.
		r.Signature = protocol.Sign(r.Canonical(), []byte("S"))

		if _, err := h.uc.Ingest(r); !errors.Is(err, ErrStaleTimestamp) {
			t.Errorf("%s timestamp returned %v, want ErrStaleTimestamp", name, err)
		}
	}
}

func TestIngest_DriftAtWindowEdgeAccepted(t *testing.T) {
	h := newIngestHarness(t)
	r := protocol.TelemetryReport{
		DustbinCode:  "BIN-001",
		Sensor1Value: 40,
		Sensor2Value: 60,
		Timestamp:    h.now.Add(-300 * time.Second).Format(time.RFC3339),
		Nonce:        "nonce-edge",
	}
	r.Signature = protocol.Sign(r.Canonical(), []byte("S"))

	if _, err := h.uc.Ingest(r); err != nil {
		t.Errorf("300s drift rejected: %v", err)
	}
}

func TestIngest_MalformedTimestamp(t *testing.T) {
	h := newIngestHarness(t)
	r := h.signedReport(40, 60, "nonce-1", "S")
	r.Timestamp = "yesterday"
	r.Signature = protocol.Sign(r.Canonical(), []byte("S"))

	if _, err := h.uc.Ingest(r); !errors.Is(err, ErrBadTimestamp) {
		t.Errorf("got %v, want ErrBadTimestamp", err)
	}
}

func TestIngest_UnknownDeviceWritesNoLog(t *testing.T) {
	h := newIngestHarness(t)
	r := h.signedReport(40, 60, "nonce-1", "S")
	r.DustbinCode = "BIN-999"
	r.Signature = protocol.Sign(r.Canonical(), []byte("S"))

	if _, err := h.uc.Ingest(r); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("got %v, want ErrUnknownDevice", err)
	}
	if len(h.logs.logs) != 0 {
		t.Error("unknown device produced a device log")
	}
	if len(h.readings.readings) != 0 {
		t.Error("unknown device produced a reading")
	}
}

func TestIngest_InvalidSignatureIsAuditedButRejected(t *testing.T) {
	h := newIngestHarness(t)
	r := h.signedReport(40, 60, "nonce-1", "wrong-key")

	if _, err := h.uc.Ingest(r); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
	if len(h.readings.readings) != 0 {
		t.Error("rejected report persisted a reading")
	}
	if len(h.logs.logs) != 1 {
		t.Fatalf("wrote %d device logs, want 1", len(h.logs.logs))
	}
	if h.logs.logs[0].SignatureValid {
		t.Error("rejected report logged with signature_valid=true")
	}
	if len(h.bins.liveness) != 0 {
		t.Error("rejected report updated device liveness")
	}
}

func TestIngest_APIKeyFallback(t *testing.T) {
	h := newIngestHarness(t)
	h.bin.DeviceSecret = ""

	r := h.signedReport(40, 60, "nonce-1", "legacy-key")
	if _, err := h.uc.Ingest(r); err != nil {
		t.Errorf("api-key-signed report rejected: %v", err)
	}
}

func TestIngest_RateLimitedBeforeNonceConsumed(t *testing.T) {
	h := newIngestHarness(t)
	h.limiter.allow = false

	r := h.signedReport(40, 60, "nonce-1", "S")
	if _, err := h.uc.Ingest(r); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}

	// Shedding happens before the replay guard, so the nonce is still fresh
	// for the device's retry.
	h.limiter.allow = true
	if _, err := h.uc.Ingest(r); err != nil {
		t.Errorf("retry after rate limit rejected: %v", err)
	}
}

func TestIngest_AnomalyFlagging(t *testing.T) {
	cases := []struct {
		name        string
		previousAge time.Duration
		wantFlagged bool
	}{
		{"jump within window", 30 * time.Second, true},
		{"jump outside window", 90 * time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newIngestHarness(t)
			h.readings.readings = append(h.readings.readings, &entities.Reading{
				DustbinID:      h.bin.ID,
				FillPercentage: 10,
				CreatedAt:      h.now.Add(-tc.previousAge),
			})

			r := h.signedReport(70, 70, "nonce-1", "S")
			result, err := h.uc.Ingest(r)
			if err != nil {
				t.Fatalf("Ingest returned error: %v", err)
			}
			if result.FlaggedForReview != tc.wantFlagged {
				t.Errorf("FlaggedForReview = %v, want %v", result.FlaggedForReview, tc.wantFlagged)
			}
			// Advisory only: the reading is persisted either way.
			if len(h.readings.readings) != 2 {
				t.Errorf("persisted %d readings, want 2", len(h.readings.readings))
			}
		})
	}
}

func TestIngest_FillPercentageClamped(t *testing.T) {
	cases := []struct {
		sensor1, sensor2, want float64
	}{
		{150, 130, 100},
		{-10, -20, 0},
		{40, 60, 50},
	}
	for _, tc := range cases {
		h := newIngestHarness(t)
		r := h.signedReport(tc.sensor1, tc.sensor2, "nonce-1", "S")
		result, err := h.uc.Ingest(r)
		if err != nil {
			t.Fatalf("Ingest(%v, %v) returned error: %v", tc.sensor1, tc.sensor2, err)
		}
		if result.FillPercentage != tc.want {
			t.Errorf("fill for (%v, %v) = %v, want %v", tc.sensor1, tc.sensor2, result.FillPercentage, tc.want)
		}
	}
}

func TestIngest_AuditFailureDegradesToWarning(t *testing.T) {
	h := newIngestHarness(t)
	h.logs.createErr = errors.New("log store down")

	r := h.signedReport(40, 60, "nonce-1", "S")
	result, err := h.uc.Ingest(r)
	if err != nil {
		t.Fatalf("audit failure rejected an otherwise valid report: %v", err)
	}
	if result.Warning == "" {
		t.Error("audit failure not surfaced as a warning")
	}
	if len(h.readings.readings) != 1 {
		t.Error("reading lost alongside the audit failure")
	}
}

func TestIngest_ReadingStoreFailureIsTransient(t *testing.T) {
	h := newIngestHarness(t)
	h.readings.createErr = errors.New("store timeout")

	r := h.signedReport(40, 60, "nonce-1", "S")
	_, err := h.uc.Ingest(r)
	if err == nil {
		t.Fatal("store failure accepted")
	}
	for _, sentinel := range []error{ErrRateLimited, ErrBadTimestamp, ErrStaleTimestamp, ErrUnknownDevice, ErrReplayDetected, ErrInvalidSignature} {
		if errors.Is(err, sentinel) {
			t.Errorf("store failure mapped to client error %v", sentinel)
		}
	}
}

func TestIngest_DeviceLookupFailureIsTransient(t *testing.T) {
	h := newIngestHarness(t)
	h.bins.lookupErr = errors.New("store timeout")

	r := h.signedReport(40, 60, "nonce-1", "S")
	_, err := h.uc.Ingest(r)
	if err == nil {
		t.Fatal("lookup failure accepted")
	}
	if errors.Is(err, ErrUnknownDevice) {
		t.Error("store failure reported as unknown device")
	}
}
