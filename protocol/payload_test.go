package protocol

import "testing"

func TestCanonicalPayload_Layout(t *testing.T) {
	got := CanonicalPayload("BIN-001", 40, 60, "2026-08-31T10:00:00Z", "nonce-1")
	want := "BIN-001|40|60|2026-08-31T10:00:00Z|nonce-1"
	if got != want {
		t.Errorf("CanonicalPayload = %q, want %q", got, want)
	}
}

func TestCanonicalPayload_FloatFormatting(t *testing.T) {
	// Integer-valued floats must not grow trailing zeros; fractional values
	// must keep the shortest round-trip form.
	got := CanonicalPayload("BIN-002", 40.5, -0.25, "2026-08-31T10:00:00Z", "n")
	want := "BIN-002|40.5|-0.25|2026-08-31T10:00:00Z|n"
	if got != want {
		t.Errorf("CanonicalPayload = %q, want %q", got, want)
	}
}

func TestCanonicalPayload_Deterministic(t *testing.T) {
	a := CanonicalPayload("BIN-001", 12.34, 56.78, "2026-08-31T10:00:00Z", "nonce-1")
	b := CanonicalPayload("BIN-001", 12.34, 56.78, "2026-08-31T10:00:00Z", "nonce-1")
	if a != b {
		t.Errorf("encoding not deterministic: %q vs %q", a, b)
	}
}

func TestReportCanonical_MatchesFunction(t *testing.T) {
	r := TelemetryReport{
		DustbinCode:  "BIN-001",
		Sensor1Value: 40,
		Sensor2Value: 60,
		Timestamp:    "2026-08-31T10:00:00Z",
		Nonce:        "nonce-1",
	}
	if r.Canonical() != CanonicalPayload("BIN-001", 40, 60, "2026-08-31T10:00:00Z", "nonce-1") {
		t.Error("Canonical() diverges from CanonicalPayload")
	}
}
