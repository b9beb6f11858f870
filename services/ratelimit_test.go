package services

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)

	for i := 1; i <= 10; i++ {
		if !rl.Allow("BIN-001") {
			t.Fatalf("request %d rejected, want first 10 allowed", i)
		}
	}
	if rl.Allow("BIN-001") {
		t.Error("11th request in window allowed")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	rl.nowFn = func() time.Time { return now }

	for i := 0; i < 11; i++ {
		rl.Allow("BIN-001")
	}
	if rl.Allow("BIN-001") {
		t.Fatal("over-quota request allowed")
	}

	// 60s from window start the counter resets.
	now = now.Add(time.Minute)
	if !rl.Allow("BIN-001") {
		t.Error("request after window expiry rejected")
	}
}

func TestRateLimiter_DevicesIndependent(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	rl.Allow("BIN-001")
	rl.Allow("BIN-001")
	if rl.Allow("BIN-001") {
		t.Fatal("BIN-001 over quota")
	}
	if !rl.Allow("BIN-002") {
		t.Error("BIN-002 rejected by BIN-001's counter")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.limit != DefaultRateLimit || rl.window != DefaultRateWindow {
		t.Errorf("defaults not applied: limit=%d window=%v", rl.limit, rl.window)
	}
}

func TestRateLimiter_SweepRemovesExpired(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	rl.nowFn = func() time.Time { return now }

	rl.Allow("BIN-001")
	now = now.Add(30 * time.Second)
	rl.Allow("BIN-002")

	now = now.Add(45 * time.Second) // BIN-001 expired, BIN-002 not yet
	if removed := rl.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if got := rl.ActiveWindows(); got != 1 {
		t.Errorf("ActiveWindows = %d, want 1", got)
	}
}
