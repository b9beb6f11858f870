// Package services holds the gateway's admission-control components.
package services

import (
	"sync"
	"time"
)

const (
	DefaultRateLimit  = 10
	DefaultRateWindow = 60 * time.Second
)

type deviceWindow struct {
	windowStart time.Time
	count       int
}

// RateLimiter enforces a per-device fixed window: at most limit requests per
// window, counted from the first request that opened the window. It runs
// before any cryptographic work so misbehaving devices cost no HMAC cycles.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*deviceWindow
	limit   int
	window  time.Duration
	nowFn   func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		windows: make(map[string]*deviceWindow),
		limit:   limit,
		window:  window,
		nowFn:   time.Now,
	}
}

// Allow admits the request if the device's current window still has quota.
// The first request after a window expires resets the counter.
func (rl *RateLimiter) Allow(dustbinCode string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFn()
	w, ok := rl.windows[dustbinCode]
	if !ok || now.Sub(w.windowStart) >= rl.window {
		rl.windows[dustbinCode] = &deviceWindow{windowStart: now, count: 1}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// Sweep drops counters whose window has expired and returns how many were
// removed. Keeps the map bounded by the set of recently active devices.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFn()
	removed := 0
	for code, w := range rl.windows {
		if now.Sub(w.windowStart) >= rl.window {
			delete(rl.windows, code)
			removed++
		}
	}
	return removed
}

// StartSweeping runs Sweep on a ticker until stop is closed.
func (rl *RateLimiter) StartSweeping(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// ActiveWindows returns the number of devices with a live counter.
func (rl *RateLimiter) ActiveWindows() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
