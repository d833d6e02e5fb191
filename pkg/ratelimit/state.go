// Package ratelimit implements per-client and per-session request gating.
// Each client key carries a sliding window of request timestamps plus the
// time of its last admitted request; each session key carries its own window.
package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// Window lengths for the fixed policy counters.
const (
	HourWindow = time.Hour
	DayWindow  = 24 * time.Hour
)

// Reason names the policy rule that rejected a request.
type Reason string

const (
	// ReasonCooldown rejects requests arriving too soon after the previous one.
	ReasonCooldown Reason = "cooldown"

	// ReasonHourly rejects requests beyond the per-client hourly cap.
	ReasonHourly Reason = "hourly_limit"

	// ReasonDaily rejects requests beyond the per-client daily cap.
	ReasonDaily Reason = "daily_limit"

	// ReasonSession rejects requests beyond the per-session cap.
	ReasonSession Reason = "session_limit"
)

// Config holds the limiter policy.
type Config struct {
	// Cooldown is the minimum spacing between two requests of one client.
	Cooldown time.Duration

	// HourlyLimit caps requests per client within HourWindow.
	HourlyLimit int

	// DailyLimit caps requests per client within DayWindow.
	DailyLimit int

	// SessionLimit caps requests per session within SessionWindow.
	SessionLimit int

	// SessionWindow is the rolling window for the session cap.
	SessionWindow time.Duration
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		Cooldown:      5 * time.Second,
		HourlyLimit:   50,
		DailyLimit:    200,
		SessionLimit:  25,
		SessionWindow: time.Hour,
	}
}

// Validate checks that every limit is usable.
func (c Config) Validate() error {
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must be >= 0 (got %s)", c.Cooldown)
	}
	if c.HourlyLimit <= 0 {
		return fmt.Errorf("hourly_limit must be > 0 (got %d)", c.HourlyLimit)
	}
	if c.DailyLimit <= 0 {
		return fmt.Errorf("daily_limit must be > 0 (got %d)", c.DailyLimit)
	}
	if c.SessionLimit <= 0 {
		return fmt.Errorf("session_limit must be > 0 (got %d)", c.SessionLimit)
	}
	if c.SessionWindow <= 0 {
		return fmt.Errorf("session_window must be > 0 (got %s)", c.SessionWindow)
	}
	return nil
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed    bool
	Reason     Reason
	Message    string
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

func allow() Decision {
	return Decision{Allowed: true}
}

func reject(reason Reason, retryAfter time.Duration, format string, args ...any) Decision {
	return Decision{
		Reason:     reason,
		Message:    fmt.Sprintf(format, args...),
		RetryAfter: retryAfter,
	}
}

// window is an ordered list of request timestamps, oldest first.
type window struct {
	requests    []time.Time
	lastRequest time.Time
}

// prune drops timestamps that are maxAge or more in the past.
func (w *window) prune(now time.Time, maxAge time.Duration) {
	cutoff := now.Add(-maxAge)
	i := 0
	for i < len(w.requests) && !w.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.requests = append(w.requests[:0], w.requests[i:]...)
	}
}

// countWithin counts timestamps younger than d.
func (w *window) countWithin(now time.Time, d time.Duration) int {
	cutoff := now.Add(-d)
	n := 0
	for j := len(w.requests) - 1; j >= 0 && w.requests[j].After(cutoff); j-- {
		n++
	}
	return n
}

func (w *window) record(now time.Time) {
	w.requests = append(w.requests, now)
	w.lastRequest = now
}

func (w *window) empty() bool {
	return len(w.requests) == 0
}
