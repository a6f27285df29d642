// Package ratelimit paces and gates requests to the iCIMS API.
//
// Two mechanisms live here. Pacer enforces a fixed minimum delay between consecutive
// bulk requests. Tracker follows the X-RateLimit-Remaining and X-RateLimit-Reset response
// headers, sharing the observed state through Redis when several processes use the same
// credentials, and blocks or slows requests as the remaining allowance runs out.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "icims:rate_limit:remaining"
	RedisKeyResetTimestamp = "icims:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "icims:rate_limit:last_update"
)

// Response headers carrying the rate limit state.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks requests when remaining calls fall below this value.
	ThresholdCritical = 5

	// ThresholdWarning throttles requests when remaining calls fall below this value.
	ThresholdWarning = 20

	// ThresholdHealthy marks normal operation at or above this value.
	ThresholdHealthy = 50
)

// RateLimitState is the last rate limit state reported by the API.
type RateLimitState struct {
	// Remaining is the number of calls left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was observed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is assumed until the API reports otherwise.
func defaultState(now time.Time) *RateLimitState {
	return &RateLimitState{
		Remaining:  100,
		ResetAt:    now.Add(60 * time.Second),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state is older than maxAge at now.
func (s *RateLimitState) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}

// HasReset reports whether the window the state describes has already ended.
func (s *RateLimitState) HasReset(now time.Time) bool {
	return !s.ResetAt.IsZero() && !now.Before(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets, 0 if it already has.
func (s *RateLimitState) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy from Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
