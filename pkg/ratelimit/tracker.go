package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "icims_rate_limit_remaining",
		Help: "Calls remaining in the current iCIMS rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icims_rate_limit_blocks_total",
		Help: "Total number of requests blocked at the critical threshold",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icims_rate_limit_throttles_total",
		Help: "Total number of requests delayed in the warning band",
	})

	rateLimitResetWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icims_rate_limit_reset_waits_total",
		Help: "Total number of requests held in the critical band until the window reset",
	})
)

// DefaultThrottleDelay is the pause applied to each request in the warning band.
const DefaultThrottleDelay = 1 * time.Second

// DefaultMaxResetWait is the longest a request in the critical band waits for the window
// to reset before it is blocked instead.
const DefaultMaxResetWait = 60 * time.Second

// Tracker monitors the API rate limit and gates requests. State lives in Redis when a
// client is given, otherwise in memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local *RateLimitState

	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
	throttleDelay time.Duration
	maxResetWait  time.Duration
}

// NewTracker creates a new rate limit tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		now:           time.Now,
		sleep:         Sleep,
		throttleDelay: DefaultThrottleDelay,
		maxResetWait:  DefaultMaxResetWait,
	}
}

// SetMaxResetWait bounds how long ShouldAllowRequest waits for a window reset in the
// critical band. Zero blocks immediately.
func (t *Tracker) SetMaxResetWait(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.maxResetWait = d
}

// GetState returns the current rate limit state. A healthy default is returned when
// nothing has been observed yet or the observed window has already reset.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	now := t.now()

	state, err := t.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		t.logger.Debug().Msg("No rate limit state recorded, assuming healthy")
		return defaultState(now), nil
	}
	if state.HasReset(now) {
		return defaultState(now), nil
	}

	state.UpdateHealth()
	return state, nil
}

func (t *Tracker) loadState(ctx context.Context) (*RateLimitState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return nil, nil
		}
		s := *t.local
		return &s, nil
	}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	state := &RateLimitState{Remaining: remaining}
	if resetTimestamp > 0 {
		state.ResetAt = time.Unix(resetTimestamp, 0)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return state, nil
}

// UpdateFromHeaders records the rate limit state reported in response headers.
// Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	now := t.now()
	state := &RateLimitState{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}
	state.UpdateHealth()

	if err := t.saveState(ctx, state); err != nil {
		return err
	}

	rateLimitRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit CRITICAL - requests held until the window resets")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit state updated")
	}

	return nil
}

func (t *Tracker) saveState(ctx context.Context, state *RateLimitState) error {
	if t.redis == nil {
		t.mu.Lock()
		s := *state
		t.local = &s
		t.mu.Unlock()
		return nil
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Keys outlive the window slightly so a stale state is still recognised as reset.
	ttl := state.ResetAt.Sub(state.LastUpdate) + time.Minute

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, ttl)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest reports whether a request may be sent now. In the warning band it
// pauses for the throttle delay before allowing the request. In the critical band it
// waits for the window to reset when that is at most maxResetWait away, and refuses
// the request otherwise.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		wait := state.TimeUntilReset(t.now())
		if wait > t.maxResetWait {
			t.logger.Error().
				Int("remaining", state.Remaining).
				Dur("wait_duration", wait).
				Msg("Rate limit critical - blocking request")

			rateLimitBlocksTotal.Inc()
			return false, nil
		}

		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", wait).
			Msg("Rate limit critical - waiting for window reset")

		rateLimitResetWaitsTotal.Inc()
		if err := t.sleep(ctx, wait); err != nil {
			return false, err
		}
		return true, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Rate limit warning - throttling request")

		rateLimitThrottlesTotal.Inc()
		if err := t.sleep(ctx, t.throttleDelay); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
