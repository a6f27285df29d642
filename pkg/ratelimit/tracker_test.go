package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newMemoryTracker(now *time.Time) (*Tracker, *[]time.Duration) {
	tracker := NewTracker(nil, zerolog.Nop())
	tracker.now = func() time.Time { return *now }

	slept := &[]time.Duration{}
	tracker.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	return tracker, slept
}

func headers(remain, reset string) http.Header {
	h := http.Header{}
	if remain != "" {
		h.Set(HeaderRemaining, remain)
	}
	if reset != "" {
		h.Set(HeaderReset, reset)
	}
	return h
}

func TestTracker_DefaultState(t *testing.T) {
	now := baseTime
	tracker, _ := newMemoryTracker(&now)

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy || state.Remaining != 100 {
		t.Errorf("default state = %+v, want healthy with 100 remaining", state)
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name            string
		remain          string
		reset           string
		expectedRemain  int
		expectedHealthy bool
	}{
		{"healthy state", "100", "60", 100, true},
		{"warning state", "15", "30", 15, false},
		{"critical state", "3", "45", 3, false},
		{"at healthy threshold", "50", "60", 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := baseTime
			tracker, _ := newMemoryTracker(&now)
			ctx := context.Background()

			if err := tracker.UpdateFromHeaders(ctx, headers(tt.remain, tt.reset)); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := tracker.GetState(ctx)
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.Remaining != tt.expectedRemain {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.expectedRemain)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
		})
	}
}

func TestTracker_UpdateFromHeaders_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		remain      string
		reset       string
		shouldError bool
	}{
		{"missing remain header", "", "60", false},
		{"both headers missing", "", "", false},
		{"invalid remain header", "invalid", "60", true},
		{"invalid reset header", "100", "invalid", true},
		{"missing reset header", "100", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := baseTime
			tracker, _ := newMemoryTracker(&now)

			err := tracker.UpdateFromHeaders(context.Background(), headers(tt.remain, tt.reset))
			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestTracker_ShouldAllowRequest(t *testing.T) {
	tests := []struct {
		name           string
		remain         string
		expectAllow    bool
		expectThrottle bool
	}{
		{"healthy - allow immediately", "100", true, false},
		{"warning - allow with throttle", "15", true, true},
		{"critical - block", "3", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := baseTime
			tracker, slept := newMemoryTracker(&now)
			ctx := context.Background()

			if err := tracker.UpdateFromHeaders(ctx, headers(tt.remain, "600")); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			allowed, err := tracker.ShouldAllowRequest(ctx)
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.expectAllow {
				t.Errorf("allowed = %v, want %v", allowed, tt.expectAllow)
			}

			throttled := len(*slept) > 0
			if throttled != tt.expectThrottle {
				t.Errorf("throttled = %v, want %v", throttled, tt.expectThrottle)
			}
			if throttled && (*slept)[0] != DefaultThrottleDelay {
				t.Errorf("throttle delay = %v, want %v", (*slept)[0], DefaultThrottleDelay)
			}
		})
	}
}

func TestTracker_CriticalWaitsForNearReset(t *testing.T) {
	tests := []struct {
		name        string
		reset       string
		maxWait     time.Duration
		expectAllow bool
		expectSleep time.Duration
	}{
		{"reset within bound", "1", DefaultMaxResetWait, true, time.Second},
		{"reset at bound", "60", DefaultMaxResetWait, true, 60 * time.Second},
		{"reset beyond bound", "61", DefaultMaxResetWait, false, 0},
		{"waiting disabled", "1", 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := baseTime
			tracker, slept := newMemoryTracker(&now)
			tracker.SetMaxResetWait(tt.maxWait)
			ctx := context.Background()

			if err := tracker.UpdateFromHeaders(ctx, headers("2", tt.reset)); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			allowed, err := tracker.ShouldAllowRequest(ctx)
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.expectAllow {
				t.Errorf("allowed = %v, want %v", allowed, tt.expectAllow)
			}

			switch {
			case tt.expectSleep == 0 && len(*slept) != 0:
				t.Errorf("slept %v, want no wait", *slept)
			case tt.expectSleep > 0 && (len(*slept) != 1 || (*slept)[0] != tt.expectSleep):
				t.Errorf("slept %v, want [%v]", *slept, tt.expectSleep)
			}
		})
	}
}

func TestTracker_CriticalWaitRespectsContext(t *testing.T) {
	now := baseTime
	tracker, _ := newMemoryTracker(&now)
	tracker.sleep = Sleep

	ctx, cancel := context.WithCancel(context.Background())
	if err := tracker.UpdateFromHeaders(ctx, headers("1", "30")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	cancel()

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if allowed {
		t.Error("cancelled request should not be allowed")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTracker_CriticalClearsAfterReset(t *testing.T) {
	now := baseTime
	tracker, _ := newMemoryTracker(&now)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, headers("1", "300")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	if allowed, _ := tracker.ShouldAllowRequest(ctx); allowed {
		t.Fatal("expected request to be blocked")
	}

	now = now.Add(300 * time.Second)

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("expected request to be allowed after the window reset")
	}
}

func TestTracker_ThrottleRespectsContext(t *testing.T) {
	now := baseTime
	tracker, _ := newMemoryTracker(&now)
	tracker.sleep = Sleep
	tracker.throttleDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	if err := tracker.UpdateFromHeaders(ctx, headers("10", "60")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	cancel()

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if allowed {
		t.Error("cancelled request should not be allowed")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}
