package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{"server error config", ErrorClassServer, 1 * time.Second, 10 * time.Second},
		{"rate limit config", ErrorClassRateLimit, 5 * time.Second, 60 * time.Second},
		{"network error config", ErrorClassNetwork, 2 * time.Second, 30 * time.Second},
		{"unknown error class uses default", "", 1 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != 3 {
				t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
			}
		})
	}
}

// recordingRetrier uses the per-class schedule but records waits instead of sleeping.
func recordingRetrier() (*retrier, *[]time.Duration) {
	r := newRetrier(zerolog.Nop(), nil)
	waits := &[]time.Duration{}
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	r.jitter = func(d time.Duration) time.Duration { return d }
	return r, waits
}

func classifyAs(class ErrorClass) func(error) ErrorClass {
	return func(error) ErrorClass { return class }
}

func TestRetry_Success(t *testing.T) {
	r, waits := recordingRetrier()

	callCount := 0
	err := r.do(context.Background(), func() error {
		callCount++
		return nil
	}, classifyAs(ErrorClassServer))

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(*waits) != 0 {
		t.Errorf("Expected no backoff, got %v", *waits)
	}
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	r, waits := recordingRetrier()

	callCount := 0
	err := r.do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, classifyAs(ErrorClassServer))

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*waits) != len(want) || (*waits)[0] != want[0] || (*waits)[1] != want[1] {
		t.Errorf("backoffs = %v, want %v", *waits, want)
	}
}

func TestRetry_BackoffCappedAtMax(t *testing.T) {
	r, waits := recordingRetrier()
	r.configFor = func(ErrorClass) RetryConfig {
		return RetryConfig{MaxAttempts: 5, InitialBackoff: 4 * time.Second, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2}
	}

	_ = r.do(context.Background(), func() error { return errors.New("x") }, classifyAs(ErrorClassServer))

	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("backoffs = %v, want %v", *waits, want)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, (*waits)[i], want[i])
		}
	}
}

func TestRetry_MaxAttemptsExhausted(t *testing.T) {
	r, _ := recordingRetrier()

	callCount := 0
	testErr := errors.New("persistent error")
	err := r.do(context.Background(), func() error {
		callCount++
		return testErr
	}, classifyAs(ErrorClassServer))

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected wrapped original error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetry_ClientErrorNoRetry(t *testing.T) {
	r, _ := recordingRetrier()

	callCount := 0
	testErr := errors.New("client error")
	err := r.do(context.Background(), func() error {
		callCount++
		return testErr
	}, classifyAs(ErrorClassClient))

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors")
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	r := newRetrier(zerolog.Nop(), &RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Hour,
		MaxBackoff:        time.Hour,
		BackoffMultiplier: 2,
	})
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := r.do(ctx, func() error {
		callCount++
		cancel()
		return errors.New("server error")
	}, classifyAs(ErrorClassServer))

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestAddJitter(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 100; i++ {
		d := addJitter(base)
		if d < 8*time.Second || d > 12*time.Second {
			t.Fatalf("addJitter(%v) = %v, want within ±20%%", base, d)
		}
	}
}

func rateLimited(reset string) error {
	h := http.Header{}
	if reset != "" {
		h.Set("X-RateLimit-Reset", reset)
	}
	return &APIError{StatusCode: http.StatusTooManyRequests, ErrorClass: ErrorClassRateLimit, Header: h}
}

func TestRetry_RateLimitWaitsForReset(t *testing.T) {
	tests := []struct {
		name  string
		reset string
		want  []time.Duration
	}{
		{"reset within max backoff", "12", []time.Duration{12 * time.Second, 12 * time.Second}},
		{"reset beyond max backoff", "600", []time.Duration{5 * time.Second, 10 * time.Second}},
		{"no reset header", "", []time.Duration{5 * time.Second, 10 * time.Second}},
		{"garbage reset header", "soon", []time.Duration{5 * time.Second, 10 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, waits := recordingRetrier()

			err := r.do(context.Background(), func() error { return rateLimited(tt.reset) }, classifyError)

			if !errors.Is(err, ErrRetryExhausted) {
				t.Fatalf("Expected ErrRetryExhausted, got %v", err)
			}
			if len(*waits) != len(tt.want) {
				t.Fatalf("waits = %v, want %v", *waits, tt.want)
			}
			for i := range tt.want {
				if (*waits)[i] != tt.want[i] {
					t.Errorf("wait[%d] = %v, want %v", i, (*waits)[i], tt.want[i])
				}
			}
		})
	}
}

func TestResetAfter(t *testing.T) {
	if got := resetAfter(rateLimited("30")); got != 30*time.Second {
		t.Errorf("resetAfter = %v, want 30s", got)
	}
	if got := resetAfter(errors.New("plain")); got != 0 {
		t.Errorf("resetAfter(plain) = %v, want 0", got)
	}
	if got := resetAfter(rateLimited("0")); got != 0 {
		t.Errorf("resetAfter(0) = %v, want 0", got)
	}
}
