package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 250*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 250ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 2*time.Second {
		t.Errorf("MaxBackoff = %v, want 2s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name             string
		errorClass       ErrorClass
		expectedInitial  time.Duration
		expectedMax      time.Duration
		expectedAttempts int
	}{
		{
			name:             "server error config",
			errorClass:       ErrorClassServer,
			expectedInitial:  200 * time.Millisecond,
			expectedMax:      1 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "rate limit config",
			errorClass:       ErrorClassRateLimit,
			expectedInitial:  1 * time.Second,
			expectedMax:      4 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "network error config",
			errorClass:       ErrorClassNetwork,
			expectedInitial:  250 * time.Millisecond,
			expectedMax:      2 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "unknown error class uses default",
			errorClass:       "",
			expectedInitial:  250 * time.Millisecond,
			expectedMax:      2 * time.Second,
			expectedAttempts: 3,
		},
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
			if config.MaxAttempts != tt.expectedAttempts {
				t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, tt.expectedAttempts)
			}
		})
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), func() (ErrorClass, error) {
		callCount++
		return "", nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	start := time.Now()
	err := retryWithBackoff(context.Background(), func() (ErrorClass, error) {
		callCount++
		if callCount < 3 {
			return ErrorClassServer, errors.New("temporary error")
		}
		return "", nil
	})
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}

	// ~200ms then ~400ms, jitter included
	if duration < 400*time.Millisecond {
		t.Errorf("Expected some backoff delay, got %v", duration)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	testErr := errors.New("persistent error")
	err := retryWithBackoff(context.Background(), func() (ErrorClass, error) {
		callCount++
		return ErrorClassServer, testErr
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected last error to be wrapped, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	callCount := 0
	testErr := errors.New("client error")
	err := retryWithBackoff(context.Background(), func() (ErrorClass, error) {
		callCount++
		return ErrorClassClient, testErr
	})

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors (no retry attempted)")
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := retryWithBackoff(ctx, func() (ErrorClass, error) {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return ErrorClassNetwork, errors.New("error")
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	timestamps := []time.Time{}
	_ = retryWithBackoff(context.Background(), func() (ErrorClass, error) {
		timestamps = append(timestamps, time.Now())
		return ErrorClassServer, errors.New("error")
	})

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}

	firstDelay := timestamps[1].Sub(timestamps[0])
	secondDelay := timestamps[2].Sub(timestamps[1])

	// 200ms ±20%, then 400ms ±20%
	if firstDelay < 150*time.Millisecond || firstDelay > 500*time.Millisecond {
		t.Errorf("First retry delay %v outside expected range", firstDelay)
	}
	if secondDelay < 300*time.Millisecond || secondDelay > 900*time.Millisecond {
		t.Errorf("Second retry delay %v outside expected range", secondDelay)
	}
}

func TestRetryWithBackoff_RateLimitLongerBackoff(t *testing.T) {
	timestamps := []time.Time{}
	_ = retryWithBackoff(context.Background(), func() (ErrorClass, error) {
		timestamps = append(timestamps, time.Now())
		if len(timestamps) == 2 {
			return "", nil
		}
		return ErrorClassRateLimit, errors.New("throttled")
	})

	if len(timestamps) != 2 {
		t.Fatalf("Expected 2 timestamps, got %d", len(timestamps))
	}

	firstDelay := timestamps[1].Sub(timestamps[0])
	if firstDelay < 700*time.Millisecond || firstDelay > 1500*time.Millisecond {
		t.Errorf("First rate limit retry delay %v outside expected range [700ms, 1.5s]", firstDelay)
	}
}

func TestRetryWithBackoff_MaxBackoffCap(t *testing.T) {
	config := RetryConfig{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        300 * time.Millisecond,
		BackoffMultiplier: 10.0,
	}

	backoff := config.InitialBackoff
	for i := 0; i < 3; i++ {
		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	if backoff != config.MaxBackoff {
		t.Errorf("Expected backoff to cap at %v, got %v", config.MaxBackoff, backoff)
	}
}
