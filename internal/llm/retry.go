package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

type RetryPolicy struct {
	MaxAttempts  int
	Timeout      time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy allows one retry with a 30s budget per attempt
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  2,
		Timeout:      30 * time.Second,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
	}
}

// InvokeWithRetry runs invoke under a per-attempt timeout and retries only
// when the failure is ErrProviderUnavailable
func InvokeWithRetry(ctx context.Context, policy RetryPolicy, invoke func(context.Context) (*LLMResponse, error)) (*LLMResponse, error) {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		response, err := invokeOnce(ctx, policy.Timeout, invoke)
		if err == nil {
			return response, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}
		if !errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := CalculateBackoff(attempt, policy.InitialDelay, policy.MaxDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max attempts %d exceeded: %w", attempts, lastErr)
}

func invokeOnce(ctx context.Context, timeout time.Duration, invoke func(context.Context) (*LLMResponse, error)) (*LLMResponse, error) {
	if timeout <= 0 {
		return invoke(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return invoke(attemptCtx)
}

// CalculateBackoff doubles the initial delay per attempt, caps it and adds
// +/-20% jitter
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	backoff := float64(initialDelay) * math.Pow(2, float64(attempt))

	if maxDelay > 0 && backoff > float64(maxDelay) {
		backoff = float64(maxDelay)
	}

	jitter := backoff * 0.2 * (2*rand.Float64() - 1)
	backoff += jitter

	return time.Duration(backoff)
}
