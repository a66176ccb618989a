package oracle

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// #endregion

// #region errors

// ErrExhausted marks a call that failed on every retry attempt. The sampler
// treats it as chain-terminating, never as a rejection.
var ErrExhausted = errors.New("oracle: retry attempts exhausted")

// StatusError reports a non-2xx reply from the generation service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("oracle: status %d: %s", e.Code, e.Body)
}

// Transient reports whether the status is worth retrying: rate limits and
// server-side failures are, other client errors are not.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// #endregion

// #region retry-config

// RetryConfig bounds the boundary-layer retry loop.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryConfig matches the reference client: three attempts with
// exponential backoff and jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// #endregion

// #region with-retry

// withRetry runs op until it succeeds, fails fatally, or exhausts the
// attempt budget. Backoff grows by Multiplier up to MaxDelay, with 0-25%
// jitter when enabled. Context cancellation aborts between attempts.
func withRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.Jitter {
			wait = addJitter(wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts, last error: %v", ErrExhausted, cfg.MaxAttempts, lastErr)
}

// isTransient decides retryability: cancellation is final, HTTP statuses
// classify themselves, anything else is a transport hiccup worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return true
}

// addJitter extends d by up to 25% so concurrent trials do not retry in
// lockstep.
func addJitter(d time.Duration) time.Duration {
	quarter := int64(d / 4)
	if quarter <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(quarter))
}

// #endregion

// #region adaptive-limiter

// AdaptiveLimiter paces outbound calls and adapts to service pushback:
// a rate-limited reply halves the request rate, successes creep it back up
// toward the configured ceiling.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	min     rate.Limit
	max     rate.Limit
}

// NewAdaptiveLimiter starts at rps with the given burst. The rate floor is
// a tenth of rps so pushback never stalls the experiment completely.
func NewAdaptiveLimiter(rps float64, burst int) *AdaptiveLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		min:     rate.Limit(rps / 10),
		max:     rate.Limit(rps),
	}
}

// Wait blocks until the limiter grants a slot or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success nudges the rate 10% back up toward the ceiling.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.limiter.Limit() * 1.1
	if next > a.max {
		next = a.max
	}
	a.limiter.SetLimit(next)
}

// RateLimited halves the rate down to the floor.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.limiter.Limit() / 2
	if next < a.min {
		next = a.min
	}
	a.limiter.SetLimit(next)
}

// Limit reports the current rate, for logging and tests.
func (a *AdaptiveLimiter) Limit() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.limiter.Limit())
}

// #endregion
