package extraction

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RetryConfig controls how an upstream call (Gemini or the OCR service) is
// repeated after a transient failure.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64 // 0 disables jitter

	// Limiter, when set, is waited on before every attempt, retries included.
	Limiter *rate.Limiter
}

// DefaultOCRRetryConfig suits an OCR sidecar that may be cold-starting.
var DefaultOCRRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialDelay:   2 * time.Second,
	MaxDelay:       15 * time.Second,
	BackoffFactor:  2.0,
	JitterFraction: 0.3,
}

// DefaultGeminiRetryConfig suits Gemini 429/5xx responses. MaxDelay is
// above the retryDelay Gemini usually suggests for per-minute quotas.
var DefaultGeminiRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialDelay:   1 * time.Second,
	MaxDelay:       20 * time.Second,
	BackoffFactor:  2.0,
	JitterFraction: 0.2,
}

// backoff returns the pause before retry number attempt+1. A server hint
// (ExtractionError.RetryAfter) wins over the computed delay when longer,
// still bounded by MaxDelay.
func (cfg RetryConfig) backoff(attempt int, hint time.Duration) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt))
	if cfg.JitterFraction > 0 {
		d += d * cfg.JitterFraction * (rand.Float64()*2 - 1)
	}
	if d < float64(cfg.InitialDelay) {
		d = float64(cfg.InitialDelay)
	}
	if h := float64(hint); h > d {
		d = h
	}
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

// parseRetryAfter reads an HTTP Retry-After value in either delta-seconds
// or HTTP-date form. Unparseable or past values give 0.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// WithRetry calls fn until it succeeds, returns an ExtractionError marked
// non-retryable, the context ends, or MaxRetries retries have been spent.
// Errors that are not ExtractionErrors count as transient.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return zero, ctx.Err()
				}
				return zero, &ExtractionError{
					Code:    ErrRateLimited,
					Message: "request budget exhausted before deadline",
					Cause:   err,
				}
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		var extErr *ExtractionError
		var hint time.Duration
		if errors.As(err, &extErr) {
			if !extErr.Retryable {
				return zero, err
			}
			hint = extErr.RetryAfter
		}
		if attempt >= cfg.MaxRetries {
			return zero, err
		}

		delay := cfg.backoff(attempt, hint)
		log.Debug().
			Str("component", "retry").
			Str("code", string(ErrorCode(err))).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying upstream call")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
