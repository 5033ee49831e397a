package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a provider's per-minute and per-day request budgets. The
// per-minute budget is a token bucket; the per-day budget is a counter that
// rolls over at local midnight. Safe for concurrent use by parallel
// in-flight requests.
type Limiter struct {
	provider string
	minute   *rate.Limiter

	mu       sync.Mutex
	day      time.Time
	dayCount int
	dayMax   int
}

// NewLimiter creates a limiter for one provider. Zero or negative budgets
// disable the corresponding limit.
func NewLimiter(providerName string, perMinute, perDay int) *Limiter {
	minute := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return &Limiter{
		provider: providerName,
		minute:   minute,
		dayMax:   perDay,
	}
}

// Wait blocks until a request may proceed, or returns a rate-limited error
// when the daily budget is exhausted or the context expires first.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.takeDaily(); err != nil {
		return err
	}
	if err := l.minute.Wait(ctx); err != nil {
		return &Error{Provider: l.provider, Kind: KindTimeout, Err: err}
	}
	return nil
}

func (l *Limiter) takeDaily() error {
	if l.dayMax <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now().Truncate(24 * time.Hour)
	if !l.day.Equal(today) {
		l.day = today
		l.dayCount = 0
	}
	if l.dayCount >= l.dayMax {
		return &Error{Provider: l.provider, Kind: KindRateLimited, Message: "daily request budget exhausted"}
	}
	l.dayCount++
	return nil
}

// retryBackoff is the base delay for capped exponential backoff between
// retry attempts.
const retryBackoff = 250 * time.Millisecond

// maxBackoff caps the delay between attempts.
const maxBackoff = 2 * time.Second

// WithRetry runs fn up to attempts times, backing off between tries.
// Only rate-limited and transport failures are retried; everything else
// returns immediately.
func WithRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := retryBackoff
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !IsKind(err, KindRateLimited) && !IsKind(err, KindTransport) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
	return err
}
