package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter delays the caller before an outbound scrape is allowed.
type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// JitterLimiter sleeps for a uniformly random duration between the
// configured bounds on every Wait. Scrapes use it as a courtesy delay so
// request timing does not look machine-generated.
type JitterLimiter struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
}

func NewJitterLimiter(minDelay, maxDelay time.Duration) *JitterLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &JitterLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (l *JitterLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	delay := l.minDelay
	if l.maxDelay > l.minDelay {
		delay += time.Duration(rand.Int63n(int64(l.maxDelay - l.minDelay)))
	}
	l.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (l *JitterLimiter) SetDelay(min, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minDelay = min
	l.maxDelay = max
	if l.maxDelay < l.minDelay {
		l.maxDelay = l.minDelay
	}
}
