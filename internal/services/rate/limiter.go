// Package rate throttles storefront calls that cost an upstream request.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Window allows Limit requests per Length. A zero Limit disables it.
type Window struct {
	Length time.Duration
	Limit  int
}

type Limiter struct {
	store   WindowStore
	windows []Window
}

func NewLimiter(store WindowStore, windows ...Window) *Limiter {
	active := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Length > 0 && w.Limit > 0 {
			active = append(active, w)
		}
	}
	return &Limiter{store: store, windows: active}
}

// Enabled reports whether any window applies.
func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil && len(l.windows) > 0
}

// Allow counts one request by client against scope. When a window is
// exhausted it returns false with the wait until that window resets.
func (l *Limiter) Allow(ctx context.Context, scope, client string) (time.Duration, bool, error) {
	client = strings.TrimSpace(client)
	if client == "" {
		return 0, false, fmt.Errorf("rate limit client key is required")
	}
	if !l.Enabled() {
		return 0, true, nil
	}

	var retryAfter time.Duration
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(scope, w.Length, client), w.Length)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.Limit) {
			retryAfter = max(retryAfter, ttl)
		}
	}

	if retryAfter > 0 {
		return retryAfter, false, nil
	}
	return 0, true, nil
}

func windowKey(scope string, length time.Duration, client string) string {
	return "rate:" + scope + ":" + length.String() + ":" + client
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int64 {
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
