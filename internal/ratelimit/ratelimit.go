// Package ratelimit bounds request frequency per client key. Two backends:
// an in-process fixed-window map good for a single instance, and a Redis
// counter for deployments with more than one replica.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	// Allow reports whether the request identified by key fits in the
	// current window. Implementations fail open on backend errors.
	Allow(ctx context.Context, key string) (bool, error)
}

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter held in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	store    map[string]*entry
	requests int
	window   time.Duration

	nextSweep time.Time
}

func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		store:     make(map[string]*entry),
		requests:  requests,
		window:    window,
		nextSweep: time.Now().Add(5 * time.Minute),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		for k, e := range l.store {
			if now.After(e.resetAt) {
				delete(l.store, k)
			}
		}
		l.nextSweep = now.Add(5 * time.Minute)
	}

	e, ok := l.store[key]
	if !ok || now.After(e.resetAt) {
		l.store[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}

	if e.count >= l.requests {
		return false, nil
	}
	e.count++
	return true, nil
}
