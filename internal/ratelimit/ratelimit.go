// Package ratelimit gates mutating video actions with fixed-window limits
// keyed by a fingerprint (the acting user id). Counter state lives outside
// the request path: in Redis when configured, in process memory otherwise.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLimited is returned when the fingerprint has exhausted its window.
var ErrLimited = errors.New("rate limit exceeded")

// Gate decides whether an action keyed by fingerprint may proceed.
type Gate interface {
	Allow(ctx context.Context, fingerprint string) error
}

type window struct {
	start time.Time
	count int
}

// FixedWindow is an in-memory fixed-window limiter. Windows are aligned to
// the first request of each bucket, matching the hosted limiter's semantics.
type FixedWindow struct {
	mu      sync.Mutex
	buckets map[string]*window
	size    time.Duration
	max     int
	now     func() time.Time
}

func NewFixedWindow(size time.Duration, max int) *FixedWindow {
	fw := &FixedWindow{
		buckets: make(map[string]*window),
		size:    size,
		max:     max,
		now:     time.Now,
	}
	go fw.cleanup()
	return fw
}

func (fw *FixedWindow) Allow(_ context.Context, fingerprint string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()
	b, exists := fw.buckets[fingerprint]
	if !exists || now.Sub(b.start) >= fw.size {
		fw.buckets[fingerprint] = &window{start: now, count: 1}
		return nil
	}

	if b.count >= fw.max {
		return ErrLimited
	}

	b.count++
	return nil
}

func (fw *FixedWindow) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		fw.mu.Lock()
		now := fw.now()
		for fingerprint, b := range fw.buckets {
			if now.Sub(b.start) >= fw.size {
				delete(fw.buckets, fingerprint)
			}
		}
		fw.mu.Unlock()
	}
}
