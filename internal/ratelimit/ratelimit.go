// Package ratelimit caps how many commands one sender may issue within a
// sliding window.
package ratelimit

import (
	"sync"
	"time"

	"weekly_poll_bot/internal/clock"
)

type SlidingWindow struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration
	limit  int
	hits   map[string][]time.Time
}

func NewSlidingWindow(c clock.Clock, window time.Duration, limit int) *SlidingWindow {
	return &SlidingWindow{
		clock:  c,
		window: window,
		limit:  limit,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a hit for key and reports whether it fits in the window.
// Expired hits are dropped here; nothing sweeps in the background.
func (w *SlidingWindow) Allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	cutoff := now.Add(-w.window)

	kept := w.hits[key][:0]
	for _, hit := range w.hits[key] {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}

	if len(kept) >= w.limit {
		w.hits[key] = kept
		return false
	}

	w.hits[key] = append(kept, now)
	return true
}

// Tracked returns the number of senders with hits still in memory.
func (w *SlidingWindow) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	count := 0
	for _, hits := range w.hits {
		if len(hits) > 0 {
			count++
		}
	}
	return count
}
