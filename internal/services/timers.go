package services

import (
	"sync"
	"time"

	"weekly_poll_bot/internal/clock"
)

type timerKind int

const (
	closeTimer timerKind = iota
	tieTimer
)

func (k timerKind) String() string {
	if k == tieTimer {
		return "tie"
	}
	return "close"
}

type timerKey struct {
	pollID int64
	kind   timerKind
}

type pendingTimer struct {
	deadline time.Time
	timer    clock.Timer
	fire     func()
}

// timerRegistry keeps at most one timer per poll and kind. A timer never
// waits longer than maxDelay in one go: when it wakes before the stored
// deadline it arms itself again.
type timerRegistry struct {
	mu       sync.Mutex
	clock    clock.Clock
	maxDelay time.Duration
	timers   map[timerKey]*pendingTimer
}

func newTimerRegistry(c clock.Clock, maxDelay time.Duration) *timerRegistry {
	return &timerRegistry{
		clock:    c,
		maxDelay: maxDelay,
		timers:   make(map[timerKey]*pendingTimer),
	}
}

// Schedule replaces any timer for the same key.
func (r *timerRegistry) Schedule(key timerKey, deadline time.Time, fire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.timers[key]; ok {
		existing.timer.Stop()
	}

	entry := &pendingTimer{deadline: deadline, fire: fire}
	r.timers[key] = entry
	r.arm(key, entry)
}

// ScheduleIfAbsent keeps an existing timer for the key and reports whether a
// new one was armed.
func (r *timerRegistry) ScheduleIfAbsent(key timerKey, deadline time.Time, fire func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timers[key]; ok {
		return false
	}

	entry := &pendingTimer{deadline: deadline, fire: fire}
	r.timers[key] = entry
	r.arm(key, entry)
	return true
}

func (r *timerRegistry) arm(key timerKey, entry *pendingTimer) {
	delay := entry.deadline.Sub(r.clock.Now())
	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	entry.timer = r.clock.AfterFunc(delay, func() {
		r.wake(key, entry)
	})
}

func (r *timerRegistry) wake(key timerKey, entry *pendingTimer) {
	r.mu.Lock()
	if r.timers[key] != entry {
		r.mu.Unlock()
		return
	}
	if r.clock.Now().Before(entry.deadline) {
		r.arm(key, entry)
		r.mu.Unlock()
		return
	}
	delete(r.timers, key)
	r.mu.Unlock()

	entry.fire()
}

func (r *timerRegistry) Cancel(pollID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range []timerKind{closeTimer, tieTimer} {
		key := timerKey{pollID: pollID, kind: kind}
		if entry, ok := r.timers[key]; ok {
			entry.timer.Stop()
			delete(r.timers, key)
		}
	}
}

func (r *timerRegistry) Deadline(key timerKey) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.timers[key]
	if !ok {
		return time.Time{}, false
	}
	return entry.deadline, true
}

func (r *timerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *timerRegistry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.timers {
		entry.timer.Stop()
		delete(r.timers, key)
	}
}
