package services

import "sync"

// pollLocks is a non-blocking advisory lock per poll id.
type pollLocks struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func newPollLocks() *pollLocks {
	return &pollLocks{held: make(map[int64]struct{})}
}

func (l *pollLocks) TryLock(pollID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[pollID]; ok {
		return false
	}
	l.held[pollID] = struct{}{}
	return true
}

func (l *pollLocks) Unlock(pollID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, pollID)
}
