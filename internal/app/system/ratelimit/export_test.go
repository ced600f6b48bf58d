package ratelimit

import "time"

// SetClock replaces the limiter's time source in tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
