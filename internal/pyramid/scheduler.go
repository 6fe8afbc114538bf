package pyramid

import (
	"sync"
	"time"
)

// Scheduler coalesces bursts of viewport changes into delayed layer updates.
//
// With throttle set, an update runs every interval while changes keep coming. Otherwise every
// change restarts the delay and the update runs once the viewport has settled.
type Scheduler struct {
	interval time.Duration
	throttle bool
	update   func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

func NewScheduler(interval time.Duration, throttle bool, update func()) *Scheduler {
	return &Scheduler{interval: interval, throttle: throttle, update: update}
}

// Schedule requests a delayed update.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.pending {
		if s.throttle {
			return
		}
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending = true
	s.timer = time.AfterFunc(s.interval, func() { s.fire(gen) })
}

// Cancel drops a pending update, e.g. because the caller updates immediately.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Pending reports whether an update is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Stop cancels a pending update and ignores further requests.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stopped = true
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.pending = false
}

// fire runs the update unless the timer was superseded after it had already expired.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.pending || s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	s.update()
}
