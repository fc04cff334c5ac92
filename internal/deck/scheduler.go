package deck

import (
	"sync"
	"time"
)

// Timer is a pending settle edge.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The default uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler keeps scheduled functions until Fire is called. Used by
// tests and by drivers that want to step through transitions deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	delay   time.Duration
	f       func()
	stopped bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{s: s, delay: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for idx, p := range t.s.pending {
		if p == t {
			t.s.pending = append(t.s.pending[:idx], t.s.pending[idx+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}

// Pending returns the number of scheduled functions not yet fired or stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// LastDelay returns the delay of the most recently scheduled pending function.
func (s *ManualScheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0
	}
	return s.pending[len(s.pending)-1].delay
}

// Fire runs every pending function in scheduling order and returns how many ran.
// Functions scheduled while firing are left for the next call.
func (s *ManualScheduler) Fire() int {
	s.mu.Lock()
	due := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}
