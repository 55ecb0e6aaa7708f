// Package schedule provides delayed callback execution serialized on a
// caller-provided lock.
package schedule

import (
	"sync"
	"time"
)

// Handle identifies a single scheduled callback.
type Handle uint64

// Scheduler runs callbacks after a delay. Callbacks, cancellation and
// inspection are all serialized on the Locker given to New, similar to how
// sync.Cond is bound to a Locker: the caller must hold the lock when calling
// After, Cancel, CancelAll and Len, and callbacks are invoked with the lock
// held. An expired timer re-checks its registration under the lock before
// running its callback, so a callback canceled while its timer was expiring
// never runs.
type Scheduler struct {
	locker  sync.Locker
	seq     Handle
	pending map[Handle]*time.Timer
}

// New creates a Scheduler serialized on l.
func New(l sync.Locker) *Scheduler {
	return &Scheduler{locker: l, pending: make(map[Handle]*time.Timer)}
}

// After schedules fn to run after at least d elapsed.
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	s.seq++
	h := s.seq
	s.pending[h] = time.AfterFunc(d, func() { s.fire(h, fn) })
	return h
}

func (s *Scheduler) fire(h Handle, fn func()) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if _, ok := s.pending[h]; !ok {
		return // Canceled before the lock was acquired.
	}
	delete(s.pending, h)
	fn()
}

// Cancel cancels the pending callback h.
// Returns false if h already fired or was already canceled.
func (s *Scheduler) Cancel(h Handle) bool {
	t, ok := s.pending[h]
	if !ok {
		return false
	}
	delete(s.pending, h)
	t.Stop()
	return true
}

// CancelAll cancels all pending callbacks. Noop if none are pending.
func (s *Scheduler) CancelAll() {
	for h, t := range s.pending {
		delete(s.pending, h)
		t.Stop()
	}
}

// Len returns the number of currently pending callbacks.
func (s *Scheduler) Len() int { return len(s.pending) }
