package pkg

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a low-latency mutual exclusion primitive intended for
// critical sections that are O(1) and never span I/O, such as the
// engine's status and latency-statistics fields. Unlike [sync.Mutex] it
// never parks the goroutine on the OS scheduler; a contended Lock spins
// with [runtime.Gosched] until the lock is free.
//
// A SpinLock must not be copied after first use.
type SpinLock struct {
	state atomic.Bool
}

// Lock acquires the spinlock, spinning until it succeeds.
func (s *SpinLock) Lock() {
	for !s.state.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock releases the spinlock.
func (s *SpinLock) Unlock() {
	s.state.Store(false)
}

// TryLock attempts to acquire the spinlock without blocking.
func (s *SpinLock) TryLock() bool {
	return s.state.CompareAndSwap(false, true)
}
