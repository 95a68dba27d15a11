// ABOUTME: Synchronization primitives for buffer lists
// ABOUTME: Spin lock over an atomic word and a wait/signal event safe to signal from interrupts
package pool

import (
	"context"
	"sync/atomic"
	"time"
)

// eventPoll bounds how long a waiter sleeps without a signal before re-checking.
const eventPoll = time.Millisecond

// SpinLock guards a single buffer list. It never sleeps, so it may be taken
// from interrupt context; critical sections must stay a few instructions long.
// Interrupts are masked while the lock is held, so an interrupt handler
// touching the same list cannot preempt its holder.
type SpinLock struct {
	state atomic.Uint32
	saved interruptState
}

// Lock spins until the lock is acquired
func (l *SpinLock) Lock() {
	for {
		s := disableInterrupts()
		if l.state.CompareAndSwap(0, 1) {
			l.saved = s
			return
		}
		restoreInterrupts(s)
		spinWait()
	}
}

// TryLock acquires the lock if it is free
func (l *SpinLock) TryLock() bool {
	s := disableInterrupts()
	if !l.state.CompareAndSwap(0, 1) {
		restoreInterrupts(s)
		return false
	}
	l.saved = s
	return true
}

// Unlock releases the lock and restores the interrupt mask saved by Lock
func (l *SpinLock) Unlock() {
	s := l.saved
	l.state.Store(0)
	restoreInterrupts(s)
}

// Event is a wait-for-event / send-event pair. Signal never blocks and never
// allocates. Wakeups may be spurious, so callers re-check their condition in a
// loop, checking before every Wait.
type Event struct {
	wake chan struct{}
}

// NewEvent creates an event with no pending signal
func NewEvent() *Event {
	return &Event{wake: make(chan struct{}, 1)}
}

// Signal wakes a waiter. A signal with no waiter stays pending until the next
// Wait, so a signal between a failed check and Wait is not lost.
func (e *Event) Signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until a signal arrives, the poll interval passes or ctx ends.
func (e *Event) Wait(ctx context.Context) error {
	timer := time.NewTimer(eventPoll)
	defer timer.Stop()

	select {
	case <-e.wake:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
