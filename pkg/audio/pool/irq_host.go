//go:build !rp2040 && !rp2350

// ABOUTME: Interrupt masking for hosted builds
// ABOUTME: Simulated interrupts run on their own goroutine, so masking is a no-op
package pool

import "runtime"

type interruptState uint32

// Variables so tests can model a core that defers interrupts while masked.
var (
	disableInterrupts = func() interruptState { return 0 }
	restoreInterrupts = func(interruptState) {}
)

func spinWait() {
	runtime.Gosched()
}
