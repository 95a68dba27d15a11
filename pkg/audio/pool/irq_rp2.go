//go:build rp2040 || rp2350

// ABOUTME: Interrupt masking for RP2040 builds
// ABOUTME: List locks save and disable interrupts on the current core while held
package pool

import "runtime/interrupt"

type interruptState = interrupt.State

func disableInterrupts() interruptState {
	return interrupt.Disable()
}

func restoreInterrupts(s interruptState) {
	interrupt.Restore(s)
}

// spinWait never yields: it may run in an interrupt handler
func spinWait() {}
