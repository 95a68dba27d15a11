// ABOUTME: Real-time pacing of simulated DMA transfers
// ABOUTME: Completes each transfer after the time the state machine needs to shift it out
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// pioCyclesPerWord is one 32-bit FIFO word: 32 bit clocks of 2 PIO cycles
	pioCyclesPerWord = 64

	idlePoll = time.Millisecond

	// maxLag resets the schedule when the host falls this far behind
	maxLag = 100 * time.Millisecond
)

// TransferDuration returns how long the state machine takes to shift words
// FIFO words at its current divider, 0 when no divider is programmed.
func (b *Board) TransferDuration(sm *StateMachine, words uint32) time.Duration {
	freq := sm.pioFrequency(b.clockHz)
	if freq == 0 {
		return 0
	}
	return time.Duration(float64(words) * pioCyclesPerWord / freq * float64(time.Second))
}

// Run completes the transfers feeding state machine index in real time until
// ctx is cancelled. It idles while the state machine is stopped or no
// channel is transferring.
func (b *Board) Run(ctx context.Context, index uint8) error {
	sm, err := b.Machine(index)
	if err != nil {
		return err
	}

	var deadline time.Time
	for {
		if ctx.Err() != nil {
			return nil
		}

		ch, words, ok := b.dma.Busy(sm.TxDREQ())
		d := b.TransferDuration(sm, words)
		if !ok || !sm.Enabled() || d == 0 {
			deadline = time.Time{}
			if !sleep(ctx, idlePoll) {
				return nil
			}
			continue
		}

		now := time.Now()
		if deadline.IsZero() || now.Sub(deadline) > maxLag {
			deadline = now
		}
		deadline = deadline.Add(d)
		if !sleep(ctx, time.Until(deadline)) {
			return nil
		}

		if err := b.dma.Complete(ch); err != nil && !errors.Is(err, ErrIdle) {
			return fmt.Errorf("dma channel %d: %w", ch, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
