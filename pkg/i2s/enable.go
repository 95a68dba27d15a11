// ABOUTME: Start and stop of I2S streaming
// ABOUTME: Claims and primes both DMA channels, wires the interrupt, and tears it all down again
package i2s

import (
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/pool"
)

// SetEnabled starts or stops streaming. Enabling primes both DMA channels
// (with silence when nothing is prepared), hooks the interrupt and triggers
// channel 0. Disabling blocks until both channels are idle. Setting the
// current state again is a no-op.
func (e *Engine) SetEnabled(enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if enabled == e.enabled.Load() {
		return nil
	}
	if enabled {
		return e.enable()
	}
	return e.disable()
}

func (e *Engine) enable() error {
	if e.consumer.Load() == nil {
		return ErrNotConnected
	}
	e.logf("Enabling PIO I2S audio")

	// the worker must be listening before the first completion can fire
	if e.cfg.CallbackMode == CallbackWorker {
		w, err := startWorker(e.workerCallback, e.cfg.WorkerQueueDepth, e.cfg.HandshakeTimeout)
		if err != nil {
			return err
		}
		e.worker.Store(w)
	}

	ch0, ch1 := e.channels[0], e.channels[1]
	if err := e.dma.Claim(ch0); err != nil {
		e.stopWorker()
		return fmt.Errorf("failed to claim dma channel %d: %w", ch0, err)
	}
	if err := e.dma.Claim(ch1); err != nil {
		e.dma.Unclaim(ch0)
		e.stopWorker()
		return fmt.Errorf("failed to claim dma channel %d: %w", ch1, err)
	}

	e.startTransfer(0)
	e.startTransfer(1)

	if !e.handlerInstalled {
		e.dma.SetIRQHandler(e.HandleInterrupt)
		e.handlerInstalled = true
	}
	e.dma.SetChannelIRQEnabled(ch0, true)
	e.dma.SetChannelIRQEnabled(ch1, true)
	e.dma.SetIRQEnabled(true)
	e.dma.Start(ch0)

	e.sm.SetEnabled(true)
	e.enabled.Store(true)
	return nil
}

// disable stops the interrupt before the worker so no completion can find
// the worker gone.
func (e *Engine) disable() error {
	e.logf("Disabling PIO I2S audio")
	e.sm.SetEnabled(false)
	e.stopDMA()
	err := e.stopWorker()
	e.enabled.Store(false)
	e.ReportEvents()
	return err
}

func (e *Engine) stopWorker() error {
	w := e.worker.Swap(nil)
	if w == nil {
		return nil
	}
	return w.stop(e.cfg.HandshakeTimeout)
}

// workerCallback runs on the worker goroutine, where logging is allowed
func (e *Engine) workerCallback() {
	e.runCallback()
	e.ReportEvents()
}

// stopDMA silences the interrupt, waits out both channels, releases them and
// hands any in-flight buffers back to the consumer pool.
func (e *Engine) stopDMA() {
	for _, ch := range e.channels {
		e.dma.SetChannelIRQEnabled(ch, false)
	}
	e.dma.SetIRQEnabled(false)

	for _, ch := range e.channels {
		e.dma.Abort(ch)
		e.dma.WaitForFinish(ch)
		e.dma.AcknowledgeIRQ(ch)
		e.dma.Cleanup(ch)
		e.dma.Unclaim(ch)
	}

	for i := range e.playing {
		e.retire(i)
	}
}

// Stats is a snapshot of engine counters
type Stats struct {
	Enabled bool

	// Transfers counts DMA transfers issued, silence included
	Transfers uint64

	// Underruns counts transfers that fell back to silence
	Underruns uint64

	Callbacks      uint64
	DroppedEvents  uint64
	DividerUpdates uint64

	SampleRate uint32
	Divider    Divider

	// Free and Prepared are the consumer pool list lengths
	Free     int
	Prepared int
}

// Stats returns the current counters
func (e *Engine) Stats() Stats {
	s := Stats{
		Enabled:        e.enabled.Load(),
		Transfers:      e.transfers.Load(),
		Underruns:      e.underruns.Load(),
		Callbacks:      e.callbacks.Load(),
		DroppedEvents:  e.droppedEvents.Load(),
		DividerUpdates: e.dividerUpdates.Load(),
		SampleRate:     e.freq.Load(),
		Divider:        Divider(e.divider.Load()),
	}

	if consumer := e.consumer.Load(); consumer != nil {
		s.Free, s.Prepared = consumer.Counts()
	}
	return s
}

// Producer returns the connected producer pool, nil before Connect
func (e *Engine) Producer() *pool.Pool {
	return e.producer.Load()
}
