// ABOUTME: DMA completion interrupt handling
// ABOUTME: Retires the played buffer, issues the next transfer and runs the callback
package i2s

import (
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/pool"
)

// HandleInterrupt services one completed DMA channel, channel 0 first. It is
// installed as the shared DMA interrupt handler and never blocks.
func (e *Engine) HandleInterrupt() {
	for i, ch := range e.channels {
		if !e.dma.ChannelIRQPending(ch) {
			continue
		}
		e.dma.AcknowledgeIRQ(ch)
		e.retire(i)
		e.startTransfer(i)
		e.notify()
		return
	}
}

// retire hands the buffer channel i just played back to the consumer pool.
// The silence buffer belongs to no pool and is simply dropped.
func (e *Engine) retire(i int) {
	b := e.playing[i]
	if b == nil {
		return
	}
	e.playing[i] = nil
	if b != e.silence {
		e.consumer.Load().Give(b)
	}
}

// startTransfer programs channel i with the next prepared buffer, or with
// silence when none is ready. The channel is not triggered; the other
// channel's chain does that when it finishes.
func (e *Engine) startTransfer(i int) {
	if e.playing[i] != nil {
		panic(fmt.Errorf("i2s: channel %d issued while its transfer is in flight", e.channels[i]))
	}

	b := e.consumer.Load().Take(false)
	if b == nil {
		b = e.silence
		e.underruns.Add(1)
	}
	e.checkBuffer(b)

	words := b.SampleCount()
	f := b.Format().Format
	if f.PCM == audio.PCMS32 && f.Channels == audio.Stereo {
		words *= 2
	}

	e.dma.Configure(e.channels[i], e.dmaConfig[i], e.sm.TxFIFOAddr(), b.Data(), uint32(words), false)
	e.playing[i] = b
	e.transfers.Add(1)
}

func (e *Engine) checkBuffer(b *pool.Buffer) {
	f := b.Format().Format
	if f.PCM != e.output.PCM || f.Channels != e.output.Channels {
		panic(fmt.Errorf("%w: %v buffer for %v output", ErrFormatMismatch, f, e.output))
	}
	if b.SampleCount() == 0 {
		panic(fmt.Errorf("%w: empty buffer", ErrFormatMismatch))
	}
}

// notify runs the callback inline or posts it to the worker. It only counts
// a dropped event: logging allocates, so ReportEvents does that later. In
// worker mode an event with no worker running is dropped, never run inline.
func (e *Engine) notify() {
	if w := e.worker.Load(); w != nil {
		if !w.post(eventTransferStarted) {
			e.droppedEvents.Add(1)
		}
		return
	}
	if e.cfg.CallbackMode == CallbackWorker {
		e.droppedEvents.Add(1)
		return
	}
	e.runCallback()
}
