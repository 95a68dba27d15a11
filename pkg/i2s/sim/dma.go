// ABOUTME: Simulated DMA controller with chain-to triggering and a shared interrupt line
// ABOUTME: Detects double issue, records transfer history and dispatches the handler
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/hal"
)

// ErrIdle is returned when completing a channel that is not running
var ErrIdle = errors.New("dma channel is not running")

// DefaultHistoryLimit bounds the recorded transfer history
const DefaultHistoryLimit = 64

// Transfer records one completed DMA transfer
type Transfer struct {
	Channel uint8
	Words   uint32
	Data    []byte
}

// Silent reports whether every byte of the transfer is zero
func (t Transfer) Silent() bool {
	for _, b := range t.Data {
		if b != 0 {
			return false
		}
	}
	return true
}

type channel struct {
	claimed    bool
	cfg        hal.DMAConfig
	dst        uintptr
	src        []byte
	count      uint32
	armed      bool
	busy       bool
	irqEnabled bool
	pending    bool
	completed  uint64
}

// DMA models the DMA controller
type DMA struct {
	board *Board

	mu           sync.Mutex
	channels     [numDMAChannels]channel
	irqEnabled   bool
	handler      func()
	history      []Transfer
	historyLimit int

	// irqMu is held while the handler runs so disabling the line waits for it
	irqMu sync.Mutex
}

func newDMA(b *Board) *DMA {
	return &DMA{board: b, historyLimit: DefaultHistoryLimit}
}

func (d *DMA) channel(ch uint8) *channel {
	if int(ch) >= len(d.channels) {
		panic(fmt.Sprintf("sim: dma channel %d out of range", ch))
	}
	return &d.channels[ch]
}

func (d *DMA) Claim(ch uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.channel(ch)
	if c.claimed {
		return fmt.Errorf("%w: dma channel %d", hal.ErrClaimed, ch)
	}
	c.claimed = true
	return nil
}

func (d *DMA) Unclaim(ch uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channel(ch).claimed = false
}

// Configure panics when the channel is still transferring: reprogramming a
// busy channel is a double issue.
func (d *DMA) Configure(ch uint8, cfg hal.DMAConfig, dst uintptr, src []byte, count uint32, trigger bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.channel(ch)
	if !c.claimed {
		panic(fmt.Sprintf("sim: configure of unclaimed dma channel %d", ch))
	}
	if c.busy {
		panic(fmt.Sprintf("sim: dma channel %d reconfigured while busy", ch))
	}
	if int(count)*cfg.Size.Bytes() > len(src) {
		panic(fmt.Sprintf("sim: dma channel %d reads %d transfers past a %d byte source", ch, count, len(src)))
	}
	c.cfg = cfg
	c.dst = dst
	c.src = src
	c.count = count
	c.armed = true
	c.busy = trigger
}

func (d *DMA) Start(ch uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.channel(ch)
	if c.armed {
		c.busy = true
	}
}

func (d *DMA) Abort(ch uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.channel(ch)
	c.busy = false
	c.armed = false
}

// WaitForFinish returns at once: simulated transfers finish or abort instantly
func (d *DMA) WaitForFinish(ch uint8) {}

func (d *DMA) Cleanup(ch uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.channel(ch)
	c.cfg = hal.DMAConfig{}
	c.src = nil
	c.count = 0
	c.pending = false
}

func (d *DMA) SetChannelIRQEnabled(ch uint8, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channel(ch).irqEnabled = enabled
}

func (d *DMA) ChannelIRQPending(ch uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel(ch).pending
}

func (d *DMA) AcknowledgeIRQ(ch uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channel(ch).pending = false
}

// SetIRQEnabled gates the interrupt line. Disabling waits for a running
// handler to return.
func (d *DMA) SetIRQEnabled(enabled bool) {
	d.mu.Lock()
	d.irqEnabled = enabled
	d.mu.Unlock()

	if !enabled {
		d.irqMu.Lock()
		d.irqMu.Unlock()
	}
}

func (d *DMA) SetIRQHandler(handler func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

// Complete finishes the running transfer on ch: its bytes go to the sink,
// its interrupt is raised, the chained channel starts, and the handler runs
// until no enabled interrupt is pending.
func (d *DMA) Complete(ch uint8) error {
	d.mu.Lock()
	c := d.channel(ch)
	if !c.busy {
		d.mu.Unlock()
		return fmt.Errorf("%w: channel %d", ErrIdle, ch)
	}

	data := c.src[:int(c.count)*c.cfg.Size.Bytes()]
	c.busy = false
	c.armed = false
	c.completed++
	if c.irqEnabled {
		c.pending = true
	}
	if next := c.cfg.ChainTo; next != ch && int(next) < len(d.channels) && d.channels[next].armed {
		d.channels[next].busy = true
	}
	// the engine may recycle the buffer once the handler runs
	shifted := append([]byte(nil), data...)
	d.record(Transfer{Channel: ch, Words: c.count, Data: shifted})
	d.mu.Unlock()

	var err error
	if sink := d.board.currentSink(); sink != nil {
		if _, werr := sink.Write(shifted); werr != nil {
			err = fmt.Errorf("sink write failed: %w", werr)
		}
	}

	d.dispatch()
	return err
}

func (d *DMA) record(t Transfer) {
	d.history = append(d.history, t)
	if over := len(d.history) - d.historyLimit; over > 0 {
		d.history = append(d.history[:0], d.history[over:]...)
	}
}

func (d *DMA) dispatch() {
	d.irqMu.Lock()
	defer d.irqMu.Unlock()

	for range d.channels {
		d.mu.Lock()
		handler := d.handler
		raised := d.irqEnabled && d.raisedLocked()
		d.mu.Unlock()

		if !raised || handler == nil {
			return
		}
		handler()
	}
}

func (d *DMA) raisedLocked() bool {
	for i := range d.channels {
		if d.channels[i].pending && d.channels[i].irqEnabled {
			return true
		}
	}
	return false
}

// Busy returns the channel currently transferring for the given DREQ line
func (d *DMA) Busy(dreq uint32) (ch uint8, words uint32, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.channels {
		c := &d.channels[i]
		if c.busy && c.cfg.DREQ == dreq {
			return uint8(i), c.count, true
		}
	}
	return 0, 0, false
}

// Running reports whether ch is transferring
func (d *DMA) Running(ch uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel(ch).busy
}

// Claimed reports whether ch is claimed
func (d *DMA) Claimed(ch uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel(ch).claimed
}

// IRQEnabled reports whether the shared interrupt line is enabled
func (d *DMA) IRQEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.irqEnabled
}

// Completed returns how many transfers ch has finished
func (d *DMA) Completed(ch uint8) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel(ch).completed
}

// History returns a copy of the most recent transfers, oldest first
func (d *DMA) History() []Transfer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Transfer(nil), d.history...)
}

// SetHistoryLimit changes how many transfers are kept
func (d *DMA) SetHistoryLimit(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 1 {
		n = 1
	}
	d.historyLimit = n
	if over := len(d.history) - n; over > 0 {
		d.history = append(d.history[:0], d.history[over:]...)
	}
}
