// ABOUTME: I2S streaming engine
// ABOUTME: Binds an output format to a PIO state machine and two ping-pong DMA channels
package i2s

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/pool"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/hal"
)

// Engine streams buffers from a consumer pool to the I2S pins. Configuration
// calls (Connect*, SetEnabled, Close) are serialized; the interrupt handler
// owns the in-flight buffers while the engine is enabled.
type Engine struct {
	id    string
	board hal.Board
	sm    hal.StateMachine
	dma   hal.DMA
	cfg   Config

	input  audio.Format
	output audio.Format

	mu               sync.Mutex
	closed           bool
	handlerInstalled bool
	enabled          atomic.Bool

	consumerFormat *audio.BufferFormat
	consumer       atomic.Pointer[pool.Pool]
	producer       atomic.Pointer[pool.Pool]
	silence        *pool.Buffer

	channels  [2]uint8
	dmaConfig [2]hal.DMAConfig
	playing   [2]*pool.Buffer

	rateLock pool.SpinLock
	freq     atomic.Uint32
	divider  atomic.Uint32

	// set on the interrupt path, cleared by ReportEvents
	retunedRate   atomic.Uint32
	rejectedRate  atomic.Uint32
	reportedDrops atomic.Uint64

	callback atomic.Pointer[func()]
	worker   atomic.Pointer[worker]

	transfers      atomic.Uint64
	underruns      atomic.Uint64
	callbacks      atomic.Uint64
	droppedEvents  atomic.Uint64
	dividerUpdates atomic.Uint64
}

// Setup claims the state machine, loads the I2S program for the output
// width, allocates the silence buffer and programs the initial divider.
// The input format must currently equal the output format in width and
// channel count; the output must be stereo S16 or S32. The returned format is
// the format actually produced.
func Setup(board hal.Board, input, output audio.Format, cfg Config) (*Engine, audio.Format, error) {
	cfg.applyDefaults()

	if err := output.Validate(); err != nil {
		return nil, audio.Format{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if output.Channels != audio.Stereo {
		return nil, audio.Format{}, fmt.Errorf("%w: %d channel output", ErrUnsupportedFormat, output.Channels)
	}
	if output.PCM != audio.PCMS16 && output.PCM != audio.PCMS32 {
		return nil, audio.Format{}, fmt.Errorf("%w: %v output", ErrUnsupportedFormat, output.PCM)
	}
	if input.PCM != output.PCM || input.Channels != output.Channels {
		return nil, audio.Format{}, fmt.Errorf("%w: input %v differs from output %v", ErrUnsupportedFormat, input, output)
	}
	if cfg.DMAChannel0 == cfg.DMAChannel1 {
		return nil, audio.Format{}, fmt.Errorf("dma channels must differ, both are %d", cfg.DMAChannel0)
	}

	e := &Engine{
		id:       uuid.New().String()[:8],
		board:    board,
		dma:      board.DMA(),
		cfg:      cfg,
		input:    input,
		output:   output,
		channels: [2]uint8{cfg.DMAChannel0, cfg.DMAChannel1},
	}
	e.SetCallback(cfg.Callback)

	if err := board.ConfigurePins(cfg.DataPin, cfg.ClockPinBase); err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to configure pins: %w", err)
	}

	sm, err := board.StateMachine(cfg.StateMachine)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to get state machine %d: %w", cfg.StateMachine, err)
	}
	if err := sm.Claim(); err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to claim state machine %d: %w", cfg.StateMachine, err)
	}
	e.sm = sm

	if err := sm.LoadProgram(output.PCM.Bits(), cfg.DataPin, cfg.ClockPinBase); err != nil {
		sm.Unclaim()
		return nil, audio.Format{}, fmt.Errorf("failed to load i2s program: %w", err)
	}

	e.consumerFormat = audio.NewBufferFormat(output)
	e.silence = pool.NewWrappingBuffer(e.consumerFormat, make([]byte, cfg.SilenceSamples*e.consumerFormat.SampleStride))
	e.silence.SetSampleCount(cfg.SilenceSamples)

	if err := e.updateFrequency(output.SampleRate); err != nil {
		sm.RemoveProgram()
		sm.Unclaim()
		return nil, audio.Format{}, err
	}

	for i := range e.dmaConfig {
		e.dmaConfig[i] = hal.DMAConfig{
			Size:           hal.Size32,
			ReadIncrement:  true,
			WriteIncrement: false,
			DREQ:           sm.TxDREQ(),
			ChainTo:        e.channels[1-i],
		}
	}

	e.logf("Setup complete: %v on data pin %d, clock pins %d/%d, sm %d, dma %d/%d",
		output, cfg.DataPin, cfg.ClockPinBase, cfg.ClockPinBase+1, cfg.StateMachine, cfg.DMAChannel0, cfg.DMAChannel1)
	return e, output, nil
}

// ID returns the short instance identifier used in log lines
func (e *Engine) ID() string {
	return e.id
}

// OutputFormat returns the format the state machine was loaded for
func (e *Engine) OutputFormat() audio.Format {
	return e.output
}

// SetCallback replaces the per-transfer callback; nil installs a no-op
func (e *Engine) SetCallback(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	e.callback.Store(&fn)
}

func (e *Engine) runCallback() {
	(*e.callback.Load())()
	e.callbacks.Add(1)
}

// Enabled reports whether the engine is streaming
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// updateFrequency reprograms the divider for rate and logs the result
func (e *Engine) updateFrequency(rate uint32) error {
	if err := e.setDivider(rate); err != nil {
		return fmt.Errorf("failed to compute divider for %d Hz: %w", rate, err)
	}
	e.logDivider(rate)
	return nil
}

// setDivider reprograms the divider for rate at the consumer width. It
// neither logs nor allocates, so it is safe on the interrupt path.
func (e *Engine) setDivider(rate uint32) error {
	f := e.consumerFormat.Format
	div, err := computeDivider(e.board.SystemClockHz(), rate, f.PCM, f.Channels)
	if err != nil {
		return err
	}

	e.sm.SetClockDivider(div.Whole(), div.Frac())
	e.divider.Store(uint32(div))
	e.freq.Store(rate)
	e.dividerUpdates.Add(1)
	return nil
}

func (e *Engine) logDivider(rate uint32) {
	f := e.consumerFormat.Format
	sysHz := e.board.SystemClockHz()
	div := Divider(e.divider.Load())
	e.logf("Divider %v for %d Hz (system clock %d Hz, PIO %.4f Hz, actual %.2f Hz)",
		div, rate, sysHz, div.PIOFrequency(sysHz), div.EffectiveSampleRate(sysHz, f.PCM, f.Channels))
}

// trackRate follows run-time sample rate changes of the producer pool. It
// runs inside the interrupt handler, so outcomes are only recorded here and
// logged later by ReportEvents.
func (e *Engine) trackRate(producer *pool.Pool) {
	rate := producer.SampleRate()
	if rate == e.freq.Load() {
		return
	}

	e.rateLock.Lock()
	defer e.rateLock.Unlock()
	if rate == e.freq.Load() {
		return
	}
	if err := e.setDivider(rate); err != nil {
		// keep the last good divider
		e.freq.Store(rate)
		e.rejectedRate.Store(rate)
		return
	}
	e.retunedRate.Store(rate)
}

// ReportEvents logs what the interrupt handler recorded since the last call:
// divider changes, rejected rates and dropped worker events. Call it from
// foreground code, never from an inline callback.
func (e *Engine) ReportEvents() {
	if rate := e.retunedRate.Swap(0); rate != 0 {
		e.logDivider(rate)
	}
	if rate := e.rejectedRate.Swap(0); rate != 0 {
		e.logf("Ignoring rate change to %d Hz: no divider reaches it, keeping %v", rate, Divider(e.divider.Load()))
	}

	dropped := e.droppedEvents.Load()
	for {
		prev := e.reportedDrops.Load()
		if dropped <= prev {
			break
		}
		if e.reportedDrops.CompareAndSwap(prev, dropped) {
			e.logf("Callback worker queue full, %d events dropped", dropped-prev)
			break
		}
	}
}

// Close stops streaming if needed and releases every resource Setup and
// Connect acquired.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	var err error
	if e.enabled.Load() {
		err = e.disable()
	}
	e.ReportEvents()

	if consumer := e.consumer.Swap(nil); consumer != nil {
		n := consumer.Release()
		e.logf("Released %d consumer buffers", n)
	}
	e.producer.Store(nil)
	e.playing = [2]*pool.Buffer{}
	e.silence = nil

	e.sm.ClearFIFOs()
	e.sm.DrainTx()
	e.sm.RemoveProgram()
	e.sm.Unclaim()

	if e.handlerInstalled {
		e.dma.SetIRQHandler(nil)
		e.handlerInstalled = false
	}

	e.closed = true
	e.logf("Closed")
	return err
}

func (e *Engine) logf(format string, args ...any) {
	log.Printf("[i2s %s] "+format, append([]any{e.id}, args...)...)
}
