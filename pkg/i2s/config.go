// ABOUTME: I2S engine configuration and errors
// ABOUTME: Pin, DMA and state machine assignment plus callback mode and defaults
package i2s

import (
	"errors"
	"time"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrClockTooFast       = errors.New("system clock too fast for divider math")
	ErrDividerOverflow    = errors.New("clock divider overflow")
	ErrDividerTooSmall    = errors.New("clock divider below 1")
	ErrNotConnected       = errors.New("no producer connected")
	ErrEnabled            = errors.New("engine is enabled")
	ErrClosed             = errors.New("engine is closed")
	ErrWorkerUnresponsive = errors.New("callback worker did not respond")

	// ErrFormatMismatch is the panic value when a buffer handed to DMA does
	// not match the format the state machine was loaded for.
	ErrFormatMismatch = errors.New("buffer format does not match output")
)

// CallbackMode selects where the per-transfer callback runs
type CallbackMode uint8

const (
	// CallbackInline runs the callback inside the interrupt handler
	CallbackInline CallbackMode = iota

	// CallbackWorker posts an event to a dedicated worker goroutine
	CallbackWorker
)

func (m CallbackMode) String() string {
	if m == CallbackWorker {
		return "worker"
	}
	return "inline"
}

// Default hardware assignment and sizing
const (
	DefaultDataPin          = 18
	DefaultClockPinBase     = 16
	DefaultSilenceSamples   = 256
	DefaultHandshakeTimeout = 10 * time.Millisecond
	DefaultWorkerQueueDepth = 8

	// DefaultBufferCount and DefaultBufferSamples size the consumer pool
	// built by Connect and ConnectThrough.
	DefaultBufferCount   = 2
	DefaultBufferSamples = 256
)

// Config assigns hardware to the engine
type Config struct {
	DataPin      uint8
	ClockPinBase uint8 // LRCLK is ClockPinBase+1
	DMAChannel0  uint8
	DMAChannel1  uint8
	StateMachine uint8

	// SilenceSamples is the length of the buffer played on underrun
	SilenceSamples int

	// Callback runs once per DMA completion after the next transfer is set up
	Callback     func()
	CallbackMode CallbackMode

	// HandshakeTimeout bounds worker start and stop acknowledgements
	HandshakeTimeout time.Duration
	WorkerQueueDepth int
}

// DefaultConfig returns the stock pin and channel assignment
func DefaultConfig() Config {
	return Config{
		DataPin:          DefaultDataPin,
		ClockPinBase:     DefaultClockPinBase,
		DMAChannel0:      0,
		DMAChannel1:      1,
		StateMachine:     0,
		SilenceSamples:   DefaultSilenceSamples,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WorkerQueueDepth: DefaultWorkerQueueDepth,
	}
}

func (c *Config) applyDefaults() {
	if c.SilenceSamples <= 0 {
		c.SilenceSamples = DefaultSilenceSamples
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WorkerQueueDepth <= 0 {
		c.WorkerQueueDepth = DefaultWorkerQueueDepth
	}
}
