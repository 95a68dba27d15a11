// ABOUTME: Software model of an RP2040-class board for the I2S engine
// ABOUTME: Pins, PIO state machines and a DMA controller that can feed an io.Writer sink
// Package sim implements the hal interfaces in software. DMA completions are
// driven explicitly with DMA.Complete (tests) or in real time with Board.Run
// (host playback), and the bytes each transfer moves are written to the
// board's sink as the state machine would shift them out.
package sim

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/hal"
)

const (
	// DefaultSystemClockHz is the stock RP2040 system clock
	DefaultSystemClockHz = 125_000_000

	numStateMachines = 4
	numDMAChannels   = 12

	txFIFOBase uintptr = 0x50200010
	dreqPIOTx0 uint32  = 0
)

var (
	ErrPinConflict = errors.New("pin assigned twice")
	ErrNoSuchUnit  = errors.New("no such hardware unit")
)

// Board holds the simulated peripherals
type Board struct {
	clockHz uint32

	mu           sync.Mutex
	pinsSet      bool
	dataPin      uint8
	clockPinBase uint8
	sink         io.Writer

	machines [numStateMachines]*StateMachine
	dma      *DMA
}

// NewBoard creates a board running at clockHz, or DefaultSystemClockHz when zero
func NewBoard(clockHz uint32) *Board {
	if clockHz == 0 {
		clockHz = DefaultSystemClockHz
	}
	b := &Board{clockHz: clockHz}
	for i := range b.machines {
		b.machines[i] = &StateMachine{index: uint8(i)}
	}
	b.dma = newDMA(b)
	return b
}

// SetSink directs every completed transfer's bytes to w
func (b *Board) SetSink(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = w
}

func (b *Board) currentSink() io.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink
}

func (b *Board) SystemClockHz() uint32 {
	return b.clockHz
}

// ConfigurePins records the I2S pin assignment
func (b *Board) ConfigurePins(dataPin, clockPinBase uint8) error {
	if dataPin == clockPinBase || dataPin == clockPinBase+1 {
		return fmt.Errorf("%w: data pin %d overlaps clock pins %d/%d", ErrPinConflict, dataPin, clockPinBase, clockPinBase+1)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pinsSet = true
	b.dataPin = dataPin
	b.clockPinBase = clockPinBase
	return nil
}

// Pins returns the configured pin assignment
func (b *Board) Pins() (dataPin, clockPinBase uint8, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dataPin, b.clockPinBase, b.pinsSet
}

func (b *Board) StateMachine(index uint8) (hal.StateMachine, error) {
	sm, err := b.Machine(index)
	if err != nil {
		return nil, err
	}
	return sm, nil
}

// Machine returns the concrete simulated state machine
func (b *Board) Machine(index uint8) (*StateMachine, error) {
	if int(index) >= len(b.machines) {
		return nil, fmt.Errorf("%w: state machine %d", ErrNoSuchUnit, index)
	}
	return b.machines[index], nil
}

func (b *Board) DMA() hal.DMA {
	return b.dma
}

// Controller returns the concrete simulated DMA controller
func (b *Board) Controller() *DMA {
	return b.dma
}

// StateMachine models one PIO state machine running the I2S program
type StateMachine struct {
	index uint8

	mu            sync.Mutex
	claimed       bool
	loaded        bool
	enabled       bool
	bits          int
	whole         uint16
	frac          uint8
	dividerWrites int
	fifoClears    int
}

func (s *StateMachine) Claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return fmt.Errorf("%w: state machine %d", hal.ErrClaimed, s.index)
	}
	s.claimed = true
	return nil
}

func (s *StateMachine) Unclaim() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimed = false
}

func (s *StateMachine) LoadProgram(bits int, dataPin, clockPinBase uint8) error {
	if bits != 16 && bits != 32 {
		return fmt.Errorf("i2s program supports 16 or 32 bit samples, not %d", bits)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.enabled = false
	s.bits = bits
	return nil
}

func (s *StateMachine) RemoveProgram() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.bits = 0
}

func (s *StateMachine) SetClockDivider(whole uint16, frac uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whole = whole
	s.frac = frac
	s.dividerWrites++
}

func (s *StateMachine) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *StateMachine) ClearFIFOs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fifoClears++
}

func (s *StateMachine) DrainTx() {}

func (s *StateMachine) TxDREQ() uint32 {
	return dreqPIOTx0 + uint32(s.index)
}

func (s *StateMachine) TxFIFOAddr() uintptr {
	return txFIFOBase + uintptr(s.index)*4
}

// Claimed reports whether the state machine is claimed
func (s *StateMachine) Claimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed
}

// Loaded reports the program width, 0 when no program is loaded
func (s *StateMachine) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return 0
	}
	return s.bits
}

// Enabled reports whether the state machine is running
func (s *StateMachine) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// ClockDivider returns the last programmed divider and how often it was written
func (s *StateMachine) ClockDivider() (whole uint16, frac uint8, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.whole, s.frac, s.dividerWrites
}

// pioFrequency returns the state machine clock in Hz, 0 before a divider is set
func (s *StateMachine) pioFrequency(systemClockHz uint32) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	div := uint32(s.whole)<<8 | uint32(s.frac)
	if div == 0 {
		return 0
	}
	return float64(systemClockHz) * 256 / float64(div)
}
