// ABOUTME: Hardware abstraction for the I2S engine
// ABOUTME: Board, PIO state machine and DMA controller interfaces implemented by rp2 and sim
// Package hal describes the peripherals the I2S engine drives: a programmable
// I/O state machine that shifts out the I2S waveform and a DMA controller
// whose channels feed the state machine's TX FIFO and raise a shared interrupt.
//
// The rp2 package implements it on RP2040/RP2350 hardware with TinyGo; the sim
// package implements it in software for tests and host playback.
package hal

import (
	"errors"
	"fmt"
)

// ErrClaimed is returned when a state machine or DMA channel is already in use
var ErrClaimed = errors.New("resource already claimed")

// Board exposes the peripherals of one microcontroller
type Board interface {
	// SystemClockHz returns the measured system clock frequency
	SystemClockHz() uint32

	// ConfigurePins routes the data pin and the two clock pins
	// (clockPinBase and clockPinBase+1) to the PIO block.
	ConfigurePins(dataPin, clockPinBase uint8) error

	StateMachine(index uint8) (StateMachine, error)
	DMA() DMA
}

// StateMachine is one PIO state machine running the I2S program
type StateMachine interface {
	Claim() error
	Unclaim()

	// LoadProgram installs and initializes the I2S program for 16 or 32 bit
	// samples. The state machine is left disabled.
	LoadProgram(bits int, dataPin, clockPinBase uint8) error
	RemoveProgram()

	// SetClockDivider programs the 16.8 fixed point clock divider
	SetClockDivider(whole uint16, frac uint8)
	SetEnabled(enabled bool)

	ClearFIFOs()
	DrainTx()

	// TxDREQ is the DMA request line paced by the TX FIFO
	TxDREQ() uint32

	// TxFIFOAddr is the bus address DMA writes samples to
	TxFIFOAddr() uintptr
}

// TransferSize is the width of one DMA transfer
type TransferSize uint8

const (
	Size8 TransferSize = iota
	Size16
	Size32
)

// Bytes returns the transfer width in bytes
func (s TransferSize) Bytes() int {
	switch s {
	case Size8:
		return 1
	case Size16:
		return 2
	case Size32:
		return 4
	default:
		panic(fmt.Sprintf("hal: invalid transfer size %d", s))
	}
}

// DMAConfig is a channel control word prepared ahead of time
type DMAConfig struct {
	Size           TransferSize
	ReadIncrement  bool
	WriteIncrement bool
	DREQ           uint32
	ChainTo        uint8
}

// DMA is the DMA controller with one shared interrupt line
type DMA interface {
	Claim(ch uint8) error
	Unclaim(ch uint8)

	// Configure programs a channel to move count transfers from src to dst.
	// Without trigger the channel waits for Start or a chain trigger.
	Configure(ch uint8, cfg DMAConfig, dst uintptr, src []byte, count uint32, trigger bool)
	Start(ch uint8)
	Abort(ch uint8)
	WaitForFinish(ch uint8)
	Cleanup(ch uint8)

	SetChannelIRQEnabled(ch uint8, enabled bool)
	ChannelIRQPending(ch uint8) bool
	AcknowledgeIRQ(ch uint8)

	// SetIRQEnabled gates the shared interrupt line
	SetIRQEnabled(enabled bool)

	// SetIRQHandler installs the shared interrupt handler; nil removes it
	SetIRQHandler(handler func())
}
