//go:build rp2040 || rp2350

// ABOUTME: RP2040 hardware binding for the I2S engine
// ABOUTME: PIO state machines through tinygo-org/pio and GPIO through the machine package
// Package rp2 binds the i2s engine to RP2040/RP2350 hardware under TinyGo.
package rp2

import (
	"fmt"
	"machine"
	"runtime"
	"unsafe"

	pio "github.com/tinygo-org/pio/rp2-pio"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/hal"
)

// Board is the on-chip hardware used by the engine. Block selects PIO0 or PIO1.
type Board struct {
	Block *pio.PIO

	dataPin      machine.Pin
	clockPinBase machine.Pin
}

// NewBoard returns a board using PIO block 0
func NewBoard() *Board {
	return &Board{Block: pio.PIO0}
}

func (b *Board) SystemClockHz() uint32 {
	return machine.CPUFrequency()
}

func (b *Board) ConfigurePins(dataPin, clockPinBase uint8) error {
	if dataPin == clockPinBase || dataPin == clockPinBase+1 {
		return fmt.Errorf("data pin %d overlaps clock pins %d/%d", dataPin, clockPinBase, clockPinBase+1)
	}
	b.dataPin = machine.Pin(dataPin)
	b.clockPinBase = machine.Pin(clockPinBase)

	cfg := machine.PinConfig{Mode: b.Block.PinMode()}
	b.dataPin.Configure(cfg)
	b.clockPinBase.Configure(cfg)
	(b.clockPinBase + 1).Configure(cfg)
	return nil
}

func (b *Board) StateMachine(index uint8) (hal.StateMachine, error) {
	if index > 3 {
		return nil, fmt.Errorf("no state machine %d", index)
	}
	return &stateMachine{sm: b.Block.StateMachine(index), board: b}, nil
}

func (b *Board) DMA() hal.DMA {
	return controller
}

type stateMachine struct {
	sm      pio.StateMachine
	board   *Board
	offset  uint8
	length  uint8
	claimed bool
}

func (s *stateMachine) Claim() error {
	if !s.sm.TryClaim() {
		return fmt.Errorf("%w: state machine %d", hal.ErrClaimed, s.sm.StateMachineIndex())
	}
	s.claimed = true
	return nil
}

func (s *stateMachine) Unclaim() {
	if s.claimed {
		s.sm.Unclaim()
		s.claimed = false
	}
}

func (s *stateMachine) LoadProgram(bits int, dataPin, clockPinBase uint8) error {
	if bits != 16 && bits != 32 {
		return fmt.Errorf("i2s program supports 16 or 32 bit samples, not %d", bits)
	}
	program := i2sProgram(bits)
	block := s.sm.PIO()
	offset, err := block.AddProgram(program, -1)
	if err != nil {
		return fmt.Errorf("failed to add program: %w", err)
	}
	s.offset = offset
	s.length = uint8(len(program))

	asm := pio.AssemblerV0{SidesetBits: 2}
	cfg := asm.DefaultStateMachineConfig(offset, program)
	data, clock := machine.Pin(dataPin), machine.Pin(clockPinBase)
	cfg.SetOutPins(data, 1)
	cfg.SetSidesetPins(clock)
	cfg.SetOutShift(false, true, 32)
	s.sm.Init(offset, cfg)

	pinMask := uint32(1<<data) | uint32(0b11<<clock)
	s.sm.SetPindirsMasked(pinMask, pinMask)
	s.sm.SetPinsMasked(0, pinMask)
	s.sm.Jmp(pio.JmpAlways, offset+entryPoint)
	return nil
}

func (s *stateMachine) RemoveProgram() {
	if s.length == 0 {
		return
	}
	s.sm.PIO().ClearProgramSection(s.offset, s.length)
	s.length = 0
}

func (s *stateMachine) SetClockDivider(whole uint16, frac uint8) {
	s.sm.SetClkDiv(whole, frac)
}

func (s *stateMachine) SetEnabled(enabled bool) {
	s.sm.SetEnabled(enabled)
}

func (s *stateMachine) ClearFIFOs() {
	s.sm.ClearFIFOs()
}

func (s *stateMachine) DrainTx() {
	for !s.sm.IsTxFIFOEmpty() {
		runtime.Gosched()
	}
}

// TxDREQ is DREQ_PIOn_TX0 plus the state machine index
func (s *stateMachine) TxDREQ() uint32 {
	return uint32(s.sm.PIO().BlockIndex())*8 + uint32(s.sm.StateMachineIndex())
}

func (s *stateMachine) TxFIFOAddr() uintptr {
	return uintptr(unsafe.Pointer(s.sm.TxReg()))
}
