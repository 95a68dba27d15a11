//go:build rp2040 || rp2350

// ABOUTME: PIO program for I2S output with BCLK and LRCLK on side-set pins
// ABOUTME: Assembled at run time for 16 or 32 bit channel samples
package rp2

import (
	pio "github.com/tinygo-org/pio/rp2-pio"
)

const (
	bitloop1   = 0
	bitloop0   = 4
	entryPoint = 7
)

// i2sProgram returns the pico-extras audio_i2s program. Side-set bit 0 is
// BCLK and bit 1 is LRCLK; each channel shifts bits sample bits MSB first.
func i2sProgram(bits int) []uint16 {
	x := uint8(bits - 2)
	asm := pio.AssemblerV0{SidesetBits: 2}
	program := [...]uint16{
		bitloop1:
		asm.Out(pio.OutDestPins, 1).Side(0b10).Encode(),
		asm.Jmp(pio.JmpXNZeroDec, bitloop1).Side(0b11).Encode(),
		asm.Out(pio.OutDestPins, 1).Side(0b00).Encode(),
		asm.Set(pio.SetDestX, x).Side(0b01).Encode(),

		bitloop0:
		asm.Out(pio.OutDestPins, 1).Side(0b00).Encode(),
		asm.Jmp(pio.JmpXNZeroDec, bitloop0).Side(0b01).Encode(),
		asm.Out(pio.OutDestPins, 1).Side(0b10).Encode(),
		asm.Set(pio.SetDestX, x).Side(0b11).Encode(),
	}
	return program[:]
}
