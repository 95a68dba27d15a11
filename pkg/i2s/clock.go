// ABOUTME: PIO clock divider computation
// ABOUTME: Converts a target sample rate to a 16.8 fixed point divider and back
package i2s

import (
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

const (
	maxSystemClock = 1 << 30
	maxDivider     = 1 << 24
)

// Divider is a 16.8 fixed point PIO clock divider: system clock ticks per
// PIO cycle in 1/256ths. The I2S program spends two PIO cycles per bit clock.
type Divider uint32

// ComputeDivider returns the divider that runs the I2S program at rate
// samples per second for the given sample width and channel count.
func ComputeDivider(systemClockHz, rate uint32, pcm audio.PCMFormat, channels int) (Divider, error) {
	d, err := computeDivider(systemClockHz, rate, pcm, channels)
	if err != nil {
		return 0, fmt.Errorf("%w: %d Hz %v x%d from a %d Hz clock", err, rate, pcm, channels, systemClockHz)
	}
	return d, nil
}

// computeDivider returns bare sentinel errors so it can run from the
// interrupt handler without allocating.
func computeDivider(systemClockHz, rate uint32, pcm audio.PCMFormat, channels int) (Divider, error) {
	if systemClockHz >= maxSystemClock {
		return 0, ErrClockTooFast
	}
	factor, ok := bitClockFactor(pcm)
	if !ok || rate == 0 || channels <= 0 {
		return 0, ErrUnsupportedFormat
	}

	d := uint64(systemClockHz) * factor * uint64(channels) / uint64(rate)
	if d >= maxDivider {
		return 0, ErrDividerOverflow
	}
	if d < 1<<8 {
		return 0, ErrDividerTooSmall
	}
	return Divider(d), nil
}

func bitClockFactor(pcm audio.PCMFormat) (uint64, bool) {
	switch pcm.Bits() {
	case 8:
		return 4, true
	case 16:
		return 2, true
	case 32:
		return 1, true
	default:
		return 0, false
	}
}

// Whole returns the integer part of the divider
func (d Divider) Whole() uint16 {
	return uint16(d >> 8)
}

// Frac returns the fractional part in 1/256ths
func (d Divider) Frac() uint8 {
	return uint8(d & 0xff)
}

// Float returns the divider as a plain number
func (d Divider) Float() float64 {
	return float64(d) / 256
}

// PIOFrequency returns the state machine clock in Hz
func (d Divider) PIOFrequency(systemClockHz uint32) float64 {
	if d == 0 {
		return 0
	}
	return float64(systemClockHz) * 256 / float64(d)
}

// EffectiveSampleRate returns the sample rate the divider actually produces
func (d Divider) EffectiveSampleRate(systemClockHz uint32, pcm audio.PCMFormat, channels int) float64 {
	factor, ok := bitClockFactor(pcm)
	if !ok || d == 0 {
		return 0
	}
	return float64(systemClockHz) * float64(factor) * float64(channels) / float64(d)
}

func (d Divider) String() string {
	return fmt.Sprintf("%d+%d/256", d.Whole(), d.Frac())
}
