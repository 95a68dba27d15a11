// ABOUTME: Sine tone generator with volume and mute
// ABOUTME: Phase-continuous across reads so buffer boundaries are inaudible
package source

import (
	"fmt"
	"log"
	"math"
	"sync"
)

const (
	// DefaultToneFrequency is A4
	DefaultToneFrequency = 440.0

	// DefaultVolume is the initial tone volume in percent
	DefaultVolume = 50
)

// Tone generates a stereo sine wave
type Tone struct {
	mu        sync.Mutex
	frequency float64
	rate      uint32
	phase     float64
	volume    int
	muted     bool
}

// NewTone creates a tone of freq Hz sampled at rate
func NewTone(freq float64, rate uint32) *Tone {
	if freq <= 0 {
		freq = DefaultToneFrequency
	}
	return &Tone{
		frequency: freq,
		rate:      rate,
		volume:    DefaultVolume,
	}
}

func (t *Tone) Read(samples []int32) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	amplitude := 0.0
	if !t.muted {
		amplitude = float64(math.MaxInt32) * float64(t.volume) / 100
	}
	step := 2 * math.Pi * t.frequency / float64(t.rate)

	frames := len(samples) / 2
	for i := 0; i < frames; i++ {
		v := int32(math.Sin(t.phase) * amplitude)
		samples[2*i] = v
		samples[2*i+1] = v
		t.phase += step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return frames * 2, nil
}

func (t *Tone) SampleRate() uint32 { return t.rate }
func (t *Tone) Channels() int      { return 2 }
func (t *Tone) Title() string      { return fmt.Sprintf("Test Tone %.0f Hz", t.frequency) }
func (t *Tone) Close() error       { return nil }

// SetVolume sets the volume (0-100)
func (t *Tone) SetVolume(volume int) {
	volume = min(max(volume, 0), 100)
	t.mu.Lock()
	t.volume = volume
	t.mu.Unlock()
	log.Printf("Volume set to %d", volume)
}

// Volume returns the current volume
func (t *Tone) Volume() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// SetMuted sets mute state
func (t *Tone) SetMuted(muted bool) {
	t.mu.Lock()
	t.muted = muted
	t.mu.Unlock()
	log.Printf("Muted: %v", muted)
}

// Muted returns mute state
func (t *Tone) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}
