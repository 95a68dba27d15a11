// ABOUTME: Board profile configuration loaded from YAML
// ABOUTME: Pins, DMA channels, state machine, output format, buffering and callback mode
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/sim"
)

var ErrInvalid = errors.New("invalid board profile")

// Profile describes one board and how the demo drives it
type Profile struct {
	Name          string `yaml:"name"`
	SystemClockHz uint32 `yaml:"system_clock_hz"`

	Pins struct {
		Data      uint8 `yaml:"data"`
		ClockBase uint8 `yaml:"clock_base"`
	} `yaml:"pins"`

	DMA struct {
		Channel0 uint8 `yaml:"channel0"`
		Channel1 uint8 `yaml:"channel1"`
	} `yaml:"dma"`

	StateMachine uint8 `yaml:"state_machine"`

	Audio struct {
		SampleRate uint32 `yaml:"sample_rate"`
		Bits       int    `yaml:"bits"`
	} `yaml:"audio"`

	Buffers struct {
		Producer int  `yaml:"producer"`
		Consumer int  `yaml:"consumer"`
		Samples  int  `yaml:"samples"`
		OnGive   bool `yaml:"on_give"`
		Silence  int  `yaml:"silence_samples"`
	} `yaml:"buffers"`

	Callback struct {
		Mode             string        `yaml:"mode"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		QueueDepth       int           `yaml:"queue_depth"`
	} `yaml:"callback"`
}

// Default returns the profile of a stock Pico with a 48 kHz 16-bit DAC
func Default() *Profile {
	p := &Profile{Name: "pico"}
	p.applyDefaults()
	return p
}

// Load reads a profile from path. Missing fields take their defaults.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile and validates it
func Parse(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) applyDefaults() {
	if p.SystemClockHz == 0 {
		p.SystemClockHz = sim.DefaultSystemClockHz
	}
	if p.Pins.Data == 0 && p.Pins.ClockBase == 0 {
		p.Pins.Data = i2s.DefaultDataPin
		p.Pins.ClockBase = i2s.DefaultClockPinBase
	}
	if p.DMA.Channel0 == 0 && p.DMA.Channel1 == 0 {
		p.DMA.Channel1 = 1
	}
	if p.Audio.SampleRate == 0 {
		p.Audio.SampleRate = 48000
	}
	if p.Audio.Bits == 0 {
		p.Audio.Bits = 16
	}
	if p.Buffers.Producer == 0 {
		p.Buffers.Producer = 3
	}
	if p.Buffers.Consumer == 0 {
		p.Buffers.Consumer = i2s.DefaultBufferCount
	}
	if p.Buffers.Samples == 0 {
		p.Buffers.Samples = i2s.DefaultBufferSamples
	}
	if p.Buffers.Silence == 0 {
		p.Buffers.Silence = i2s.DefaultSilenceSamples
	}
	if p.Callback.Mode == "" {
		p.Callback.Mode = i2s.CallbackInline.String()
	}
	if p.Callback.HandshakeTimeout == 0 {
		p.Callback.HandshakeTimeout = i2s.DefaultHandshakeTimeout
	}
	if p.Callback.QueueDepth == 0 {
		p.Callback.QueueDepth = i2s.DefaultWorkerQueueDepth
	}
}

// Validate checks the profile for values the engine would reject
func (p *Profile) Validate() error {
	if p.Pins.Data == p.Pins.ClockBase || p.Pins.Data == p.Pins.ClockBase+1 {
		return fmt.Errorf("%w: data pin %d overlaps clock pins %d/%d", ErrInvalid, p.Pins.Data, p.Pins.ClockBase, p.Pins.ClockBase+1)
	}
	if p.DMA.Channel0 == p.DMA.Channel1 {
		return fmt.Errorf("%w: dma channels must differ, both are %d", ErrInvalid, p.DMA.Channel0)
	}
	if p.DMA.Channel0 > 11 || p.DMA.Channel1 > 11 {
		return fmt.Errorf("%w: dma channels must be below 12", ErrInvalid)
	}
	if p.StateMachine > 3 {
		return fmt.Errorf("%w: state machine %d out of range", ErrInvalid, p.StateMachine)
	}
	if _, err := p.PCM(); err != nil {
		return err
	}
	if p.Buffers.Producer < 1 || p.Buffers.Consumer < 1 || p.Buffers.Samples < 1 || p.Buffers.Silence < 1 {
		return fmt.Errorf("%w: buffer counts and sizes must be positive", ErrInvalid)
	}
	if _, err := p.CallbackMode(); err != nil {
		return err
	}
	if p.Callback.HandshakeTimeout < 0 || p.Callback.QueueDepth < 1 {
		return fmt.Errorf("%w: callback timeout and queue depth must be positive", ErrInvalid)
	}
	if _, err := i2s.ComputeDivider(p.SystemClockHz, p.Audio.SampleRate, mustPCM(p), audio.Stereo); err != nil {
		return fmt.Errorf("%w: %d Hz at %d Hz system clock: %v", ErrInvalid, p.Audio.SampleRate, p.SystemClockHz, err)
	}
	return nil
}

// PCM returns the output sample encoding
func (p *Profile) PCM() (audio.PCMFormat, error) {
	switch p.Audio.Bits {
	case 16:
		return audio.PCMS16, nil
	case 32:
		return audio.PCMS32, nil
	default:
		return 0, fmt.Errorf("%w: %d bit output, need 16 or 32", ErrInvalid, p.Audio.Bits)
	}
}

func mustPCM(p *Profile) audio.PCMFormat {
	pcm, _ := p.PCM()
	return pcm
}

// Format returns the stereo output format
func (p *Profile) Format() audio.Format {
	return audio.Format{
		SampleRate: p.Audio.SampleRate,
		PCM:        mustPCM(p),
		Channels:   audio.Stereo,
	}
}

// CallbackMode parses the callback mode name
func (p *Profile) CallbackMode() (i2s.CallbackMode, error) {
	switch p.Callback.Mode {
	case i2s.CallbackInline.String():
		return i2s.CallbackInline, nil
	case i2s.CallbackWorker.String():
		return i2s.CallbackWorker, nil
	default:
		return 0, fmt.Errorf("%w: callback mode %q", ErrInvalid, p.Callback.Mode)
	}
}

// EngineConfig converts the profile to an engine hardware assignment
func (p *Profile) EngineConfig() i2s.Config {
	mode, _ := p.CallbackMode()
	cfg := i2s.DefaultConfig()
	cfg.DataPin = p.Pins.Data
	cfg.ClockPinBase = p.Pins.ClockBase
	cfg.DMAChannel0 = p.DMA.Channel0
	cfg.DMAChannel1 = p.DMA.Channel1
	cfg.StateMachine = p.StateMachine
	cfg.SilenceSamples = p.Buffers.Silence
	cfg.CallbackMode = mode
	cfg.HandshakeTimeout = p.Callback.HandshakeTimeout
	cfg.WorkerQueueDepth = p.Callback.QueueDepth
	return cfg
}
