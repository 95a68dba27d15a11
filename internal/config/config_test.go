// ABOUTME: Tests for board profile parsing and validation
// ABOUTME: Checks defaults, YAML overrides and rejected profiles
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s"
)

func TestDefault(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())

	assert.Equal(t, uint32(125_000_000), p.SystemClockHz)
	assert.Equal(t, audio.Format{SampleRate: 48000, PCM: audio.PCMS16, Channels: audio.Stereo}, p.Format())

	cfg := p.EngineConfig()
	assert.Equal(t, i2s.DefaultConfig(), cfg)
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(`
name: dac-board
system_clock_hz: 96000000
pins:
  data: 9
  clock_base: 10
dma:
  channel0: 4
  channel1: 5
state_machine: 2
audio:
  sample_rate: 44100
  bits: 32
buffers:
  consumer: 3
  samples: 128
  on_give: true
callback:
  mode: worker
  handshake_timeout: 25ms
  queue_depth: 2
`))
	require.NoError(t, err)

	assert.Equal(t, "dac-board", p.Name)
	assert.Equal(t, audio.Format{SampleRate: 44100, PCM: audio.PCMS32, Channels: audio.Stereo}, p.Format())
	assert.True(t, p.Buffers.OnGive)
	assert.Equal(t, 3, p.Buffers.Producer, "unset fields keep their defaults")

	cfg := p.EngineConfig()
	assert.Equal(t, uint8(9), cfg.DataPin)
	assert.Equal(t, uint8(10), cfg.ClockPinBase)
	assert.Equal(t, uint8(4), cfg.DMAChannel0)
	assert.Equal(t, uint8(5), cfg.DMAChannel1)
	assert.Equal(t, uint8(2), cfg.StateMachine)
	assert.Equal(t, i2s.CallbackWorker, cfg.CallbackMode)
	assert.Equal(t, 25*time.Millisecond, cfg.HandshakeTimeout)
	assert.Equal(t, 2, cfg.WorkerQueueDepth)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"data pin on clock", "pins: {data: 17, clock_base: 16}"},
		{"same dma channels", "dma: {channel0: 3, channel1: 3}"},
		{"dma channel out of range", "dma: {channel0: 0, channel1: 12}"},
		{"state machine out of range", "state_machine: 4"},
		{"8 bit output", "audio: {bits: 8}"},
		{"rate too low for divider", "audio: {sample_rate: 20}"},
		{"negative buffers", "buffers: {samples: -1}"},
		{"unknown callback mode", "callback: {mode: core1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("pins: [not, a, map]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse profile")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  sample_rate: 22050\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(22050), p.Audio.SampleRate)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
