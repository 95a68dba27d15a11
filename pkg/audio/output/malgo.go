// ABOUTME: Malgo-based sink for the simulated I2S stream
// ABOUTME: Uses miniaudio via malgo with a device callback draining a byte ring
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// malgoBufferMillis sizes the ring between the simulator and the device callback
const malgoBufferMillis = 500

// Malgo plays the stream through miniaudio. The I2S wire format is already
// little-endian interleaved S16 or S32, so the callback copies bytes as is.
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	ring     *ring
	format   audio.Format
	ready    bool
}

// NewMalgo creates a new Malgo sink
func NewMalgo() *Malgo {
	return &Malgo{}
}

func (m *Malgo) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil && m.format == format {
		log.Printf("Audio output already initialized with same format, reusing device")
		return nil
	}
	if m.device != nil {
		log.Printf("Format change detected (%v -> %v), reinitializing device", m.format, format)
		m.closeDevice()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceFormat := malgo.FormatS16
	if format.PCM == audio.PCMS32 {
		deviceFormat = malgo.FormatS32
	}

	r := newRing(int(format.SampleRate) * format.Stride() * malgoBufferMillis / 1000)
	m.ring = r

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = deviceFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = format.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			_, _ = r.Read(pOutput[:int(frameCount)*format.Stride()])
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.format = format
	m.ready = true

	log.Printf("Audio output initialized: %v (malgo/%s)", format, formatName(deviceFormat))
	return nil
}

func (m *Malgo) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return 0, fmt.Errorf("output not initialized")
	}
	return m.ring.Write(p)
}

func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if err := m.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	m.device.Uninit()
	m.device = nil
	m.ready = false
	log.Printf("Malgo sink closed: %d bytes dropped, %d underruns", m.ring.dropped.Load(), m.ring.underruns.Load())
}

func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
