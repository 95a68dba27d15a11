// ABOUTME: Oto-based sink for the simulated I2S stream
// ABOUTME: Plays 16-bit frames through a persistent oto player fed from a byte ring
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// otoBufferMillis sizes the ring between the simulator and the oto player
const otoBufferMillis = 250

// Oto plays the stream with the oto library. Oto only takes 16-bit samples,
// so 32-bit streams are narrowed on write.
type Oto struct {
	mu      sync.Mutex
	otoCtx  *oto.Context
	player  *oto.Player
	ring    *ring
	format  audio.Format
	scratch []byte
	ready   bool
}

// NewOto creates a new Oto sink
func NewOto() *Oto {
	return &Oto{}
}

func (o *Oto) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil && o.format.SampleRate == format.SampleRate && o.format.Channels == format.Channels {
		log.Printf("Audio output already initialized with same format, reusing context")
		o.format = format
		o.ready = true
		return nil
	}

	// oto allows one context per process
	if o.otoCtx != nil {
		log.Printf("Warning: format change detected (%v -> %v) but oto doesn't support reinitialization. Continuing with existing context.",
			o.format, format)
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   int(format.SampleRate),
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	frameBytes := 2 * format.Channels
	o.ring = newRing(int(format.SampleRate) * frameBytes * otoBufferMillis / 1000)
	o.otoCtx = ctx
	o.format = format
	o.player = ctx.NewPlayer(o.ring)
	o.player.Play()
	o.ready = true

	log.Printf("Audio output initialized: %v (oto)", format)
	return nil
}

func (o *Oto) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ready {
		return 0, fmt.Errorf("output not initialized")
	}
	if o.format.PCM == audio.PCMS16 {
		return o.ring.Write(p)
	}

	n := len(p) / 4
	if cap(o.scratch) < n*2 {
		o.scratch = make([]byte, n*2)
	}
	out := o.scratch[:n*2]
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleS32ToS16(audio.ReadSample(p, audio.PCMS32, i))))
	}
	if _, err := o.ring.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	if o.ring != nil {
		log.Printf("Oto sink closed: %d bytes dropped, %d underruns", o.ring.dropped.Load(), o.ring.underruns.Load())
	}
	o.ready = false
	return nil
}
