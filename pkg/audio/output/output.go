// ABOUTME: Sink interface for the simulated I2S stream
// ABOUTME: Common interface for host playback and recording backends
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// Sink consumes what the I2S state machine shifts out: little-endian
// interleaved frames in the format the sink was opened with.
type Sink interface {
	// Open prepares the sink for a stream format
	Open(format audio.Format) error

	// Write queues raw frames; it must not block for long
	Write(p []byte) (int, error)

	// Close releases sink resources
	Close() error
}

// Sink kinds accepted by New
const (
	KindOto   = "oto"
	KindMalgo = "malgo"
	KindWAV   = "wav"
	KindNone  = "none"
)

// New returns the sink named kind. wavPath is used by the wav sink only.
func New(kind, wavPath string) (Sink, error) {
	switch kind {
	case KindOto:
		return NewOto(), nil
	case KindMalgo:
		return NewMalgo(), nil
	case KindWAV:
		if wavPath == "" {
			return nil, fmt.Errorf("wav sink needs an output path")
		}
		return NewWAV(wavPath), nil
	case KindNone, "":
		return NewDiscard(), nil
	default:
		return nil, fmt.Errorf("unknown sink %q (oto, malgo, wav, none)", kind)
	}
}

func checkFormat(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if format.PCM != audio.PCMS16 && format.PCM != audio.PCMS32 {
		return fmt.Errorf("unsupported sink format %v", format.PCM)
	}
	return nil
}
