// ABOUTME: Sink that drops the stream and counts bytes
// ABOUTME: Used for headless runs and tests
package output

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// Discard accepts every write and counts it
type Discard struct {
	bytes atomic.Uint64
}

// NewDiscard creates a counting sink
func NewDiscard() *Discard {
	return &Discard{}
}

func (d *Discard) Open(format audio.Format) error {
	return checkFormat(format)
}

func (d *Discard) Write(p []byte) (int, error) {
	d.bytes.Add(uint64(len(p)))
	return len(p), nil
}

func (d *Discard) Close() error {
	return nil
}

// Bytes returns how many bytes were written
func (d *Discard) Bytes() uint64 {
	return d.bytes.Load()
}
