// ABOUTME: Byte ring between the simulated FIFO and a host audio callback
// ABOUTME: Drops whole writes on overflow and pads reads with silence on underrun
package output

import (
	"errors"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"
)

// ring keeps frames whole: a write either fits completely or is dropped, so
// the reader never sees a torn frame.
type ring struct {
	rb *ringbuffer.RingBuffer

	dropped   atomic.Uint64
	underruns atomic.Uint64
}

func newRing(capacity int) *ring {
	return &ring{rb: ringbuffer.New(capacity)}
}

func (r *ring) Write(p []byte) (int, error) {
	if r.rb.Free() < len(p) {
		r.dropped.Add(uint64(len(p)))
		return len(p), nil
	}
	n, err := r.rb.Write(p)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) && !errors.Is(err, ringbuffer.ErrTooMuchDataToWrite) {
		return n, err
	}
	if n < len(p) {
		r.dropped.Add(uint64(len(p) - n))
	}
	return len(p), nil
}

// Read always fills p, with zeros past the buffered data
func (r *ring) Read(p []byte) (int, error) {
	n, err := r.rb.Read(p)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return n, err
	}
	if n < len(p) {
		clear(p[n:])
		r.underruns.Add(1)
	}
	return len(p), nil
}

func (r *ring) buffered() int {
	return r.rb.Length()
}

func (r *ring) reset() {
	r.rb.Reset()
}
