// ABOUTME: Audio buffer type
// ABOUTME: Fixed-capacity sample storage with list membership tracking and frame accessors
package pool

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

var (
	// ErrBufferLinked is the panic value when a buffer still in a list is returned.
	ErrBufferLinked = errors.New("buffer is still linked into a list")

	// ErrForeignBuffer is the panic value when a buffer is returned to a pool that does not own it.
	ErrForeignBuffer = errors.New("buffer does not belong to this pool")
)

type listID uint8

const (
	listNone listID = iota
	listFree
	listPrepared
)

func (l listID) String() string {
	switch l {
	case listFree:
		return "free"
	case listPrepared:
		return "prepared"
	default:
		return "none"
	}
}

// Buffer holds interleaved little-endian samples for one pool
type Buffer struct {
	storage     []byte
	format      *audio.BufferFormat
	maxSamples  int
	sampleCount int
	userData    any

	next *Buffer
	list listID
	pool *Pool
}

func newBuffer(format *audio.BufferFormat, samples int, owner *Pool) *Buffer {
	return &Buffer{
		storage:    make([]byte, samples*format.SampleStride),
		format:     format,
		maxSamples: samples,
		pool:       owner,
	}
}

// NewWrappingBuffer wraps caller storage in a buffer that belongs to no pool.
// Capacity is len(storage) / SampleStride samples.
func NewWrappingBuffer(format *audio.BufferFormat, storage []byte) *Buffer {
	return &Buffer{
		storage:    storage,
		format:     format,
		maxSamples: len(storage) / format.SampleStride,
	}
}

// Bytes returns the full backing storage
func (b *Buffer) Bytes() []byte {
	return b.storage
}

// Data returns the bytes holding valid samples
func (b *Buffer) Data() []byte {
	return b.storage[:b.sampleCount*b.format.SampleStride]
}

// Format returns the shared buffer format
func (b *Buffer) Format() *audio.BufferFormat {
	return b.format
}

// MaxSampleCount returns the capacity in sample groups
func (b *Buffer) MaxSampleCount() int {
	return b.maxSamples
}

// SampleCount returns the number of valid sample groups
func (b *Buffer) SampleCount() int {
	return b.sampleCount
}

// SetSampleCount records how many sample groups were written
func (b *Buffer) SetSampleCount(n int) {
	if n < 0 || n > b.maxSamples {
		panic(fmt.Sprintf("pool: sample count %d out of range [0,%d]", n, b.maxSamples))
	}
	b.sampleCount = n
}

// UserData returns the opaque value attached by the application
func (b *Buffer) UserData() any {
	return b.userData
}

// SetUserData attaches an opaque value; Pool.Give clears it
func (b *Buffer) SetUserData(v any) {
	b.userData = v
}

// Linked reports whether the buffer currently sits in a free or prepared list
func (b *Buffer) Linked() bool {
	return b.list != listNone || b.next != nil
}

// Pool returns the owning pool, nil for wrapping buffers
func (b *Buffer) Pool() *Pool {
	return b.pool
}

// SetFrameS16 writes one stereo 16-bit frame at sample index i
func (b *Buffer) SetFrameS16(i int, left, right int16) {
	b.mustStereo(audio.PCMS16)
	binary.LittleEndian.PutUint16(b.storage[i*4:], uint16(left))
	binary.LittleEndian.PutUint16(b.storage[i*4+2:], uint16(right))
}

// FrameS16 reads one stereo 16-bit frame at sample index i
func (b *Buffer) FrameS16(i int) (left, right int16) {
	b.mustStereo(audio.PCMS16)
	left = int16(binary.LittleEndian.Uint16(b.storage[i*4:]))
	right = int16(binary.LittleEndian.Uint16(b.storage[i*4+2:]))
	return left, right
}

// SetFrameS32 writes one stereo 32-bit frame at sample index i
func (b *Buffer) SetFrameS32(i int, left, right int32) {
	b.mustStereo(audio.PCMS32)
	binary.LittleEndian.PutUint32(b.storage[i*8:], uint32(left))
	binary.LittleEndian.PutUint32(b.storage[i*8+4:], uint32(right))
}

// FrameS32 reads one stereo 32-bit frame at sample index i
func (b *Buffer) FrameS32(i int) (left, right int32) {
	b.mustStereo(audio.PCMS32)
	left = int32(binary.LittleEndian.Uint32(b.storage[i*8:]))
	right = int32(binary.LittleEndian.Uint32(b.storage[i*8+4:]))
	return left, right
}

func (b *Buffer) mustStereo(pcm audio.PCMFormat) {
	f := b.format.Format
	if f.PCM != pcm || f.Channels != audio.Stereo {
		panic(fmt.Sprintf("pool: %v buffer accessed as stereo %v", f, pcm))
	}
}
