// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM encodings, stream formats and buffer formats
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Channel counts
const (
	Mono   = 1
	Stereo = 2
)

// ErrInvalidFormat is returned by Format.Validate
var ErrInvalidFormat = errors.New("invalid audio format")

// PCMFormat identifies the sample encoding
type PCMFormat uint8

const (
	PCMS8 PCMFormat = iota + 1
	PCMU8
	PCMS16
	PCMU16
	PCMS32
	PCMU32
)

// Bits returns the sample width in bits (0 for unknown formats)
func (p PCMFormat) Bits() int {
	switch p {
	case PCMS8, PCMU8:
		return 8
	case PCMS16, PCMU16:
		return 16
	case PCMS32, PCMU32:
		return 32
	default:
		return 0
	}
}

// BytesPerSample returns the width of one channel sample in bytes
func (p PCMFormat) BytesPerSample() int {
	return p.Bits() / 8
}

// Signed reports whether the encoding is two's complement
func (p PCMFormat) Signed() bool {
	return p == PCMS8 || p == PCMS16 || p == PCMS32
}

func (p PCMFormat) String() string {
	switch p {
	case PCMS8:
		return "S8"
	case PCMU8:
		return "U8"
	case PCMS16:
		return "S16"
	case PCMU16:
		return "U16"
	case PCMS32:
		return "S32"
	case PCMU32:
		return "U32"
	default:
		return fmt.Sprintf("PCMFormat(%d)", uint8(p))
	}
}

// Format describes what the bytes of a buffer mean
type Format struct {
	SampleRate uint32 // Hz
	PCM        PCMFormat
	Channels   int
}

// Stride returns bytes per interleaved multi-channel sample group
func (f Format) Stride() int {
	return f.PCM.BytesPerSample() * f.Channels
}

// Validate checks that the format is internally consistent
func (f Format) Validate() error {
	if f.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate is zero", ErrInvalidFormat)
	}
	if f.PCM.Bits() == 0 {
		return fmt.Errorf("%w: unknown pcm format %v", ErrInvalidFormat, f.PCM)
	}
	if f.Channels != Mono && f.Channels != Stereo {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	return nil
}

func (f Format) String() string {
	name := "stereo"
	if f.Channels == Mono {
		name = "mono"
	}
	return fmt.Sprintf("%dHz/%v/%s", f.SampleRate, f.PCM, name)
}

// BufferFormat is shared by every buffer of a pool
type BufferFormat struct {
	Format       Format
	SampleStride int // bytes per interleaved sample group
}

// NewBufferFormat derives the sample stride from the format
func NewBufferFormat(f Format) *BufferFormat {
	return &BufferFormat{
		Format:       f,
		SampleStride: f.Stride(),
	}
}

// SampleS8ToS16 widens an 8-bit sample into the 16-bit range
func SampleS8ToS16(sample int8) int16 {
	return int16(sample) << 8
}

// SampleS8ToS32 widens an 8-bit sample into the 32-bit range
func SampleS8ToS32(sample int8) int32 {
	return int32(sample) << 24
}

// SampleS16ToS32 left-justifies a 16-bit sample in 32 bits
func SampleS16ToS32(sample int16) int32 {
	return int32(sample) << 16
}

// SampleS32ToS16 keeps the top 16 bits of a 32-bit sample
func SampleS32ToS16(sample int32) int16 {
	return int16(sample >> 16)
}

// ReadSample reads channel sample idx from interleaved little-endian data
// and returns it left-justified in 32 bits.
func ReadSample(data []byte, pcm PCMFormat, idx int) int32 {
	switch pcm {
	case PCMS8:
		return SampleS8ToS32(int8(data[idx]))
	case PCMS16:
		return SampleS16ToS32(int16(binary.LittleEndian.Uint16(data[idx*2:])))
	case PCMS32:
		return int32(binary.LittleEndian.Uint32(data[idx*4:]))
	default:
		panic(fmt.Sprintf("audio: cannot read %v samples", pcm))
	}
}

// WriteSample stores a left-justified 32-bit sample as channel sample idx.
func WriteSample(data []byte, pcm PCMFormat, idx int, sample int32) {
	switch pcm {
	case PCMS8:
		data[idx] = byte(sample >> 24)
	case PCMS16:
		binary.LittleEndian.PutUint16(data[idx*2:], uint16(SampleS32ToS16(sample)))
	case PCMS32:
		binary.LittleEndian.PutUint32(data[idx*4:], uint32(sample))
	default:
		panic(fmt.Sprintf("audio: cannot write %v samples", pcm))
	}
}
