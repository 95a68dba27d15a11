// ABOUTME: Tests for audio types
// ABOUTME: Tests format descriptors and sample conversion functions
package audio

import (
	"errors"
	"testing"
)

func TestPCMFormatWidths(t *testing.T) {
	tests := []struct {
		name   string
		pcm    PCMFormat
		bits   int
		bytes  int
		signed bool
	}{
		{"s8", PCMS8, 8, 1, true},
		{"u8", PCMU8, 8, 1, false},
		{"s16", PCMS16, 16, 2, true},
		{"u16", PCMU16, 16, 2, false},
		{"s32", PCMS32, 32, 4, true},
		{"u32", PCMU32, 32, 4, false},
		{"unknown", PCMFormat(0), 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pcm.Bits(); got != tt.bits {
				t.Errorf("expected %d bits, got %d", tt.bits, got)
			}
			if got := tt.pcm.BytesPerSample(); got != tt.bytes {
				t.Errorf("expected %d bytes, got %d", tt.bytes, got)
			}
			if got := tt.pcm.Signed(); got != tt.signed {
				t.Errorf("expected signed=%v, got %v", tt.signed, got)
			}
		})
	}
}

func TestFormatStride(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected int
	}{
		{"stereo s16", Format{SampleRate: 44100, PCM: PCMS16, Channels: Stereo}, 4},
		{"stereo s32", Format{SampleRate: 44100, PCM: PCMS32, Channels: Stereo}, 8},
		{"mono s8", Format{SampleRate: 22050, PCM: PCMS8, Channels: Mono}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Stride(); got != tt.expected {
				t.Errorf("expected stride %d, got %d", tt.expected, got)
			}
			if got := NewBufferFormat(tt.format).SampleStride; got != tt.expected {
				t.Errorf("expected buffer format stride %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"valid", Format{SampleRate: 48000, PCM: PCMS16, Channels: Stereo}, false},
		{"zero rate", Format{PCM: PCMS16, Channels: Stereo}, true},
		{"unknown pcm", Format{SampleRate: 48000, Channels: Stereo}, true},
		{"six channels", Format{SampleRate: 48000, PCM: PCMS16, Channels: 6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestSampleWidening(t *testing.T) {
	if got := SampleS8ToS16(-128); got != -32768 {
		t.Errorf("expected -32768, got %d", got)
	}
	if got := SampleS8ToS16(1); got != 256 {
		t.Errorf("expected 256, got %d", got)
	}
	if got := SampleS16ToS32(-1); got != -65536 {
		t.Errorf("expected -65536, got %d", got)
	}
	if got := SampleS8ToS32(127); got != 127<<24 {
		t.Errorf("expected %d, got %d", 127<<24, got)
	}
}

func TestRoundTrip16Bit(t *testing.T) {
	samples := []int16{0, 100, -100, 1000, -1000, 32767, -32768}

	for _, original := range samples {
		result := SampleS32ToS16(SampleS16ToS32(original))
		if result != original {
			t.Errorf("round-trip failed: %d -> %d", original, result)
		}
	}
}

func TestReadWriteSample(t *testing.T) {
	tests := []struct {
		name  string
		pcm   PCMFormat
		value int32
	}{
		{"s8", PCMS8, -5 << 24},
		{"s16", PCMS16, 1234 << 16},
		{"s32", PCMS32, -123456789},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, 4*tt.pcm.BytesPerSample())
			WriteSample(data, tt.pcm, 2, tt.value)
			if got := ReadSample(data, tt.pcm, 2); got != tt.value {
				t.Errorf("expected %d, got %d", tt.value, got)
			}
			if got := ReadSample(data, tt.pcm, 0); got != 0 {
				t.Errorf("expected untouched sample 0, got %d", got)
			}
		})
	}
}
