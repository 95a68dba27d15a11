// ABOUTME: Sink tests
// ABOUTME: Verifies backend selection, the silence-padding ring and WAV recording
package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

func TestBackendsImplementSink(t *testing.T) {
	var _ Sink = (*Oto)(nil)
	var _ Sink = (*Malgo)(nil)
	var _ Sink = (*WAV)(nil)
	var _ Sink = (*Discard)(nil)
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		path    string
		want    any
		wantErr bool
	}{
		{KindOto, "", &Oto{}, false},
		{KindMalgo, "", &Malgo{}, false},
		{KindWAV, "out.wav", &WAV{}, false},
		{KindWAV, "", nil, true},
		{KindNone, "", &Discard{}, false},
		{"", "", &Discard{}, false},
		{"alsa", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			sink, err := New(tt.kind, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, sink)
		})
	}
}

func TestRingPadsUnderrunWithSilence(t *testing.T) {
	r := newRing(16)

	n, err := r.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, r.buffered())

	out := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	n, err = r.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, out)
	assert.Equal(t, uint64(1), r.underruns.Load())

	n, err = r.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, make([]byte, 8), out, "empty ring reads as silence")
}

func TestRingDropsWholeWritesOnOverflow(t *testing.T) {
	r := newRing(8)

	_, err := r.Write([]byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	n, err := r.Write([]byte{7, 8, 9, 10})
	require.NoError(t, err)
	assert.Equal(t, 4, n, "overflow is reported as consumed")
	assert.Equal(t, uint64(4), r.dropped.Load())
	assert.Equal(t, 6, r.buffered(), "no torn frame in the ring")

	r.reset()
	assert.Zero(t, r.buffered())
}

func TestWAVRecordsStream(t *testing.T) {
	tests := []struct {
		name    string
		pcm     audio.PCMFormat
		samples []int32
	}{
		{"s16", audio.PCMS16, []int32{0, 1000, -1000, 32767, -32768, 5}},
		{"s32", audio.PCMS32, []int32{0, 1 << 20, -(1 << 20), 2147483647, -2147483648, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.wav")
			format := audio.Format{SampleRate: 44100, PCM: tt.pcm, Channels: audio.Stereo}

			stream := make([]byte, len(tt.samples)*tt.pcm.BytesPerSample())
			shift := 32 - tt.pcm.Bits()
			for i, s := range tt.samples {
				audio.WriteSample(stream, tt.pcm, i, s<<shift)
			}

			sink := NewWAV(path)
			require.NoError(t, sink.Open(format))
			n, err := sink.Write(stream)
			require.NoError(t, err)
			assert.Equal(t, len(stream), n)
			assert.Equal(t, len(tt.samples), sink.Samples())
			require.NoError(t, sink.Close())
			require.NoError(t, sink.Close(), "second close is a no-op")

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			dec := wav.NewDecoder(f)
			require.True(t, dec.IsValidFile())
			assert.Equal(t, uint32(44100), dec.SampleRate)
			assert.Equal(t, uint16(2), dec.NumChans)
			assert.Equal(t, uint16(tt.pcm.Bits()), dec.BitDepth)

			buf, err := dec.FullPCMBuffer()
			require.NoError(t, err)
			require.Len(t, buf.Data, len(tt.samples))
			for i, s := range tt.samples {
				assert.Equal(t, int(s), buf.Data[i], "sample %d", i)
			}
		})
	}
}

func TestWAVRejectsBadUse(t *testing.T) {
	sink := NewWAV(filepath.Join(t.TempDir(), "out.wav"))

	_, err := sink.Write([]byte{0, 0, 0, 0})
	assert.Error(t, err, "write before open")

	assert.Error(t, sink.Open(audio.Format{SampleRate: 44100, PCM: audio.PCMS8, Channels: audio.Stereo}))
	require.NoError(t, sink.Open(audio.Format{SampleRate: 44100, PCM: audio.PCMS16, Channels: audio.Stereo}))
	assert.Error(t, sink.Open(audio.Format{SampleRate: 44100, PCM: audio.PCMS16, Channels: audio.Stereo}))
	require.NoError(t, sink.Close())
}

func TestDiscardCounts(t *testing.T) {
	d := NewDiscard()
	require.NoError(t, d.Open(audio.Format{SampleRate: 48000, PCM: audio.PCMS32, Channels: audio.Stereo}))
	_, _ = d.Write(make([]byte, 8))
	_, _ = d.Write(make([]byte, 16))
	assert.Equal(t, uint64(24), d.Bytes())
	assert.NoError(t, d.Close())
}
