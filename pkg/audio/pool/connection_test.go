// ABOUTME: Tests for connections and sample converters
// ABOUTME: Covers default binding, copying and blocking conversion, and the converter registry
package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

func format(pcm audio.PCMFormat, channels int) audio.Format {
	return audio.Format{SampleRate: 44100, PCM: pcm, Channels: channels}
}

// fillS16 gives a producer buffer whose left/right samples are first, first+1, ...
func fillS16(t *testing.T, p *Pool, first, frames int) {
	t.Helper()
	b := p.Take(false)
	require.NotNil(t, b)
	for i := 0; i < frames; i++ {
		v := int16(first + i)
		b.SetFrameS16(i, v, -v)
	}
	b.SetSampleCount(frames)
	p.Give(b)
}

func TestCompleteRequiresRoles(t *testing.T) {
	producer := NewProducer(stereoS16(44100), 1, 4)
	consumer := NewConsumer(stereoS16(44100), 1, 4)

	err := Complete(NewDefaultConnection(), consumer, producer)
	assert.ErrorIs(t, err, ErrRoleMismatch)

	err = Complete(NewDefaultConnection(), producer, NewProducer(stereoS16(44100), 1, 4))
	assert.ErrorIs(t, err, ErrRoleMismatch)

	conn := NewDefaultConnection()
	require.NoError(t, Complete(conn, producer, consumer))
	assert.Same(t, producer, conn.Producer())
	assert.Same(t, consumer, conn.Consumer())
	assert.Equal(t, Connection(conn), producer.Connection())
	assert.Equal(t, Connection(conn), consumer.Connection())
}

func TestDefaultConnectionUsesEachPoolsOwnLists(t *testing.T) {
	producer := NewProducer(stereoS16(44100), 2, 4)
	consumer := NewConsumer(stereoS16(44100), 2, 4)
	require.NoError(t, Complete(NewDefaultConnection(), producer, consumer))

	fillS16(t, producer, 10, 4)
	_, prepared := producer.Counts()
	assert.Equal(t, 1, prepared, "producer give queues on the producer's prepared list")
	assert.Nil(t, consumer.Take(false), "no conversion step moves buffers across pools")

	consumer.ReturnFull(consumer.GetFree(false))
	b := consumer.Take(false)
	require.NotNil(t, b)
	assert.Same(t, consumer, b.Pool())
	consumer.Give(b)
	free, _ := consumer.Counts()
	assert.Equal(t, 2, free)
}

func TestCopyingConnectionSpansProducerBuffers(t *testing.T) {
	producer := NewProducer(stereoS16(44100), 3, 4)
	consumer := NewConsumer(stereoS16(44100), 3, 6)
	conn, err := NewCopyingConnection(producer.Format().Format, consumer.Format().Format)
	require.NoError(t, err)
	require.NoError(t, Complete(conn, producer, consumer))

	fillS16(t, producer, 1, 4)
	fillS16(t, producer, 5, 4)

	first := consumer.Take(false)
	require.NotNil(t, first)
	assert.Same(t, consumer, first.Pool())
	assert.Equal(t, 6, first.SampleCount())
	for i := 0; i < 6; i++ {
		l, r := first.FrameS16(i)
		assert.Equal(t, int16(i+1), l)
		assert.Equal(t, int16(-(i + 1)), r)
	}

	free, _ := producer.Counts()
	assert.Equal(t, 2, free, "drained producer buffer goes back to the producer free list")

	second := consumer.Take(false)
	require.NotNil(t, second)
	assert.Equal(t, 2, second.SampleCount(), "producer ran dry, partial buffer returned")
	l, _ := second.FrameS16(1)
	assert.Equal(t, int16(8), l)

	assert.Nil(t, consumer.Take(false), "nothing to copy")
	cFree, _ := consumer.Counts()
	assert.Equal(t, 1, cFree, "unused consumer buffer is put back")

	consumer.Give(first)
	consumer.Give(second)
	cFree, _ = consumer.Counts()
	assert.Equal(t, 3, cFree)
	pFree, pPrepared := producer.Counts()
	assert.Equal(t, 3, pFree)
	assert.Zero(t, pPrepared)
}

func TestCopyingConnectionWidensMonoS8(t *testing.T) {
	src := audio.NewBufferFormat(format(audio.PCMS8, audio.Mono))
	producer := NewProducer(src, 1, 4)
	consumer := NewConsumer(stereoS16(44100), 1, 4)
	conn, err := NewConnection(KindConsumerTakeCopy, src.Format, consumer.Format().Format)
	require.NoError(t, err)
	require.NoError(t, Complete(conn, producer, consumer))

	b := producer.Take(false)
	copy(b.Bytes(), []byte{0x01, 0xff, 0x7f, 0x80})
	b.SetSampleCount(4)
	producer.Give(b)

	out := consumer.Take(false)
	require.NotNil(t, out)
	expected := []int16{256, -256, 127 << 8, -128 << 8}
	for i, want := range expected {
		l, r := out.FrameS16(i)
		assert.Equal(t, want, l, "frame %d left", i)
		assert.Equal(t, want, r, "frame %d right", i)
	}
}

func TestBlockingConnectionConvertsOnGive(t *testing.T) {
	producer := NewProducer(stereoS16(44100), 2, 4)
	dst := audio.NewBufferFormat(format(audio.PCMS32, audio.Stereo))
	consumer := NewConsumer(dst, 3, 6)
	conn, err := NewConnection(KindProducerGiveBlocking, producer.Format().Format, dst.Format)
	require.NoError(t, err)
	require.NoError(t, Complete(conn, producer, consumer))

	fillS16(t, producer, 1, 4)
	_, prepared := consumer.Counts()
	assert.Zero(t, prepared, "consumer buffer is queued only once full")

	fillS16(t, producer, 5, 4)
	_, prepared = consumer.Counts()
	assert.Equal(t, 1, prepared)

	pFree, _ := producer.Counts()
	assert.Equal(t, 2, pFree, "producer buffers are returned after conversion")

	out := consumer.Take(false)
	require.NotNil(t, out)
	assert.Equal(t, 6, out.SampleCount())
	for i := 0; i < 6; i++ {
		l, r := out.FrameS32(i)
		assert.Equal(t, int32(i+1)<<16, l)
		assert.Equal(t, int32(-(i+1))<<16, r)
	}

	free, _ := consumer.Counts()
	assert.Equal(t, 1, free, "one consumer buffer holds the partial remainder")
}

func TestLookupConverter(t *testing.T) {
	tests := []struct {
		name    string
		src     audio.Format
		dst     audio.Format
		wantErr bool
	}{
		{"s16 stereo to s16 stereo", format(audio.PCMS16, 2), format(audio.PCMS16, 2), false},
		{"s32 stereo to s32 stereo", format(audio.PCMS32, 2), format(audio.PCMS32, 2), false},
		{"s16 mono to s16 stereo", format(audio.PCMS16, 1), format(audio.PCMS16, 2), false},
		{"s8 mono to s16 mono", format(audio.PCMS8, 1), format(audio.PCMS16, 1), false},
		{"s8 stereo to s32 stereo", format(audio.PCMS8, 2), format(audio.PCMS32, 2), false},
		{"stereo downmix", format(audio.PCMS16, 2), format(audio.PCMS16, 1), true},
		{"unsigned source", format(audio.PCMU16, 2), format(audio.PCMS16, 2), true},
		{"8-bit destination", format(audio.PCMS16, 2), format(audio.PCMS8, 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := LookupConverter(tt.src, tt.dst)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedConversion)
				assert.Nil(t, fn)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, fn)
		})
	}
}

func TestNewConnectionRejectsUnsupported(t *testing.T) {
	_, err := NewConnection(KindConsumerTakeCopy, format(audio.PCMS16, 2), format(audio.PCMS16, 1))
	assert.ErrorIs(t, err, ErrUnsupportedConversion)

	_, err = NewConnection(Kind(99), format(audio.PCMS16, 2), format(audio.PCMS16, 2))
	assert.Error(t, err)
}
