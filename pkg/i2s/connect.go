// ABOUTME: Producer connection for the I2S engine
// ABOUTME: Builds the consumer pool, programs the divider and binds a converting connection
package i2s

import (
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/pool"
)

// rateTracking wraps the engine's own connections so every consumer take and
// producer give picks up producer sample rate changes.
type rateTracking struct {
	pool.Connection
	engine *Engine
}

func (r *rateTracking) ConsumerTake(block bool) *pool.Buffer {
	r.engine.trackRate(r.Producer())
	return r.Connection.ConsumerTake(block)
}

func (r *rateTracking) ProducerGive(b *pool.Buffer) {
	r.engine.trackRate(r.Producer())
	r.Connection.ProducerGive(b)
}

// Connect binds producer with the default buffering (2 buffers of 256
// samples) and a copying connection.
func (e *Engine) Connect(producer *pool.Pool) error {
	return e.ConnectThrough(producer, nil)
}

// ConnectThrough binds producer with the default buffering through conn,
// or through the default copying connection when conn is nil.
func (e *Engine) ConnectThrough(producer *pool.Pool, conn pool.Connection) error {
	return e.ConnectExtra(producer, false, DefaultBufferCount, DefaultBufferSamples, conn)
}

// ConnectExtra creates a consumer pool of bufferCount buffers holding
// samplesPerBuffer samples each, programs the divider for the producer's
// rate and completes a connection. With conn nil the engine picks a
// connection converting on consumer take, or on producer give when
// bufferOnGive is set. A caller supplied conn is used as is and does not
// follow producer rate changes.
func (e *Engine) ConnectExtra(producer *pool.Pool, bufferOnGive bool, bufferCount, samplesPerBuffer int, conn pool.Connection) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkConnectable(producer, bufferCount, samplesPerBuffer); err != nil {
		return err
	}

	src := producer.Format().Format
	if src.PCM != audio.PCMS16 && src.PCM != audio.PCMS32 {
		return fmt.Errorf("%w: %v producer", ErrUnsupportedFormat, src.PCM)
	}

	e.logf("Connecting PIO I2S audio")
	consumerFormat := audio.Format{
		SampleRate: producer.SampleRate(),
		PCM:        e.output.PCM,
		Channels:   e.output.Channels,
	}

	if conn == nil {
		// mono to stereo mixing is not wired on this path
		if src.Channels != audio.Stereo {
			return fmt.Errorf("%w: %d channel producer", ErrUnsupportedFormat, src.Channels)
		}

		kind := pool.KindConsumerTakeCopy
		if bufferOnGive {
			kind = pool.KindProducerGiveBlocking
		}
		inner, err := pool.NewConnection(kind, src, consumerFormat)
		if err != nil {
			return fmt.Errorf("failed to build %v connection: %w", kind, err)
		}
		conn = &rateTracking{Connection: inner, engine: e}
		e.logf("Copying stereo to stereo at %d Hz (%v)", consumerFormat.SampleRate, kind)
	}

	return e.bind(producer, conn, consumerFormat, bufferCount, samplesPerBuffer)
}

// ConnectS8 binds an 8-bit signed producer, mono or stereo, widening it to
// 16-bit stereo on consumer take. The output must be S16.
func (e *Engine) ConnectS8(producer *pool.Pool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkConnectable(producer, DefaultBufferCount, DefaultBufferSamples); err != nil {
		return err
	}

	src := producer.Format().Format
	if src.PCM != audio.PCMS8 {
		return fmt.Errorf("%w: %v producer on the 8-bit path", ErrUnsupportedFormat, src.PCM)
	}
	if e.output.PCM != audio.PCMS16 {
		return fmt.Errorf("%w: 8-bit producers need S16 output, have %v", ErrUnsupportedFormat, e.output.PCM)
	}

	e.logf("Connecting PIO I2S audio (S8)")
	consumerFormat := audio.Format{
		SampleRate: producer.SampleRate(),
		PCM:        audio.PCMS16,
		Channels:   e.output.Channels,
	}
	inner, err := pool.NewCopyingConnection(src, consumerFormat)
	if err != nil {
		return fmt.Errorf("failed to build s8 connection: %w", err)
	}
	if src.Channels == audio.Mono {
		e.logf("Converting mono to stereo at %d Hz", consumerFormat.SampleRate)
	}

	conn := &rateTracking{Connection: inner, engine: e}
	return e.bind(producer, conn, consumerFormat, DefaultBufferCount, DefaultBufferSamples)
}

func (e *Engine) checkConnectable(producer *pool.Pool, bufferCount, samplesPerBuffer int) error {
	if e.closed {
		return ErrClosed
	}
	if e.enabled.Load() {
		return fmt.Errorf("cannot connect: %w", ErrEnabled)
	}
	if producer == nil {
		return fmt.Errorf("%w: nil producer pool", pool.ErrRoleMismatch)
	}
	if producer.Role() != pool.RoleProducer {
		return fmt.Errorf("%w: connecting a %s pool", pool.ErrRoleMismatch, producer.Role())
	}
	if bufferCount < 1 || samplesPerBuffer < 1 {
		return fmt.Errorf("invalid consumer pool size %d x %d", bufferCount, samplesPerBuffer)
	}
	return nil
}

// bind replaces the consumer pool, programs the divider and completes conn
func (e *Engine) bind(producer *pool.Pool, conn pool.Connection, consumerFormat audio.Format, bufferCount, samplesPerBuffer int) error {
	prevFormat := e.consumerFormat
	e.consumerFormat = audio.NewBufferFormat(consumerFormat)
	if err := e.updateFrequency(consumerFormat.SampleRate); err != nil {
		e.consumerFormat = prevFormat
		return err
	}

	consumer := pool.NewConsumer(e.consumerFormat, bufferCount, samplesPerBuffer)
	if err := pool.Complete(conn, producer, consumer); err != nil {
		e.consumerFormat = prevFormat
		return fmt.Errorf("failed to complete connection: %w", err)
	}

	if prev := e.consumer.Swap(consumer); prev != nil {
		prev.Release()
	}
	e.producer.Store(producer)
	e.logf("Connected %s pool (%v) through %d x %d sample buffers", producer.Role(), producer.Format().Format, bufferCount, samplesPerBuffer)
	return nil
}
