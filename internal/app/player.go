// ABOUTME: Host demo orchestration
// ABOUTME: Wires a source, producer pool, I2S engine on the simulated board and a host sink
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/pico-audio-go/internal/config"
	"github.com/Resonate-Protocol/pico-audio-go/internal/source"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/output"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/pool"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/sim"
)

// Config holds player configuration
type Config struct {
	Profile *config.Profile
	Source  source.Source
	Sink    output.Sink
}

// Stats is a snapshot for the monitor
type Stats struct {
	Engine i2s.Stats

	// Filled counts producer buffers handed to the engine
	Filled      uint64
	SourceError string
}

// Player streams a source through the I2S engine on a simulated board
type Player struct {
	config   Config
	board    *sim.Board
	engine   *i2s.Engine
	producer *pool.Pool
	pcm      audio.PCMFormat
	onGive   bool

	fillMu  sync.Mutex
	scratch []int32
	filled  atomic.Uint64
	srcErr  atomic.Pointer[string]

	feedCancel context.CancelFunc
	feedDone   chan struct{}
}

// New builds the board, opens the sink, sets up the engine and connects a
// producer pool sized by the profile
func New(cfg Config) (*Player, error) {
	if cfg.Profile == nil {
		cfg.Profile = config.Default()
	}
	if cfg.Source == nil {
		return nil, errors.New("no source")
	}
	if cfg.Sink == nil {
		cfg.Sink = output.NewDiscard()
	}
	prof := cfg.Profile
	format := prof.Format()

	if cfg.Source.SampleRate() != format.SampleRate {
		return nil, fmt.Errorf("source rate %d Hz differs from output rate %d Hz", cfg.Source.SampleRate(), format.SampleRate)
	}
	if cfg.Source.Channels() != audio.Stereo {
		return nil, fmt.Errorf("source has %d channels, need stereo", cfg.Source.Channels())
	}

	if err := cfg.Sink.Open(format); err != nil {
		return nil, fmt.Errorf("failed to open sink: %w", err)
	}

	board := sim.NewBoard(prof.SystemClockHz)
	board.SetSink(cfg.Sink)

	p := &Player{
		config:  cfg,
		board:   board,
		pcm:     format.PCM,
		onGive:  prof.Buffers.OnGive,
		scratch: make([]int32, prof.Buffers.Samples*format.Channels),
	}

	engineCfg := prof.EngineConfig()
	if !p.onGive {
		engineCfg.Callback = p.fillOne
	}
	engine, _, err := i2s.Setup(board, format, format, engineCfg)
	if err != nil {
		cfg.Sink.Close()
		return nil, fmt.Errorf("failed to set up i2s: %w", err)
	}
	p.engine = engine

	p.producer = pool.NewProducer(audio.NewBufferFormat(format), prof.Buffers.Producer, prof.Buffers.Samples)
	if err := engine.ConnectExtra(p.producer, p.onGive, prof.Buffers.Consumer, prof.Buffers.Samples, nil); err != nil {
		engine.Close()
		cfg.Sink.Close()
		return nil, fmt.Errorf("failed to connect producer: %w", err)
	}

	log.Printf("Player ready: %s at %v", cfg.Source.Title(), format)
	return p, nil
}

// Engine returns the I2S engine
func (p *Player) Engine() *i2s.Engine {
	return p.engine
}

// Board returns the simulated board
func (p *Player) Board() *sim.Board {
	return p.board
}

// Source returns the audio source
func (p *Player) Source() source.Source {
	return p.config.Source
}

// Stats returns engine and producer counters. It also flushes the engine's
// deferred interrupt-path log lines, so call it from foreground code.
func (p *Player) Stats() Stats {
	p.engine.ReportEvents()
	s := Stats{
		Engine: p.engine.Stats(),
		Filled: p.filled.Load(),
	}
	if msg := p.srcErr.Load(); msg != nil {
		s.SourceError = *msg
	}
	return s
}

// Start primes the producer pool and enables the engine. On the
// producer-give path the feeder starts after enabling so a give blocked on a
// full consumer pool is always released by a running engine.
func (p *Player) Start() error {
	if !p.onGive {
		for p.fillOne() {
		}
	}

	if err := p.engine.SetEnabled(true); err != nil {
		return fmt.Errorf("failed to enable i2s: %w", err)
	}

	if p.onGive {
		ctx, cancel := context.WithCancel(context.Background())
		p.feedCancel = cancel
		p.feedDone = make(chan struct{})
		go p.feed(ctx)
	}
	return nil
}

// Stop disables the engine. Disabling hands the in-flight buffers back to
// the consumer pool, which releases a feeder blocked in a give.
func (p *Player) Stop() error {
	if p.feedCancel != nil {
		p.feedCancel()
	}
	err := p.engine.SetEnabled(false)
	p.waitFeed()
	return err
}

func (p *Player) waitFeed() {
	if p.feedCancel == nil {
		return
	}
	<-p.feedDone
	p.feedCancel = nil
}

// Run plays until ctx is cancelled
func (p *Player) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}
	log.Printf("Streaming %s", p.config.Source.Title())

	runErr := p.board.Run(ctx, p.config.Profile.StateMachine)
	if err := p.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close releases the engine, sink and source
func (p *Player) Close() error {
	var errs []error
	if err := p.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop: %w", err))
	}
	if err := p.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if err := p.config.Sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sink: %w", err))
	}
	if err := p.config.Source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}
	return errors.Join(errs...)
}

// fillOne fills one free producer buffer from the source. It is the engine
// callback on the consumer-take path, so it never blocks.
func (p *Player) fillOne() bool {
	b := p.producer.Take(false)
	if b == nil {
		return false
	}
	p.fill(b)
	p.producer.Give(b)
	return true
}

// feed keeps the producer pool full on the producer-give path, where a give
// blocks until the consumer pool has room
func (p *Player) feed(ctx context.Context) {
	defer close(p.feedDone)
	for ctx.Err() == nil {
		b, err := p.producer.WaitFree(ctx)
		if err != nil {
			return
		}
		p.fill(b)
		p.producer.Give(b)
	}
}

func (p *Player) fill(b *pool.Buffer) {
	p.fillMu.Lock()
	defer p.fillMu.Unlock()

	n, err := p.config.Source.Read(p.scratch[:b.MaxSampleCount()*audio.Stereo])
	if err != nil {
		p.sourceFailed(err)
	}
	Fill(b, p.pcm, p.scratch[:n])
	p.filled.Add(1)
}

func (p *Player) sourceFailed(err error) {
	msg := err.Error()
	if prev := p.srcErr.Swap(&msg); prev == nil || *prev != msg {
		log.Printf("Source error, padding with silence: %v", err)
	}
}

// Fill writes interleaved left-justified samples into b in its encoding and
// pads the rest of the buffer with silence
func Fill(b *pool.Buffer, pcm audio.PCMFormat, samples []int32) {
	data := b.Bytes()
	total := b.MaxSampleCount() * b.Format().Format.Channels
	n := min(len(samples), total)
	for i := 0; i < n; i++ {
		audio.WriteSample(data, pcm, i, samples[i])
	}
	clear(data[n*pcm.BytesPerSample() : total*pcm.BytesPerSample()])
	b.SetSampleCount(b.MaxSampleCount())
}
