// ABOUTME: Tests for worker callback mode
// ABOUTME: Covers handshakes, off-interrupt callbacks, dropped events and an unresponsive worker
package i2s

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

func workerConfig(callback func()) Config {
	cfg := DefaultConfig()
	cfg.Callback = callback
	cfg.CallbackMode = CallbackWorker
	cfg.HandshakeTimeout = time.Second
	cfg.WorkerQueueDepth = 1
	return cfg
}

func TestWorkerStartStop(t *testing.T) {
	calls := make(chan struct{}, 4)
	w, err := startWorker(func() { calls <- struct{}{} }, 2, time.Second)
	require.NoError(t, err)

	assert.True(t, w.post(eventTransferStarted))
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}

	require.NoError(t, w.stop(time.Second))
	select {
	case <-w.done:
	default:
		t.Fatal("worker still running after stop")
	}
}

func TestWorkerUnresponsiveStop(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	w, err := startWorker(func() {
		close(entered)
		<-gate
	}, 1, time.Second)
	require.NoError(t, err)

	require.True(t, w.post(eventTransferStarted))
	<-entered

	err = w.stop(20 * time.Millisecond)
	assert.True(t, errors.Is(err, ErrWorkerUnresponsive), "got %v", err)

	// the stop notification is queued, so the worker exits once released
	close(gate)
	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestWorkerModeRunsCallbackOffInterrupt(t *testing.T) {
	f := stereo(audio.PCMS16, 44100)
	calls := make(chan struct{}, 8)
	cfg := workerConfig(func() { calls <- struct{}{} })
	cfg.WorkerQueueDepth = 4
	e, board := setupSim(t, f, cfg)
	require.NoError(t, e.Connect(newProducer(f, 2, 64)))

	require.NoError(t, e.SetEnabled(true))
	require.NotNil(t, e.worker.Load())

	require.NoError(t, board.Controller().Complete(0))
	require.NoError(t, board.Controller().Complete(1))
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatalf("callback %d did not run", i)
		}
	}

	require.NoError(t, e.SetEnabled(false))
	assert.Nil(t, e.worker.Load())
	assert.Equal(t, uint64(2), e.Stats().Callbacks)
	assert.Zero(t, e.Stats().DroppedEvents)
}

func TestWorkerQueueFullDropsEvents(t *testing.T) {
	f := stereo(audio.PCMS16, 44100)
	entered := make(chan struct{}, 8)
	gate := make(chan struct{})
	e, board := setupSim(t, f, workerConfig(func() {
		entered <- struct{}{}
		<-gate
	}))
	require.NoError(t, e.Connect(newProducer(f, 2, 64)))
	require.NoError(t, e.SetEnabled(true))

	dma := board.Controller()
	require.NoError(t, dma.Complete(0))
	<-entered

	// worker is busy: one event fits the queue, the next is dropped
	require.NoError(t, dma.Complete(1))
	require.NoError(t, dma.Complete(0))
	assert.Equal(t, uint64(1), e.Stats().DroppedEvents)
	assert.Equal(t, uint64(5), e.Stats().Transfers, "transfers keep flowing while the worker lags")

	close(gate)
	require.NoError(t, e.SetEnabled(false))
	assert.Equal(t, uint64(2), e.Stats().Callbacks)
}

func TestWorkerFailedHandshakeStopsLoop(t *testing.T) {
	w := newWorker(1)
	// a stale reply makes the handshake fail even though the loop starts
	w.replies <- responseTerminated

	err := w.start(func() { t.Error("callback ran") }, time.Second)
	assert.True(t, errors.Is(err, ErrWorkerUnresponsive), "got %v", err)

	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("worker loop kept running after a failed start")
	}
}

func TestWorkerModeNeverRunsCallbackInline(t *testing.T) {
	f := stereo(audio.PCMS16, 44100)
	calls := 0
	e, _ := setupSim(t, f, workerConfig(func() { calls++ }))
	require.NoError(t, e.Connect(newProducer(f, 2, 64)))

	// no worker running, as during enable and disable
	e.notify()
	assert.Zero(t, calls)
	assert.Equal(t, uint64(1), e.Stats().DroppedEvents)
	assert.Zero(t, e.Stats().Callbacks)
}

func TestWorkerStoppedWhenEnableFails(t *testing.T) {
	f := stereo(audio.PCMS16, 44100)
	e, board := setupSim(t, f, workerConfig(nil))
	require.NoError(t, e.Connect(newProducer(f, 2, 64)))
	require.NoError(t, board.Controller().Claim(1))

	err := e.SetEnabled(true)
	assert.Error(t, err)
	assert.Nil(t, e.worker.Load(), "worker started for the failed enable must be stopped")
	assert.False(t, e.Enabled())
	assert.False(t, board.Controller().Claimed(0), "first channel released")
}
