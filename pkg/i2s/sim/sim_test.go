// ABOUTME: Tests for the simulated board
// ABOUTME: Covers claiming, chained completion, interrupt dispatch, history and real-time pacing
package sim

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/hal"
)

func TestBoardDefaults(t *testing.T) {
	b := NewBoard(0)
	assert.Equal(t, uint32(DefaultSystemClockHz), b.SystemClockHz())
	assert.Equal(t, uint32(96_000_000), NewBoard(96_000_000).SystemClockHz())

	_, err := b.StateMachine(4)
	assert.True(t, errors.Is(err, ErrNoSuchUnit))

	sm, err := b.StateMachine(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), sm.TxDREQ())
	assert.Equal(t, txFIFOBase+8, sm.TxFIFOAddr())
}

func TestConfigurePins(t *testing.T) {
	tests := []struct {
		name    string
		data    uint8
		clock   uint8
		wantErr bool
	}{
		{"default", 18, 16, false},
		{"data on bclk", 16, 16, true},
		{"data on lrclk", 17, 16, true},
		{"data below clocks", 2, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard(0)
			err := b.ConfigurePins(tt.data, tt.clock)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrPinConflict))
				return
			}
			require.NoError(t, err)
			data, clock, ok := b.Pins()
			assert.True(t, ok)
			assert.Equal(t, tt.data, data)
			assert.Equal(t, tt.clock, clock)
		})
	}
}

func TestStateMachineLifecycle(t *testing.T) {
	sm, err := NewBoard(0).Machine(0)
	require.NoError(t, err)

	require.NoError(t, sm.Claim())
	assert.True(t, errors.Is(sm.Claim(), hal.ErrClaimed))

	assert.Error(t, sm.LoadProgram(24, 18, 16))
	require.NoError(t, sm.LoadProgram(32, 18, 16))
	assert.Equal(t, 32, sm.Loaded())

	sm.SetClockDivider(17, 1)
	whole, frac, writes := sm.ClockDivider()
	assert.Equal(t, uint16(17), whole)
	assert.Equal(t, uint8(1), frac)
	assert.Equal(t, 1, writes)

	sm.SetEnabled(true)
	assert.True(t, sm.Enabled())

	sm.RemoveProgram()
	sm.Unclaim()
	assert.Equal(t, 0, sm.Loaded())
	assert.False(t, sm.Claimed())
}

func armPair(t *testing.T, d *DMA, a, b []byte) {
	t.Helper()
	require.NoError(t, d.Claim(0))
	require.NoError(t, d.Claim(1))
	d.Configure(0, hal.DMAConfig{Size: hal.Size32, ReadIncrement: true, ChainTo: 1}, txFIFOBase, a, uint32(len(a)/4), false)
	d.Configure(1, hal.DMAConfig{Size: hal.Size32, ReadIncrement: true, ChainTo: 0}, txFIFOBase, b, uint32(len(b)/4), false)
}

func TestCompleteChainsAndWritesSink(t *testing.T) {
	b := NewBoard(0)
	var sink bytes.Buffer
	b.SetSink(&sink)
	d := b.Controller()

	armPair(t, d, []byte{1, 2, 3, 4}, []byte{5, 6, 7, 8, 9, 10, 11, 12})

	assert.True(t, errors.Is(d.Complete(0), ErrIdle), "nothing started yet")

	d.Start(0)
	require.NoError(t, d.Complete(0))
	assert.True(t, d.Running(1), "channel 1 should be chain-triggered")
	assert.False(t, d.Running(0))

	require.NoError(t, d.Complete(1))
	assert.False(t, d.Running(0), "channel 0 was not rearmed")

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, sink.Bytes())

	h := d.History()
	require.Len(t, h, 2)
	assert.Equal(t, uint8(0), h[0].Channel)
	assert.Equal(t, uint32(2), h[1].Words)
	assert.False(t, h[1].Silent())
	assert.Equal(t, uint64(1), d.Completed(1))
}

func TestConfigureBusyChannelPanics(t *testing.T) {
	d := NewBoard(0).Controller()
	armPair(t, d, make([]byte, 4), make([]byte, 4))
	d.Start(0)

	assert.Panics(t, func() {
		d.Configure(0, hal.DMAConfig{Size: hal.Size32}, txFIFOBase, make([]byte, 4), 1, false)
	})
	assert.Panics(t, func() {
		d.Configure(5, hal.DMAConfig{Size: hal.Size32}, txFIFOBase, make([]byte, 4), 1, false)
	}, "unclaimed channel")
	assert.Panics(t, func() {
		d.Configure(1, hal.DMAConfig{Size: hal.Size32}, txFIFOBase, make([]byte, 4), 2, false)
	}, "count past the source")
}

func TestInterruptDispatch(t *testing.T) {
	d := NewBoard(0).Controller()
	armPair(t, d, make([]byte, 4), make([]byte, 4))

	var calls []uint8
	d.SetIRQHandler(func() {
		for ch := uint8(0); ch < 2; ch++ {
			if d.ChannelIRQPending(ch) {
				d.AcknowledgeIRQ(ch)
				calls = append(calls, ch)
				return
			}
		}
	})
	d.SetChannelIRQEnabled(0, true)
	d.SetChannelIRQEnabled(1, true)

	d.Start(0)
	require.NoError(t, d.Complete(0))
	assert.Empty(t, calls, "interrupt line disabled")
	assert.True(t, d.ChannelIRQPending(0))

	d.SetIRQEnabled(true)
	require.NoError(t, d.Complete(1))
	assert.Equal(t, []uint8{0, 1}, calls, "both pending channels serviced in order")
	assert.False(t, d.ChannelIRQPending(0))
	assert.False(t, d.ChannelIRQPending(1))
}

func TestHistoryLimit(t *testing.T) {
	d := NewBoard(0).Controller()
	d.SetHistoryLimit(2)
	require.NoError(t, d.Claim(3))

	for i := byte(1); i <= 4; i++ {
		d.Configure(3, hal.DMAConfig{Size: hal.Size8, ChainTo: 3}, txFIFOBase, []byte{i}, 1, true)
		require.NoError(t, d.Complete(3))
	}

	h := d.History()
	require.Len(t, h, 2)
	assert.Equal(t, []byte{3}, h[0].Data)
	assert.Equal(t, []byte{4}, h[1].Data)
}

func TestTransferDuration(t *testing.T) {
	b := NewBoard(96_000_000)
	sm, err := b.Machine(0)
	require.NoError(t, err)

	assert.Zero(t, b.TransferDuration(sm, 256), "no divider yet")

	// 16-bit stereo at 48 kHz: divider 96e6*4/48000 = 8000/256
	sm.SetClockDivider(31, 64)
	d := b.TransferDuration(sm, 48000)
	assert.InDelta(t, float64(time.Second), float64(d), float64(time.Millisecond))
}

func TestRunCompletesInRealTime(t *testing.T) {
	b := NewBoard(96_000_000)
	var sink bytes.Buffer
	b.SetSink(&sink)
	sm, err := b.Machine(0)
	require.NoError(t, err)
	d := b.Controller()

	// 16 words at 48 kHz stereo is a third of a millisecond
	sm.SetClockDivider(31, 64)
	require.NoError(t, d.Claim(0))
	cfg := hal.DMAConfig{Size: hal.Size32, DREQ: sm.TxDREQ(), ChainTo: 0}
	d.Configure(0, cfg, sm.TxFIFOAddr(), make([]byte, 64), 16, true)

	var handled int
	d.SetIRQHandler(func() {
		d.AcknowledgeIRQ(0)
		handled++
		if handled < 5 {
			d.Configure(0, cfg, sm.TxFIFOAddr(), make([]byte, 64), 16, true)
		}
	})
	d.SetChannelIRQEnabled(0, true)
	d.SetIRQEnabled(true)
	sm.SetEnabled(true)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, b.Run(ctx, 0))

	assert.Equal(t, 5, handled)
	assert.Equal(t, 5*64, sink.Len())
}

func TestRunIdlesWhileStopped(t *testing.T) {
	b := NewBoard(0)
	d := b.Controller()
	sm, err := b.Machine(1)
	require.NoError(t, err)
	sm.SetClockDivider(10, 0)

	require.NoError(t, d.Claim(0))
	d.Configure(0, hal.DMAConfig{Size: hal.Size32, DREQ: sm.TxDREQ()}, sm.TxFIFOAddr(), make([]byte, 4), 1, true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, b.Run(ctx, 1))
	assert.True(t, d.Running(0), "disabled state machine must not drain the channel")

	assert.Error(t, b.Run(ctx, 9))
}
