// ABOUTME: I2S output engine package
// ABOUTME: Streams pool buffers to a PIO state machine through two chained DMA channels
// Package i2s drives an I2S DAC from a PIO state machine fed by two DMA
// channels in ping-pong: each channel is chained to the other, and the
// completion interrupt retires the buffer just played, programs the next one
// (or a silence buffer on underrun) and runs the application callback.
//
// Hardware is reached through the hal interfaces, so the same engine runs on
// an RP2040 (package rp2) or against the software board in package sim.
//
// Example:
//
//	engine, _, err := i2s.Setup(board, format, format, i2s.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	producer := pool.NewProducer(audio.NewBufferFormat(format), 3, 256)
//	if err := engine.Connect(producer); err != nil {
//	    return err
//	}
//	engine.SetCallback(func() { fill(producer) })
//	return engine.SetEnabled(true)
package i2s
