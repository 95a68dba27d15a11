// ABOUTME: Sink package for the simulated I2S stream
// ABOUTME: Provides the Sink interface with oto, malgo, WAV and discard backends
// Package output plays or records the bytes a simulated I2S state machine
// shifts out.
//
// Oto and Malgo play on the host audio device through a byte ring that pads
// with silence when the simulator falls behind. WAV records to a file.
//
// Example:
//
//	sink, err := output.New(output.KindWAV, "out.wav")
//	err = sink.Open(format)
//	board.SetSink(sink)
package output
