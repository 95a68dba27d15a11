// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts demo sources to the rate the I2S producer pool is running at
// Package resample provides streaming sample rate conversion for
// interleaved int32 frames.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := make([]int32, r.MaxOutputSamples(len(in)))
//	n := r.Resample(in, out)
package resample
