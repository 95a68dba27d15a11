// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines PCMFormat, Format and BufferFormat plus sample conversion helpers
// Package audio provides the format descriptors shared by buffer pools and the I2S engine.
//
// This package defines:
//   - PCMFormat: sample encoding (S8/U8/S16/U16/S32/U32)
//   - Format: sample rate, encoding and channel count of a stream
//   - BufferFormat: a Format plus the byte stride of one interleaved sample group
//
// It also provides helpers for widening and narrowing samples between 8, 16 and
// 32 bits, and for reading/writing little-endian interleaved sample data.
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 44100,
//	    PCM:        audio.PCMS32,
//	    Channels:   audio.Stereo,
//	}
//
//	bf := audio.NewBufferFormat(format) // bf.SampleStride == 8
package audio
