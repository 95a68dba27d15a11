// ABOUTME: Audio buffer pool package
// ABOUTME: Lock-protected producer/consumer buffer handoff and format-converting connections
// Package pool provides fixed-capacity audio buffers shared between a producer
// (application code filling samples) and a consumer (the I2S engine draining
// them into hardware).
//
// Every pool owns N buffers of S samples. A buffer is always in exactly one of
// three places: the free list, the prepared list (full, waiting to be consumed)
// or in flight (held by whoever took it). Each list has its own spin lock, and
// returning a buffer signals an Event so blocked takers re-check.
//
// A Connection binds a producer pool to a consumer pool. The default
// connection moves buffers between lists unchanged; the copying and blocking
// connections convert sample formats at consumer take or producer give.
//
// Example:
//
//	producer := pool.NewProducer(audio.NewBufferFormat(format), 3, 256)
//
//	buf := producer.Take(true)
//	// fill buf.Bytes() ...
//	buf.SetSampleCount(buf.MaxSampleCount())
//	producer.Give(buf)
package pool
