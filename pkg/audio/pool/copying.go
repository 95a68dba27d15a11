// ABOUTME: Converting connections
// ABOUTME: Lazy conversion on consumer take and eager conversion on a blocking producer give
package pool

import (
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// CopyingConnection converts when the consumer takes: it fills one consumer
// buffer from as many prepared producer buffers as needed and returns each
// drained producer buffer to the producer's free list.
type CopyingConnection struct {
	Link
	convert ConvertFunc

	current    *Buffer
	currentPos int
}

// NewCopyingConnection creates a consumer-take copying connection from src to dst
func NewCopyingConnection(src, dst audio.Format) (*CopyingConnection, error) {
	fn, err := LookupConverter(src, dst)
	if err != nil {
		return nil, err
	}
	return &CopyingConnection{convert: fn}, nil
}

func (c *CopyingConnection) ProducerTake(block bool) *Buffer {
	return c.producer.GetFree(block)
}

func (c *CopyingConnection) ProducerGive(b *Buffer) {
	c.producer.ReturnFull(b)
}

// ConsumerTake returns a converted consumer buffer. Without block, a buffer
// is returned with a partial sample count when the producer runs dry, and nil
// when nothing could be copied.
func (c *CopyingConnection) ConsumerTake(block bool) *Buffer {
	out := c.consumer.GetFree(block)
	if out == nil {
		return nil
	}

	pos := 0
	for pos < out.maxSamples {
		if c.current == nil {
			c.current = c.producer.GetFull(block)
			if c.current == nil {
				break
			}
			c.currentPos = 0
		}

		n := min(out.maxSamples-pos, c.current.sampleCount-c.currentPos)
		c.convert(out.storage, pos, c.current.storage, c.currentPos, n)
		pos += n
		c.currentPos += n

		if c.currentPos >= c.current.sampleCount {
			done := c.current
			c.current = nil
			c.producer.ReturnFree(done)
		}
	}

	if pos == 0 {
		c.consumer.ReturnFree(out)
		return nil
	}
	out.sampleCount = pos
	return out
}

func (c *CopyingConnection) ConsumerGive(b *Buffer) {
	c.consumer.ReturnFree(b)
}

// BlockingConnection converts when the producer gives: samples are written
// into consumer buffers drawn with a blocking get, each consumer buffer is
// queued as soon as it fills, and the producer buffer is then freed.
type BlockingConnection struct {
	Link
	convert ConvertFunc

	current    *Buffer
	currentPos int
}

// NewBlockingConnection creates a producer-give blocking connection from src to dst
func NewBlockingConnection(src, dst audio.Format) (*BlockingConnection, error) {
	fn, err := LookupConverter(src, dst)
	if err != nil {
		return nil, err
	}
	return &BlockingConnection{convert: fn}, nil
}

func (c *BlockingConnection) ProducerTake(block bool) *Buffer {
	return c.producer.GetFree(block)
}

// ProducerGive copies b into consumer buffers, blocking while the consumer
// pool has no free buffer. A partly filled consumer buffer is kept for the
// next give.
func (c *BlockingConnection) ProducerGive(b *Buffer) {
	pos := 0
	for pos < b.sampleCount {
		if c.current == nil {
			c.current = c.consumer.GetFree(true)
			c.currentPos = 0
		}

		n := min(b.sampleCount-pos, c.current.maxSamples-c.currentPos)
		c.convert(c.current.storage, c.currentPos, b.storage, pos, n)
		pos += n
		c.currentPos += n

		if c.currentPos == c.current.maxSamples {
			full := c.current
			full.sampleCount = c.currentPos
			c.current = nil
			c.consumer.ReturnFull(full)
		}
	}
	c.producer.ReturnFree(b)
}

func (c *BlockingConnection) ConsumerTake(block bool) *Buffer {
	return c.consumer.GetFull(block)
}

func (c *BlockingConnection) ConsumerGive(b *Buffer) {
	c.consumer.ReturnFree(b)
}
