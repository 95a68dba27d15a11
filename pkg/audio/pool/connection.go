// ABOUTME: Connections binding a producer pool to a consumer pool
// ABOUTME: Four handoff hooks with a default that moves buffers between lists unchanged
package pool

import (
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// Connection carries buffers from a producer pool to a consumer pool.
// Implementations replace one hook to convert samples in transit and leave
// the others as plain list operations.
type Connection interface {
	// ProducerTake hands the producer an empty buffer to fill
	ProducerTake(block bool) *Buffer

	// ProducerGive accepts a filled buffer from the producer
	ProducerGive(b *Buffer)

	// ConsumerTake hands the consumer the next buffer to drain
	ConsumerTake(block bool) *Buffer

	// ConsumerGive accepts a drained buffer from the consumer
	ConsumerGive(b *Buffer)

	// Bind records the pools; called by Complete
	Bind(producer, consumer *Pool)

	Producer() *Pool
	Consumer() *Pool
}

// Link stores the two pools of a connection. Embed it to implement Bind.
type Link struct {
	producer *Pool
	consumer *Pool
}

// Bind records the producer and consumer pools
func (l *Link) Bind(producer, consumer *Pool) {
	l.producer = producer
	l.consumer = consumer
}

// Producer returns the bound producer pool
func (l *Link) Producer() *Pool {
	return l.producer
}

// Consumer returns the bound consumer pool
func (l *Link) Consumer() *Pool {
	return l.consumer
}

// DefaultConnection works on each pool's own lists: the producer takes free
// and gives prepared buffers of the producer pool, the consumer takes prepared
// and gives free buffers of the consumer pool. Nothing crosses pools, so it is
// the connection of an unbound pool.
type DefaultConnection struct {
	Link
}

// NewDefaultConnection creates an unbound default connection
func NewDefaultConnection() *DefaultConnection {
	return &DefaultConnection{}
}

func (c *DefaultConnection) ProducerTake(block bool) *Buffer {
	return c.producer.GetFree(block)
}

func (c *DefaultConnection) ProducerGive(b *Buffer) {
	c.producer.ReturnFull(b)
}

func (c *DefaultConnection) ConsumerTake(block bool) *Buffer {
	return c.consumer.GetFull(block)
}

func (c *DefaultConnection) ConsumerGive(b *Buffer) {
	c.consumer.ReturnFree(b)
}

// Complete binds conn to producer and consumer and points both pools at it.
func Complete(conn Connection, producer, consumer *Pool) error {
	if producer.Role() != RoleProducer {
		return fmt.Errorf("%w: first pool is a %s pool", ErrRoleMismatch, producer.Role())
	}
	if consumer.Role() != RoleConsumer {
		return fmt.Errorf("%w: second pool is a %s pool", ErrRoleMismatch, consumer.Role())
	}
	conn.Bind(producer, consumer)
	producer.conn = conn
	consumer.conn = conn
	return nil
}

// Kind selects a converting connection variant
type Kind uint8

const (
	// KindConsumerTakeCopy converts lazily when the consumer takes
	KindConsumerTakeCopy Kind = iota + 1

	// KindProducerGiveBlocking converts eagerly when the producer gives
	KindProducerGiveBlocking
)

func (k Kind) String() string {
	switch k {
	case KindConsumerTakeCopy:
		return "consumer-take-copy"
	case KindProducerGiveBlocking:
		return "producer-give-blocking"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// NewConnection builds a converting connection from src to dst samples.
// It fails with ErrUnsupportedConversion when no converter exists.
func NewConnection(kind Kind, src, dst audio.Format) (Connection, error) {
	switch kind {
	case KindConsumerTakeCopy:
		conn, err := NewCopyingConnection(src, dst)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case KindProducerGiveBlocking:
		conn, err := NewBlockingConnection(src, dst)
		if err != nil {
			return nil, err
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown connection kind %v", kind)
	}
}
