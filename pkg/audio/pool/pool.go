// ABOUTME: Audio buffer pool with free and prepared lists
// ABOUTME: Non-blocking and blocking retrieval per direction, each list under its own spin lock
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// Role tags which side of a connection a pool serves
type Role uint8

const (
	RoleProducer Role = iota + 1
	RoleConsumer
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleConsumer:
		return "consumer"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// ErrRoleMismatch is returned when pools are connected in the wrong roles
var ErrRoleMismatch = errors.New("pool role mismatch")

// Pool owns a fixed set of buffers moving between a free list (LIFO) and a
// prepared list (FIFO).
type Pool struct {
	role    Role
	format  *audio.BufferFormat
	buffers []*Buffer
	rate    atomic.Uint32

	freeLock  SpinLock
	free      *Buffer
	freeCount int

	preparedLock  SpinLock
	prepared      *Buffer
	preparedTail  *Buffer
	preparedCount int

	event *Event
	conn  Connection
}

// New creates a pool of count buffers holding samples sample groups each.
// All buffers start on the free list and the pool is bound to a default
// connection with itself on both ends until Complete binds it elsewhere.
func New(role Role, format *audio.BufferFormat, count, samples int) *Pool {
	p := &Pool{
		role:    role,
		format:  format,
		buffers: make([]*Buffer, count),
		event:   NewEvent(),
	}
	p.rate.Store(format.Format.SampleRate)

	for i := range p.buffers {
		p.buffers[i] = newBuffer(format, samples, p)
	}
	for i := count - 1; i >= 0; i-- {
		p.pushFree(p.buffers[i])
	}

	def := &DefaultConnection{}
	def.Bind(p, p)
	p.conn = def
	return p
}

// NewProducer creates a producer-role pool
func NewProducer(format *audio.BufferFormat, count, samples int) *Pool {
	return New(RoleProducer, format, count, samples)
}

// NewConsumer creates a consumer-role pool
func NewConsumer(format *audio.BufferFormat, count, samples int) *Pool {
	return New(RoleConsumer, format, count, samples)
}

// Role returns the pool's role tag
func (p *Pool) Role() Role {
	return p.role
}

// Format returns the shared buffer format
func (p *Pool) Format() *audio.BufferFormat {
	return p.format
}

// Size returns the number of buffers the pool was created with
func (p *Pool) Size() int {
	return len(p.buffers)
}

// SampleRate returns the pool's currently declared sample rate
func (p *Pool) SampleRate() uint32 {
	return p.rate.Load()
}

// SetSampleRate changes the declared sample rate. A connected engine picks
// the new rate up on its next buffer exchange.
func (p *Pool) SetSampleRate(hz uint32) {
	p.rate.Store(hz)
}

// Connection returns the connection the pool is bound to
func (p *Pool) Connection() Connection {
	return p.conn
}

// Counts returns the number of buffers on the free and prepared lists.
// Buffers in flight are Size() - free - prepared.
func (p *Pool) Counts() (free, prepared int) {
	p.freeLock.Lock()
	free = p.freeCount
	p.freeLock.Unlock()

	p.preparedLock.Lock()
	prepared = p.preparedCount
	p.preparedLock.Unlock()
	return free, prepared
}

// GetFree pops the head of the free list. With block set it waits until a
// buffer is returned; otherwise it returns nil when the list is empty.
func (p *Pool) GetFree(block bool) *Buffer {
	for {
		if b := p.popFree(); b != nil || !block {
			return b
		}
		_ = p.event.Wait(context.Background())
	}
}

// WaitFree blocks for a free buffer until ctx ends
func (p *Pool) WaitFree(ctx context.Context) (*Buffer, error) {
	for {
		if b := p.popFree(); b != nil {
			return b, nil
		}
		if err := p.event.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// ReturnFree prepends b to the free list and wakes waiters.
// It panics if b is still linked or belongs to another pool.
func (p *Pool) ReturnFree(b *Buffer) {
	p.checkReturn(b)
	b.sampleCount = 0
	p.pushFree(b)
	p.event.Signal()
}

// GetFull pops the oldest prepared buffer, with the same blocking rules as GetFree.
func (p *Pool) GetFull(block bool) *Buffer {
	for {
		if b := p.popPrepared(); b != nil || !block {
			return b
		}
		_ = p.event.Wait(context.Background())
	}
}

// WaitFull blocks for a prepared buffer until ctx ends
func (p *Pool) WaitFull(ctx context.Context) (*Buffer, error) {
	for {
		if b := p.popPrepared(); b != nil {
			return b, nil
		}
		if err := p.event.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// ReturnFull appends b to the prepared list and wakes waiters.
// It panics if b is still linked or belongs to another pool.
func (p *Pool) ReturnFull(b *Buffer) {
	p.checkReturn(b)
	p.appendPrepared(b)
	p.event.Signal()
}

// Take obtains a buffer through the bound connection: a free buffer to fill
// for producer pools, a prepared buffer to drain for consumer pools.
func (p *Pool) Take(block bool) *Buffer {
	if p.role == RoleProducer {
		return p.conn.ProducerTake(block)
	}
	return p.conn.ConsumerTake(block)
}

// Give hands a buffer back through the bound connection after clearing its user data.
func (p *Pool) Give(b *Buffer) {
	b.userData = nil
	if p.role == RoleProducer {
		p.conn.ProducerGive(b)
		return
	}
	p.conn.ConsumerGive(b)
}

// Release drains both lists and returns how many buffers were removed.
// Buffers in flight stay with whoever holds them.
func (p *Pool) Release() int {
	n := 0
	for p.popPrepared() != nil {
		n++
	}
	for p.popFree() != nil {
		n++
	}
	return n
}

func (p *Pool) checkReturn(b *Buffer) {
	if b.pool != p {
		panic(fmt.Errorf("%w: %s pool", ErrForeignBuffer, p.role))
	}
	if b.Linked() {
		panic(fmt.Errorf("%w: buffer is on the %s list", ErrBufferLinked, b.list))
	}
}
