// ABOUTME: Intrusive list operations for the free and prepared lists
// ABOUTME: Each operation runs under the list's spin lock and keeps counts and tail in step
package pool

func (p *Pool) pushFree(b *Buffer) {
	p.freeLock.Lock()
	b.next = p.free
	b.list = listFree
	p.free = b
	p.freeCount++
	p.freeLock.Unlock()
}

func (p *Pool) popFree() *Buffer {
	p.freeLock.Lock()
	b := p.free
	if b != nil {
		p.free = b.next
		b.next = nil
		b.list = listNone
		p.freeCount--
	}
	p.freeLock.Unlock()
	return b
}

func (p *Pool) appendPrepared(b *Buffer) {
	p.preparedLock.Lock()
	b.list = listPrepared
	if p.prepared == nil {
		p.prepared = b
	} else {
		p.preparedTail.next = b
	}
	p.preparedTail = b
	p.preparedCount++
	p.preparedLock.Unlock()
}

func (p *Pool) popPrepared() *Buffer {
	p.preparedLock.Lock()
	b := p.prepared
	if b != nil {
		p.prepared = b.next
		if p.prepared == nil {
			p.preparedTail = nil
		}
		b.next = nil
		b.list = listNone
		p.preparedCount--
	}
	p.preparedLock.Unlock()
	return b
}
