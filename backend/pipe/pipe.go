package pipe

import (
	"context"
	"sync"

	"github.com/mwantia/xila/data"
)

// Pipe is a bounded FIFO shared by every handle opened on it. Blocked readers
// and writers wait on a broadcast channel that is closed and replaced each
// time the pipe changes state.
type Pipe struct {
	mu      sync.Mutex
	ring    *ring
	readers int
	writers int
	changed chan struct{}
}

func newPipe(size int) *Pipe {
	return &Pipe{
		ring:    newRing(size),
		changed: make(chan struct{}),
	}
}

// notifyUnsafe wakes every waiter. Caller holds p.mu.
func (p *Pipe) notifyUnsafe() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Pipe) attach(mode data.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if mode.CanRead() {
		p.readers++
	}
	if mode.CanWrite() {
		p.writers++
	}
	p.notifyUnsafe()
}

func (p *Pipe) detach(mode data.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if mode.CanRead() && p.readers > 0 {
		p.readers--
	}
	if mode.CanWrite() && p.writers > 0 {
		p.writers--
	}
	p.notifyUnsafe()
}

// Read copies up to len(b) buffered bytes. An empty pipe returns 0 once every
// writer is gone, or immediately when nonBlocking is set; otherwise it waits.
func (p *Pipe) Read(ctx context.Context, b []byte, nonBlocking bool) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	for {
		p.mu.Lock()
		if p.ring.Len() > 0 {
			n := p.ring.Read(b)
			p.notifyUnsafe()
			p.mu.Unlock()
			return n, nil
		}
		if p.writers == 0 || nonBlocking {
			p.mu.Unlock()
			return 0, nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Write queues b. Without readers it fails with data.ErrBrokenPipe. A
// non-blocking write stores what fits, possibly nothing; a blocking write
// waits for space until every byte is queued.
func (p *Pipe) Write(ctx context.Context, b []byte, nonBlocking bool) (int, error) {
	written := 0
	for {
		p.mu.Lock()
		if p.readers == 0 {
			p.mu.Unlock()
			if written > 0 {
				return written, nil
			}
			return 0, data.ErrBrokenPipe
		}

		n := p.ring.Write(b[written:])
		written += n
		if n > 0 {
			p.notifyUnsafe()
		}
		if written == len(b) || nonBlocking {
			p.mu.Unlock()
			return written, nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return written, ctx.Err()
		}
	}
}

// Len returns the number of buffered bytes.
func (p *Pipe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ring.Len()
}

func (p *Pipe) Cap() int {
	return p.ring.Cap()
}

// ring is a fixed capacity circular byte buffer.
type ring struct {
	buffer []byte
	head   int
	length int
}

func newRing(size int) *ring {
	return &ring{buffer: make([]byte, size)}
}

func (r *ring) Len() int { return r.length }
func (r *ring) Cap() int { return len(r.buffer) }

func (r *ring) Read(p []byte) int {
	n := min(len(p), r.length)
	for copied := 0; copied < n; {
		end := min(r.head+n-copied, len(r.buffer))
		c := copy(p[copied:], r.buffer[r.head:end])
		copied += c
		r.head = (r.head + c) % len(r.buffer)
	}
	r.length -= n
	if r.length == 0 {
		r.head = 0
	}
	return n
}

func (r *ring) Write(p []byte) int {
	n := min(len(p), len(r.buffer)-r.length)
	for copied := 0; copied < n; {
		tail := (r.head + r.length) % len(r.buffer)
		end := min(tail+n-copied, len(r.buffer))
		c := copy(r.buffer[tail:end], p[copied:n])
		copied += c
		r.length += c
	}
	return n
}
