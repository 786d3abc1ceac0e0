package device

import (
	"sync"
	"sync/atomic"

	"github.com/mwantia/xila/data"
)

// RandomAccess is implemented by devices that can read and write at an
// offset without touching their own cursor. Partitions prefer it so that
// several partitions can share one base device.
type RandomAccess interface {
	ReadAtPosition(p []byte, offset uint64) (int, error)
	WriteAtPosition(p []byte, offset uint64) (int, error)
}

// Partition exposes the window [offset, offset+size) of a base device with
// its own cursor. All I/O is clamped to the window.
type Partition struct {
	base     Device
	offset   uint64
	size     uint64
	position atomic.Uint64

	// serializes seek+transfer pairs on bases without RandomAccess
	mu *sync.Mutex
}

func NewPartition(base Device, offset, size uint64) *Partition {
	return &Partition{
		base:   base,
		offset: offset,
		size:   size,
		mu:     &sync.Mutex{},
	}
}

// Clone copies base, offset and size; the clone starts at position zero.
func (p *Partition) Clone() *Partition {
	return &Partition{
		base:   p.base,
		offset: p.offset,
		size:   p.size,
		mu:     p.mu,
	}
}

func (p *Partition) Offset() uint64   { return p.offset }
func (p *Partition) Position() uint64 { return p.position.Load() }

// window returns how many bytes of a request of length n fit before the
// partition end, and the absolute base offset.
func (p *Partition) window(n int) (uint64, uint64) {
	position := p.position.Load()
	if position >= p.size {
		return 0, 0
	}
	return min(p.size-position, uint64(n)), p.offset + position
}

func (p *Partition) Read(buffer []byte) (int, error) {
	length, absolute := p.window(len(buffer))
	if length == 0 {
		return 0, nil
	}

	n, err := p.transfer(buffer[:length], absolute, false)
	p.position.Add(uint64(n))
	return n, err
}

func (p *Partition) Write(buffer []byte) (int, error) {
	length, absolute := p.window(len(buffer))
	if length == 0 {
		return 0, nil
	}

	n, err := p.transfer(buffer[:length], absolute, true)
	p.position.Add(uint64(n))
	return n, err
}

func (p *Partition) transfer(buffer []byte, absolute uint64, write bool) (int, error) {
	if ra, ok := p.base.(RandomAccess); ok {
		if write {
			return ra.WriteAtPosition(buffer, absolute)
		}
		return ra.ReadAtPosition(buffer, absolute)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.base.SetPosition(data.Start(absolute)); err != nil {
		return 0, err
	}
	if write {
		return p.base.Write(buffer)
	}
	return p.base.Read(buffer)
}

// SetPosition interprets Start, Current and End relative to the partition
// and clamps the result to its size.
func (p *Partition) SetPosition(position data.Position) (uint64, error) {
	current := p.position.Load()
	target, err := position.Resolve(current, p.size)
	if err != nil {
		return current, err
	}

	target = min(target, p.size)
	p.position.Store(target)
	return target, nil
}

func (p *Partition) Size() (uint64, error) { return p.size, nil }

func (p *Partition) Flush() error { return p.base.Flush() }

func (p *Partition) Erase() error { return p.base.Erase() }

func (p *Partition) IsBlock() bool { return p.base.IsBlock() }

func (p *Partition) BlockSize() (uint32, error) { return p.base.BlockSize() }

func (p *Partition) IsTerminal() bool { return false }
