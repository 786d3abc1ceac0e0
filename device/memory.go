package device

import (
	"sync"

	"github.com/mwantia/xila/data"
)

// DefaultBlockSize is used by block devices that do not specify one.
const DefaultBlockSize = 512

// Memory is a fixed-capacity RAM block device.
type Memory struct {
	mu        sync.RWMutex
	buffer    []byte
	position  uint64
	blockSize uint32
}

func NewMemory(size uint64) *Memory {
	return NewMemoryWithBlockSize(size, DefaultBlockSize)
}

func NewMemoryWithBlockSize(size uint64, blockSize uint32) *Memory {
	return &Memory{
		buffer:    make([]byte, size),
		blockSize: blockSize,
	}
}

func (m *Memory) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _ := m.readAtUnsafe(p, m.position)
	m.position += uint64(n)
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _ := m.writeAtUnsafe(p, m.position)
	m.position += uint64(n)
	return n, nil
}

// ReadAtPosition reads without moving the cursor.
func (m *Memory) ReadAtPosition(p []byte, offset uint64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.readAtUnsafe(p, offset)
}

// WriteAtPosition writes without moving the cursor.
func (m *Memory) WriteAtPosition(p []byte, offset uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writeAtUnsafe(p, offset)
}

func (m *Memory) readAtUnsafe(p []byte, offset uint64) (int, error) {
	size := uint64(len(m.buffer))
	if offset >= size {
		return 0, nil
	}
	return copy(p, m.buffer[offset:]), nil
}

func (m *Memory) writeAtUnsafe(p []byte, offset uint64) (int, error) {
	size := uint64(len(m.buffer))
	if offset >= size {
		return 0, nil
	}
	return copy(m.buffer[offset:], p), nil
}

func (m *Memory) SetPosition(position data.Position) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := uint64(len(m.buffer))
	target, err := position.Resolve(m.position, size)
	if err != nil {
		return m.position, err
	}

	m.position = min(target, size)
	return m.position, nil
}

func (m *Memory) Size() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.buffer)), nil
}

func (m *Memory) Flush() error { return nil }

func (m *Memory) Erase() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.buffer)
	return nil
}

func (m *Memory) IsBlock() bool { return true }

func (m *Memory) BlockSize() (uint32, error) { return m.blockSize, nil }

func (m *Memory) IsTerminal() bool { return false }
