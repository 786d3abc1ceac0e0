package device

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/mwantia/xila/data"
)

// File exposes a host file, typically a disk image, as a block device. Its
// size is fixed when opened; writes past the end are clamped.
type File struct {
	mu        sync.Mutex
	file      *os.File
	size      uint64
	position  uint64
	blockSize uint32
}

// OpenFile opens path as a block device. When size is larger than the
// current file, the file is grown to size.
func OpenFile(path string, size uint64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Join(data.ErrInputOutput, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Join(data.ErrInputOutput, err)
	}

	current := uint64(info.Size())
	if size > current {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, errors.Join(data.ErrInputOutput, err)
		}
		current = size
	}

	return &File{
		file:      f,
		size:      current,
		blockSize: DefaultBlockSize,
	}, nil
}

func (f *File) Close() error {
	return f.file.Close()
}

func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.ReadAtPosition(p, f.position)
	f.position += uint64(n)
	return n, err
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.WriteAtPosition(p, f.position)
	f.position += uint64(n)
	return n, err
}

func (f *File) ReadAtPosition(p []byte, offset uint64) (int, error) {
	if offset >= f.size {
		return 0, nil
	}
	p = p[:min(uint64(len(p)), f.size-offset)]

	n, err := f.file.ReadAt(p, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return n, data.ErrInputOutput
	}
	return n, nil
}

func (f *File) WriteAtPosition(p []byte, offset uint64) (int, error) {
	if offset >= f.size {
		return 0, nil
	}
	p = p[:min(uint64(len(p)), f.size-offset)]

	n, err := f.file.WriteAt(p, int64(offset))
	if err != nil {
		return n, data.ErrInputOutput
	}
	return n, nil
}

func (f *File) SetPosition(position data.Position) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target, err := position.Resolve(f.position, f.size)
	if err != nil {
		return f.position, err
	}

	f.position = min(target, f.size)
	return f.position, nil
}

func (f *File) Size() (uint64, error) { return f.size, nil }

func (f *File) Flush() error {
	if err := f.file.Sync(); err != nil {
		return data.ErrInputOutput
	}
	return nil
}

func (f *File) Erase() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	zero := make([]byte, f.blockSize)
	for offset := uint64(0); offset < f.size; offset += uint64(len(zero)) {
		if _, err := f.WriteAtPosition(zero, offset); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) IsBlock() bool { return true }

func (f *File) BlockSize() (uint32, error) { return f.blockSize, nil }

func (f *File) IsTerminal() bool { return false }
