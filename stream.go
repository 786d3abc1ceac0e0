package vfs

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/mwantia/xila/data"
)

// ReadLine reads single bytes until a line feed or carriage return, which
// is consumed but not returned. A read of zero bytes ends the line as well.
func (v *VirtualFileSystem) ReadLine(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier) (string, error) {
	var line bytes.Buffer
	buffer := make([]byte, 1)

	for {
		n, err := v.Read(ctx, task, file, buffer)
		if err != nil {
			return line.String(), err
		}
		if n == 0 || buffer[0] == '\n' || buffer[0] == '\r' {
			return line.String(), nil
		}
		line.WriteByte(buffer[0])
	}
}

// ReadToEnd reads until the backend reports zero bytes.
func (v *VirtualFileSystem) ReadToEnd(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier, chunk int) ([]byte, error) {
	if chunk <= 0 {
		return nil, data.ErrInvalidParameter
	}

	var content bytes.Buffer
	buffer := make([]byte, chunk)
	for {
		n, err := v.Read(ctx, task, file, buffer)
		if err != nil {
			return content.Bytes(), err
		}
		if n == 0 {
			return content.Bytes(), nil
		}
		content.Write(buffer[:n])
	}
}

// WriteAll writes p completely. A write making no progress fails with
// data.ErrInputOutput.
func (v *VirtualFileSystem) WriteAll(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier, p []byte) error {
	for len(p) > 0 {
		n, err := v.Write(ctx, task, file, p)
		if err != nil {
			return err
		}
		if n == 0 {
			return data.ErrInputOutput
		}
		p = p[n:]
	}
	return nil
}

// File binds an open slot to its task so it can be used wherever the io
// interfaces are expected.
type File struct {
	vfs        *VirtualFileSystem
	ctx        context.Context
	task       data.TaskIdentifier
	identifier data.UniqueFileIdentifier

	mu     sync.Mutex
	closed bool
}

var (
	_ io.ReadWriteCloser = (*File)(nil)
	_ io.Seeker          = (*File)(nil)
)

// NewFile wraps an already open slot. ctx bounds every call made through
// the returned file.
func (v *VirtualFileSystem) NewFile(ctx context.Context, task data.TaskIdentifier, identifier data.UniqueFileIdentifier) *File {
	return &File{
		vfs:        v,
		ctx:        ctx,
		task:       task,
		identifier: identifier,
	}
}

// OpenFile is Open returning a File.
func (v *VirtualFileSystem) OpenFile(ctx context.Context, task data.TaskIdentifier, path data.Path, flags data.Flags) (*File, error) {
	identifier, err := v.Open(ctx, task, path, flags)
	if err != nil {
		return nil, err
	}
	return v.NewFile(ctx, task, identifier), nil
}

func (f *File) Identifier() data.UniqueFileIdentifier {
	return f.identifier
}

func (f *File) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrInvalidIdentifier
	}
	return f.ctx.Err()
}

// Read reports io.EOF once the backend returns zero bytes for a non-empty
// buffer.
func (f *File) Read(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}

	n, err := f.vfs.Read(f.ctx, f.task, f.identifier, p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}

	if err := f.vfs.WriteAll(f.ctx, f.task, f.identifier, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString writes s.
func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.check(); err != nil {
		return 0, err
	}

	var position data.Position
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return 0, data.ErrInvalidParameter
		}
		position = data.Start(uint64(offset))
	case io.SeekCurrent:
		position = data.Current(offset)
	case io.SeekEnd:
		position = data.End(offset)
	default:
		return 0, data.ErrInvalidParameter
	}

	absolute, err := f.vfs.SetPosition(f.ctx, f.task, f.identifier, position)
	return int64(absolute), err
}

func (f *File) Statistics() (data.Statistics, error) {
	if err := f.check(); err != nil {
		return data.Statistics{}, err
	}
	return f.vfs.GetStatistics(f.ctx, f.task, f.identifier)
}

func (f *File) Flush() error {
	if err := f.check(); err != nil {
		return err
	}
	return f.vfs.Flush(f.ctx, f.task, f.identifier)
}

// Close releases the slot. Closing twice fails with
// data.ErrInvalidIdentifier.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrInvalidIdentifier
	}
	f.closed = true

	return f.vfs.Close(f.ctx, f.task, f.identifier)
}
