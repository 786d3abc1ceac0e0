package mount

import (
	"context"

	"github.com/mwantia/xila/data"
)

// Read reads up to len(p) bytes from the file at the handle position and
// advances it by the number of bytes read. Zero means end of file.
func (fs *FileSystem) Read(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.getHandleUnsafe(file, false)
	if err != nil {
		return 0, err
	}
	if !h.flags.Mode().CanRead() {
		return 0, data.ErrInvalidMode
	}

	n, err := fs.storage.ReadData(ctx, h.inode, h.position, p)
	if err != nil {
		fs.log.Error("failed to read from '%s': %v", h.key, err)
		return 0, err
	}
	h.position += uint64(n)

	if time > h.accessed && !fs.options.ReadOnly {
		if err := fs.touchUnsafe(ctx, h, time, false); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Write writes p at the handle position, or at the end of the file when the
// handle was opened for appending.
func (fs *FileSystem) Write(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.getHandleUnsafe(file, false)
	if err != nil {
		return 0, err
	}
	if !h.flags.Mode().CanWrite() && !h.flags.Status().Append() {
		return 0, data.ErrInvalidMode
	}
	if fs.options.ReadOnly {
		return 0, data.ErrPermissionDenied
	}

	if h.flags.Status().Append() {
		node, err := fs.storage.ReadNode(ctx, h.key)
		if err != nil {
			return 0, err
		}
		h.position = node.Size
	}

	if !fs.storage.GetCapabilities().Fits(h.position + uint64(len(p))) {
		return 0, data.ErrFileTooLarge
	}

	n, err := fs.storage.WriteData(ctx, h.inode, h.position, p)
	if err != nil {
		fs.log.Error("failed to write to '%s': %v", h.key, err)
		return 0, err
	}
	h.position += uint64(n)

	if err := fs.touchUnsafe(ctx, h, time, true); err != nil {
		return n, err
	}
	return n, nil
}

func (fs *FileSystem) SetPosition(ctx context.Context, file data.LocalFileIdentifier, position data.Position) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.getHandleUnsafe(file, false)
	if err != nil {
		return 0, err
	}

	var size uint64
	if position.Whence == data.WhenceEnd {
		node, err := fs.storage.ReadNode(ctx, h.key)
		if err != nil {
			return 0, err
		}
		size = node.Size
	}

	target, err := position.Resolve(h.position, size)
	if err != nil {
		return 0, err
	}

	h.position = target
	return target, nil
}

// Flush is a no-op: storages persist every write before returning.
func (fs *FileSystem) Flush(ctx context.Context, file data.LocalFileIdentifier) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := fs.getHandleUnsafe(file, false)
	return err
}

// Truncate resizes the file behind file, keeping its content up to size and
// zero-filling any growth. The handle position is left untouched.
func (fs *FileSystem) Truncate(ctx context.Context, file data.LocalFileIdentifier, size uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.getHandleUnsafe(file, false)
	if err != nil {
		return err
	}
	if !h.flags.Mode().CanWrite() {
		return data.ErrInvalidMode
	}
	if fs.options.ReadOnly {
		return data.ErrPermissionDenied
	}
	if !fs.storage.GetCapabilities().Fits(size) {
		return data.ErrFileTooLarge
	}

	if err := fs.storage.TruncateData(ctx, h.inode, size); err != nil {
		return err
	}
	return fs.touchUnsafe(ctx, h, fs.options.Clock.Now(), true)
}

func (fs *FileSystem) touchUnsafe(ctx context.Context, h *handle, time data.Time, modified bool) error {
	node, err := fs.storage.ReadNode(ctx, h.key)
	if err != nil {
		return err
	}

	node.Metadata.Touch(time, modified)
	if err := fs.storage.UpdateNode(ctx, h.key, node.Metadata); err != nil {
		return err
	}

	h.accessed = time
	return nil
}
