package mount

import (
	"context"

	"github.com/mwantia/xila/data"
)

// CreateDirectory creates a single directory whose parent must exist.
func (fs *FileSystem) CreateDirectory(ctx context.Context, path data.Path, time data.Time, user data.UserIdentifier, group data.GroupIdentifier) error {
	k, err := key(path)
	if err != nil {
		return err
	}
	if fs.options.ReadOnly {
		return data.ErrPermissionDenied
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	existing, err := fs.storage.ReadNode(ctx, k)
	if err == nil {
		if existing.Metadata.Type == data.FileTypeDirectory {
			return data.ErrDirectoryAlreadyExists
		}
		return data.ErrAlreadyExists
	}
	if err != data.ErrNotFound {
		return err
	}

	if err := fs.parentUnsafe(ctx, k); err != nil {
		return err
	}

	metadata := data.NewMetadata(0, data.FileTypeDirectory, time, user, group)
	if err := fs.storage.CreateNode(ctx, k, &metadata); err != nil {
		return err
	}

	fs.log.Debug("created directory '%s' with inode %d", k, metadata.Inode)
	return nil
}

func (fs *FileSystem) OpenDirectory(ctx context.Context, task data.TaskIdentifier, path data.Path) (data.LocalFileIdentifier, error) {
	k, err := key(path)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.storage.ReadNode(ctx, k)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}
	if node.Metadata.Type != data.FileTypeDirectory {
		return data.LocalFileIdentifier{}, data.ErrNotDirectory
	}

	children, err := fs.storage.ListNodes(ctx, k)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	entries := make([]data.Entry, 0, len(children))
	for _, child := range children {
		entries = append(entries, child.Entry())
	}

	return fs.files.Insert(task, true, &handle{
		key:       k,
		inode:     node.Metadata.Inode,
		flags:     data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone),
		directory: true,
		entries:   entries,
	})
}

func (fs *FileSystem) ReadDirectory(ctx context.Context, file data.LocalFileIdentifier) (*data.Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.getHandleUnsafe(file, true)
	if err != nil {
		return nil, err
	}

	if h.position >= uint64(len(h.entries)) {
		return nil, nil
	}

	entry := h.entries[h.position]
	h.position++
	return &entry, nil
}

func (fs *FileSystem) SetPositionDirectory(ctx context.Context, file data.LocalFileIdentifier, position uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.getHandleUnsafe(file, true)
	if err != nil {
		return err
	}

	h.position = min(position, uint64(len(h.entries)))
	return nil
}

func (fs *FileSystem) GetPositionDirectory(ctx context.Context, file data.LocalFileIdentifier) (uint64, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	h, err := fs.getHandleUnsafe(file, true)
	if err != nil {
		return 0, err
	}
	return h.position, nil
}

func (fs *FileSystem) RewindDirectory(ctx context.Context, file data.LocalFileIdentifier) error {
	return fs.SetPositionDirectory(ctx, file, 0)
}

func (fs *FileSystem) CloseDirectory(ctx context.Context, file data.LocalFileIdentifier) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.getHandleUnsafe(file, true); err != nil {
		return err
	}

	_, err := fs.files.Remove(file)
	return err
}
