package mount

import (
	"context"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (fs *FileSystem) GetStatistics(ctx context.Context, file data.LocalFileIdentifier) (data.Statistics, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	h, err := fs.files.Get(file)
	if err != nil {
		return data.Statistics{}, err
	}

	node, err := fs.storage.ReadNode(ctx, h.key)
	if err != nil {
		return data.Statistics{}, err
	}
	return data.NewStatistics(0, node.Metadata, node.Size), nil
}

func (fs *FileSystem) GetMode(ctx context.Context, file data.LocalFileIdentifier) (data.Mode, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	h, err := fs.files.Get(file)
	if err != nil {
		return 0, err
	}
	return h.flags.Mode(), nil
}

func (fs *FileSystem) GetMetadata(ctx context.Context, file data.LocalFileIdentifier) (data.Metadata, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	h, err := fs.files.Get(file)
	if err != nil {
		return data.Metadata{}, err
	}

	node, err := fs.storage.ReadNode(ctx, h.key)
	if err != nil {
		return data.Metadata{}, err
	}
	return node.Metadata, nil
}

func (fs *FileSystem) GetMetadataFromPath(ctx context.Context, path data.Path) (data.Metadata, error) {
	k, err := key(path)
	if err != nil {
		return data.Metadata{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, err := fs.storage.ReadNode(ctx, k)
	if err != nil {
		return data.Metadata{}, err
	}
	return node.Metadata, nil
}

func (fs *FileSystem) GetStatisticsFromPath(ctx context.Context, path data.Path) (data.Statistics, error) {
	k, err := key(path)
	if err != nil {
		return data.Statistics{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, err := fs.storage.ReadNode(ctx, k)
	if err != nil {
		return data.Statistics{}, err
	}
	return data.NewStatistics(0, node.Metadata, node.Size), nil
}

// SetMetadataFromPath replaces the stored metadata. The inode and type of a
// node never change.
func (fs *FileSystem) SetMetadataFromPath(ctx context.Context, path data.Path, metadata data.Metadata) error {
	k, err := key(path)
	if err != nil {
		return err
	}
	if fs.options.ReadOnly {
		return data.ErrPermissionDenied
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.storage.ReadNode(ctx, k)
	if err != nil {
		return err
	}

	metadata.Inode = node.Metadata.Inode
	metadata.Type = node.Metadata.Type
	return fs.storage.UpdateNode(ctx, k, metadata)
}

// Remove deletes a file or an empty directory that nobody holds open.
func (fs *FileSystem) Remove(ctx context.Context, path data.Path) error {
	k, err := key(path)
	if err != nil {
		return err
	}
	if k == storage.RootKey {
		return data.ErrRessourceBusy
	}
	if fs.options.ReadOnly {
		return data.ErrPermissionDenied
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.storage.ReadNode(ctx, k)
	if err != nil {
		return err
	}

	if node.Metadata.Type == data.FileTypeDirectory {
		children, err := fs.storage.ListNodes(ctx, k)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return data.ErrDirectoryNotEmpty
		}
	}

	if fs.isBusyUnsafe(k) {
		return data.ErrRessourceBusy
	}

	if err := fs.storage.DeleteNode(ctx, k); err != nil {
		return err
	}

	fs.log.Debug("removed '%s'", k)
	return nil
}

// Rename moves source, and everything below it, to destination. Open
// handles follow the move.
func (fs *FileSystem) Rename(ctx context.Context, source, destination data.Path) error {
	sourceKey, err := key(source)
	if err != nil {
		return err
	}
	destinationKey, err := key(destination)
	if err != nil {
		return err
	}
	if fs.options.ReadOnly {
		return data.ErrPermissionDenied
	}
	if sourceKey == destinationKey {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.storage.ReadNode(ctx, sourceKey)
	if err != nil {
		return err
	}
	if err := fs.parentUnsafe(ctx, destinationKey); err != nil {
		return err
	}

	if err := fs.storage.MoveNode(ctx, sourceKey, destinationKey); err != nil {
		return err
	}

	node.Metadata.ChangeTime = fs.options.Clock.Now()
	if err := fs.storage.UpdateNode(ctx, destinationKey, node.Metadata); err != nil {
		return err
	}

	for _, h := range fs.files.Values() {
		if h.key == sourceKey || storage.IsDescendant(sourceKey, h.key) {
			h.key = storage.Rebase(h.key, sourceKey, destinationKey)
		}
	}

	fs.log.Debug("renamed '%s' to '%s'", sourceKey, destinationKey)
	return nil
}
