package mount

import (
	"context"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (fs *FileSystem) Open(ctx context.Context, task data.TaskIdentifier, path data.Path, flags data.Flags, time data.Time, user data.UserIdentifier, group data.GroupIdentifier) (data.LocalFileIdentifier, error) {
	if !flags.Mode().IsValid() {
		return data.LocalFileIdentifier{}, data.ErrInvalidMode
	}
	if fs.options.ReadOnly && flags.RequiredPermission().Write() {
		return data.LocalFileIdentifier{}, data.ErrPermissionDenied
	}

	k, err := key(path)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.storage.ReadNode(ctx, k)
	switch {
	case err == data.ErrNotFound:
		if !flags.Open().Create() {
			return data.LocalFileIdentifier{}, data.ErrNotFound
		}
		if fs.options.ReadOnly {
			return data.LocalFileIdentifier{}, data.ErrPermissionDenied
		}
		if err := fs.parentUnsafe(ctx, k); err != nil {
			return data.LocalFileIdentifier{}, err
		}

		metadata := data.NewMetadata(0, data.FileTypeFile, time, user, group)
		if err := fs.storage.CreateNode(ctx, k, &metadata); err != nil {
			return data.LocalFileIdentifier{}, err
		}
		node = &storage.Node{Key: k, Metadata: metadata}
		fs.log.Debug("created file '%s' with inode %d", k, metadata.Inode)

	case err != nil:
		return data.LocalFileIdentifier{}, err

	default:
		if flags.Open().Create() && flags.Open().Exclusive() {
			return data.LocalFileIdentifier{}, data.ErrAlreadyExists
		}
		if node.Metadata.Type == data.FileTypeDirectory {
			return data.LocalFileIdentifier{}, data.ErrIsDirectory
		}
		if flags.Open().Truncate() && node.Size > 0 {
			if err := fs.storage.TruncateData(ctx, node.Metadata.Inode, 0); err != nil {
				return data.LocalFileIdentifier{}, err
			}
			node.Metadata.Touch(time, true)
			if err := fs.storage.UpdateNode(ctx, k, node.Metadata); err != nil {
				return data.LocalFileIdentifier{}, err
			}
		}
	}

	return fs.files.Insert(task, false, &handle{
		key:      k,
		inode:    node.Metadata.Inode,
		flags:    flags,
		accessed: node.Metadata.AccessTime,
	})
}

func (fs *FileSystem) Close(ctx context.Context, file data.LocalFileIdentifier) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.getHandleUnsafe(file, false); err != nil {
		return err
	}

	_, err := fs.files.Remove(file)
	return err
}

func (fs *FileSystem) CloseAll(ctx context.Context, task data.TaskIdentifier) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if closed := fs.files.RemoveAll(task); len(closed) > 0 {
		fs.log.Debug("closed %d handles of task %d", len(closed), task)
	}
	return nil
}

func (fs *FileSystem) Duplicate(ctx context.Context, file data.LocalFileIdentifier) (data.LocalFileIdentifier, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.files.Get(file)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	clone := *h
	clone.entries = append([]data.Entry(nil), h.entries...)
	return fs.files.Insert(file.Task, h.directory, &clone)
}

func (fs *FileSystem) Transfert(ctx context.Context, newTask data.TaskIdentifier, file data.LocalFileIdentifier, newFile *data.FileIdentifier) (data.LocalFileIdentifier, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.files.Transfert(file, newTask, newFile)
}
