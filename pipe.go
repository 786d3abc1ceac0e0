package vfs

import (
	"context"

	"github.com/mwantia/xila/data"
)

// CreateNamedPipe registers a pipe of size bytes at path. Size zero selects
// the default capacity of the pipe backend.
func (v *VirtualFileSystem) CreateNamedPipe(ctx context.Context, task data.TaskIdentifier, path data.Path, size int) error {
	path, err := clean(path)
	if err != nil {
		return err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return err
	}

	if exists, err := v.Exists(ctx, path); err != nil {
		return err
	} else if exists {
		return data.ErrAlreadyExists
	}

	if err := v.checkParentDirectory(ctx, path); err != nil {
		return err
	}
	if err := v.checkParentPermission(ctx, caller, path, data.PermissionWrite); err != nil {
		return err
	}

	_, err = v.pipes.CreateNamedPipe(ctx, path, size, v.now(), caller.user, caller.group)
	return err
}

// CreateUnnamedPipe creates a pipe owned by task and returns its read and
// write ends.
func (v *VirtualFileSystem) CreateUnnamedPipe(ctx context.Context, task data.TaskIdentifier, size int, status data.Status) (data.UniqueFileIdentifier, data.UniqueFileIdentifier, error) {
	readEnd, writeEnd, err := v.pipes.CreateUnnamedPipe(ctx, task, size, status)
	if err != nil {
		return data.UniqueFileIdentifier{}, data.UniqueFileIdentifier{}, err
	}

	return readEnd.IntoUnique(data.PipeFileSystemIdentifier), writeEnd.IntoUnique(data.PipeFileSystemIdentifier), nil
}
