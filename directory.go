package vfs

import (
	"context"
	"errors"

	"github.com/mwantia/xila/data"
)

// CreateDirectory creates path on its most specific mount. With recursive set
// missing ancestors are created first and an existing directory is not an
// error.
func (v *VirtualFileSystem) CreateDirectory(ctx context.Context, task data.TaskIdentifier, path data.Path, recursive bool) error {
	path, err := clean(path)
	if err != nil {
		return err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return err
	}

	if !recursive {
		return v.createDirectory(ctx, caller, path)
	}

	segments := path.Segments()
	current := data.Root
	for _, segment := range segments {
		if current, err = current.Join(segment); err != nil {
			return err
		}

		// existing ancestors need no write permission on their own parent
		metadata, err := v.GetMetadataFromPath(ctx, current)
		if err == nil {
			if metadata.Type != data.FileTypeDirectory {
				return data.ErrNotDirectory
			}
			continue
		}
		if !isNotFound(err) {
			return err
		}

		err = v.createDirectory(ctx, caller, current)
		if err != nil && !errors.Is(err, data.ErrDirectoryAlreadyExists) {
			return err
		}
	}
	return nil
}

func (v *VirtualFileSystem) createDirectory(ctx context.Context, caller credentials, path data.Path) error {
	entry, residual, found := v.bestMount(path)
	if !found {
		return data.ErrNotFound
	}
	if residual.IsRoot() {
		// mount points always exist
		return data.ErrDirectoryAlreadyExists
	}

	if err := v.checkParentPermission(ctx, caller, path, data.PermissionWrite|data.PermissionExecute); err != nil {
		return err
	}

	if err := entry.backend.CreateDirectory(ctx, residual, v.now(), caller.user, caller.group); err != nil {
		return err
	}

	v.log.Debug("created directory '%s' on file system %d", path, entry.identifier)
	return nil
}

// OpenDirectory opens a directory handle of task. Directory slots are taken
// from the window at or above data.DirectoryThreshold.
func (v *VirtualFileSystem) OpenDirectory(ctx context.Context, task data.TaskIdentifier, path data.Path) (data.UniqueFileIdentifier, error) {
	path, err := clean(path)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	var directory data.UniqueFileIdentifier
	err = v.try(path, func(entry *mountEntry, residual data.Path) error {
		if err := v.checkPermission(ctx, entry, caller, residual, data.PermissionRead); err != nil {
			return err
		}

		local, err := entry.backend.OpenDirectory(ctx, task, residual)
		if err != nil {
			return err
		}

		if extra := v.specialEntries(ctx, path); len(extra) > 0 {
			if err := v.openListing(ctx, entry, local, extra); err != nil {
				_ = entry.backend.CloseDirectory(ctx, local)
				return err
			}
		}

		directory = local.IntoUnique(entry.identifier)
		return nil
	})
	return directory, err
}

// ReadDirectory returns the next entry of an open directory, or nil once it
// is exhausted.
func (v *VirtualFileSystem) ReadDirectory(ctx context.Context, task data.TaskIdentifier, directory data.UniqueFileIdentifier) (*data.Entry, error) {
	entry, local, err := v.getFile(task, directory)
	if err != nil {
		return nil, err
	}

	var next *data.Entry
	if v.withListing(newListingKey(directory, task), func(l *listing) { next = l.read() }) {
		return next, nil
	}
	return entry.backend.ReadDirectory(ctx, local)
}

func (v *VirtualFileSystem) SetPositionDirectory(ctx context.Context, task data.TaskIdentifier, directory data.UniqueFileIdentifier, position uint64) error {
	entry, local, err := v.getFile(task, directory)
	if err != nil {
		return err
	}

	if v.withListing(newListingKey(directory, task), func(l *listing) { l.seek(position) }) {
		return nil
	}
	return entry.backend.SetPositionDirectory(ctx, local, position)
}

func (v *VirtualFileSystem) GetPositionDirectory(ctx context.Context, task data.TaskIdentifier, directory data.UniqueFileIdentifier) (uint64, error) {
	entry, local, err := v.getFile(task, directory)
	if err != nil {
		return 0, err
	}

	var position uint64
	if v.withListing(newListingKey(directory, task), func(l *listing) { position = l.position }) {
		return position, nil
	}
	return entry.backend.GetPositionDirectory(ctx, local)
}

func (v *VirtualFileSystem) RewindDirectory(ctx context.Context, task data.TaskIdentifier, directory data.UniqueFileIdentifier) error {
	return v.SetPositionDirectory(ctx, task, directory, 0)
}

func (v *VirtualFileSystem) CloseDirectory(ctx context.Context, task data.TaskIdentifier, directory data.UniqueFileIdentifier) error {
	entry, local, err := v.getFile(task, directory)
	if err != nil {
		return err
	}

	v.dropListing(newListingKey(directory, task))
	return entry.backend.CloseDirectory(ctx, local)
}

// ReadDirectoryEntries lists the whole directory at path in backend order.
func (v *VirtualFileSystem) ReadDirectoryEntries(ctx context.Context, task data.TaskIdentifier, path data.Path) ([]data.Entry, error) {
	directory, err := v.OpenDirectory(ctx, task, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := v.CloseDirectory(ctx, task, directory); err != nil {
			v.log.Warn("failed to close directory '%s': %v", path, err)
		}
	}()

	entries := make([]data.Entry, 0)
	for {
		entry, err := v.ReadDirectory(ctx, task, directory)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return entries, nil
		}
		entries = append(entries, *entry)
	}
}
