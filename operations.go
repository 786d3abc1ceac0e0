package vfs

import (
	"context"
	"slices"

	"github.com/mwantia/xila/data"
)

// Delete removes path, which needs write permission on its parent. A
// non-empty directory is only removed with recursive set, children first.
func (v *VirtualFileSystem) Delete(ctx context.Context, task data.TaskIdentifier, path data.Path, recursive bool) error {
	path, err := clean(path)
	if err != nil {
		return err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return err
	}

	return v.delete(ctx, task, caller, path, recursive)
}

func (v *VirtualFileSystem) delete(ctx context.Context, task data.TaskIdentifier, caller credentials, path data.Path, recursive bool) error {
	return v.try(path, func(entry *mountEntry, residual data.Path) error {
		metadata, err := entry.backend.GetMetadataFromPath(ctx, residual)
		if err != nil {
			return err
		}
		if entry.prefix != "" && residual.IsRoot() {
			return data.ErrRessourceBusy
		}

		if err := v.checkParentPermission(ctx, caller, path, data.PermissionWrite); err != nil {
			return err
		}

		if metadata.Type == data.FileTypeDirectory {
			if recursive {
				if err := v.deleteChildren(ctx, task, caller, entry, path, residual); err != nil {
					return err
				}
			} else if len(v.specialEntries(ctx, path)) > 0 {
				return data.ErrDirectoryNotEmpty
			}
		}

		if err := entry.backend.Remove(ctx, residual); err != nil {
			return err
		}

		v.log.Debug("deleted '%s' from file system %d", path, entry.identifier)
		return nil
	})
}

// deleteChildren snapshots the directory through a handle of task, then
// removes every child depth-first, named pipes and device nodes included.
func (v *VirtualFileSystem) deleteChildren(ctx context.Context, task data.TaskIdentifier, caller credentials, entry *mountEntry, path, residual data.Path) error {
	local, err := entry.backend.OpenDirectory(ctx, task, residual)
	if err != nil {
		return err
	}

	names := make([]string, 0)
	for {
		child, err := entry.backend.ReadDirectory(ctx, local)
		if err != nil {
			_ = entry.backend.CloseDirectory(ctx, local)
			return err
		}
		if child == nil {
			break
		}
		names = append(names, child.Name)
	}

	if err := entry.backend.CloseDirectory(ctx, local); err != nil {
		return err
	}

	for _, special := range v.specialEntries(ctx, path) {
		if !slices.Contains(names, special.Name) {
			names = append(names, special.Name)
		}
	}

	for _, name := range names {
		child, err := path.Join(name)
		if err != nil {
			return err
		}
		if err := v.delete(ctx, task, caller, child, true); err != nil {
			return err
		}
	}
	return nil
}

// Rename moves source to destination inside a single backend. Moving across
// backends fails with data.ErrInvalidParameter. Named pipes and device nodes
// below a renamed directory follow it.
func (v *VirtualFileSystem) Rename(ctx context.Context, task data.TaskIdentifier, source, destination data.Path) error {
	source, err := clean(source)
	if err != nil {
		return err
	}
	destination, err = clean(destination)
	if err != nil {
		return err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return err
	}

	return v.try(source, func(entry *mountEntry, residual data.Path) error {
		metadata, err := entry.backend.GetMetadataFromPath(ctx, residual)
		if err != nil {
			return err
		}

		target, ok := entry.residual(destination)
		if !ok {
			return data.ErrInvalidParameter
		}
		if entry.prefix != "" {
			if best, _, _ := v.bestMount(destination); best != entry {
				return data.ErrInvalidParameter
			}
			if residual.IsRoot() {
				return data.ErrRessourceBusy
			}
		}

		if err := v.checkParentPermission(ctx, caller, source, data.PermissionWrite); err != nil {
			return err
		}
		if err := v.checkParentPermission(ctx, caller, destination, data.PermissionWrite); err != nil {
			return err
		}

		if err := entry.backend.Rename(ctx, residual, target); err != nil {
			return err
		}
		v.log.Debug("renamed '%s' to '%s' on file system %d", source, destination, entry.identifier)

		if metadata.Type == data.FileTypeDirectory {
			return v.rebaseSpecialNodes(ctx, source, destination)
		}
		return nil
	})
}

// Exists reports whether any concerned backend knows path.
func (v *VirtualFileSystem) Exists(ctx context.Context, path data.Path) (bool, error) {
	_, err := v.GetMetadataFromPath(ctx, path)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (v *VirtualFileSystem) GetMetadataFromPath(ctx context.Context, path data.Path) (data.Metadata, error) {
	path, err := clean(path)
	if err != nil {
		return data.Metadata{}, err
	}

	var metadata data.Metadata
	err = v.try(path, func(entry *mountEntry, residual data.Path) error {
		found, err := entry.backend.GetMetadataFromPath(ctx, residual)
		if err != nil {
			return err
		}
		metadata = found
		return nil
	})
	return metadata, err
}

// GetStatisticsFromPath reports the statistics of path without opening it.
func (v *VirtualFileSystem) GetStatisticsFromPath(ctx context.Context, path data.Path) (data.Statistics, error) {
	path, err := clean(path)
	if err != nil {
		return data.Statistics{}, err
	}

	var statistics data.Statistics
	err = v.try(path, func(entry *mountEntry, residual data.Path) error {
		found, err := entry.backend.GetStatisticsFromPath(ctx, residual)
		if err != nil {
			return err
		}
		statistics = found
		statistics.FileSystem = entry.identifier
		return nil
	})
	return statistics, err
}

func (v *VirtualFileSystem) GetSize(ctx context.Context, path data.Path) (uint64, error) {
	statistics, err := v.GetStatisticsFromPath(ctx, path)
	if err != nil {
		return 0, err
	}
	return statistics.Size, nil
}

func (v *VirtualFileSystem) GetType(ctx context.Context, path data.Path) (data.FileType, error) {
	metadata, err := v.GetMetadataFromPath(ctx, path)
	if err != nil {
		return 0, err
	}
	return metadata.Type, nil
}

func (v *VirtualFileSystem) GetPermissions(ctx context.Context, path data.Path) (data.Permissions, error) {
	metadata, err := v.GetMetadataFromPath(ctx, path)
	if err != nil {
		return 0, err
	}
	return metadata.Permissions, nil
}

func (v *VirtualFileSystem) GetOwner(ctx context.Context, path data.Path) (data.UserIdentifier, data.GroupIdentifier, error) {
	metadata, err := v.GetMetadataFromPath(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	user, group := metadata.Owner()
	return user, group, nil
}

// SetPermissions is allowed to the owner of path and to root.
func (v *VirtualFileSystem) SetPermissions(ctx context.Context, task data.TaskIdentifier, path data.Path, permissions data.Permissions) error {
	return v.updateMetadata(ctx, task, path, func(caller credentials, metadata *data.Metadata) error {
		if !caller.isRoot() && caller.user != metadata.User {
			return data.ErrPermissionDenied
		}
		metadata.Permissions = permissions
		return nil
	})
}

// SetOwner is allowed to root only.
func (v *VirtualFileSystem) SetOwner(ctx context.Context, task data.TaskIdentifier, path data.Path, user data.UserIdentifier, group data.GroupIdentifier) error {
	return v.updateMetadata(ctx, task, path, func(caller credentials, metadata *data.Metadata) error {
		if !caller.isRoot() {
			return data.ErrPermissionDenied
		}
		metadata.User = user
		metadata.Group = group
		return nil
	})
}

func (v *VirtualFileSystem) updateMetadata(ctx context.Context, task data.TaskIdentifier, path data.Path, update func(caller credentials, metadata *data.Metadata) error) error {
	path, err := clean(path)
	if err != nil {
		return err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return err
	}

	return v.try(path, func(entry *mountEntry, residual data.Path) error {
		metadata, err := entry.backend.GetMetadataFromPath(ctx, residual)
		if err != nil {
			return err
		}

		if err := update(caller, &metadata); err != nil {
			return err
		}
		metadata.ChangeTime = v.now()

		return entry.backend.SetMetadataFromPath(ctx, residual, metadata)
	})
}
