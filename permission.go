package vfs

import (
	"context"

	"github.com/mwantia/xila/data"
)

type credentials struct {
	user  data.UserIdentifier
	group data.GroupIdentifier
}

func (c credentials) isRoot() bool {
	return c.user == data.RootUserIdentifier
}

func (v *VirtualFileSystem) getCredentials(task data.TaskIdentifier) (credentials, error) {
	user, err := v.tasks.GetUser(task)
	if err != nil {
		return credentials{}, v.taskError(err)
	}

	group, err := v.tasks.GetGroup(task)
	if err != nil {
		return credentials{}, v.taskError(err)
	}

	return credentials{user: user, group: group}, nil
}

// isGranted picks the user, group or other triad of metadata for caller and
// reports whether it includes permission.
func (v *VirtualFileSystem) isGranted(caller credentials, metadata data.Metadata, permission data.Permission) (bool, error) {
	if caller.isRoot() {
		return true, nil
	}

	if caller.user == metadata.User {
		return metadata.Permissions.User().Include(permission), nil
	}

	member, err := v.users.IsInGroup(caller.user, metadata.Group)
	if err != nil {
		return false, v.usersError(err)
	}
	if member {
		return metadata.Permissions.Group().Include(permission), nil
	}

	return metadata.Permissions.Other().Include(permission), nil
}

// checkPermission fetches the owner of residual from the backend of entry
// and fails with data.ErrPermissionDenied unless caller holds permission.
func (v *VirtualFileSystem) checkPermission(ctx context.Context, entry *mountEntry, caller credentials, residual data.Path, permission data.Permission) error {
	if caller.isRoot() {
		return nil
	}

	metadata, err := entry.backend.GetMetadataFromPath(ctx, residual)
	if err != nil {
		return err
	}

	granted, err := v.isGranted(caller, metadata, permission)
	if err != nil {
		return err
	}
	if !granted {
		v.log.Debug("user %d denied %s on '%s' of file system %d", caller.user, permission, residual, entry.identifier)
		return data.ErrPermissionDenied
	}
	return nil
}

// checkParentPermission resolves the parent directory of path anywhere in
// the namespace and checks permission on it.
func (v *VirtualFileSystem) checkParentPermission(ctx context.Context, caller credentials, path data.Path, permission data.Permission) error {
	if caller.isRoot() {
		return nil
	}

	parent, ok := path.Parent()
	if !ok {
		// root has no parent; only root may change it
		return data.ErrPermissionDenied
	}

	return v.try(parent, func(entry *mountEntry, residual data.Path) error {
		return v.checkPermission(ctx, entry, caller, residual, permission)
	})
}
