package vfs

import (
	"errors"

	"github.com/mwantia/xila/data"
)

// Failures of the collaborators are folded into the taxonomy so that every
// exported operation only returns data.Error values or context errors.

func (v *VirtualFileSystem) taskError(err error) error {
	if err == nil {
		return nil
	}
	v.log.Debug("task manager failure: %v", err)
	return data.ErrFailedToGetTaskInformations
}

func (v *VirtualFileSystem) usersError(err error) error {
	if err == nil {
		return nil
	}
	v.log.Debug("users failure: %v", err)
	return data.ErrFailedToGetUsersInformations
}

func isNotFound(err error) bool {
	return errors.Is(err, data.ErrNotFound)
}
