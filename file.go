package vfs

import (
	"context"

	"github.com/mwantia/xila/backend"
	"github.com/mwantia/xila/data"
)

// Open opens path on behalf of task. An existing node is looked up in every
// concerned backend first; only when none knows it and flags request
// creation is the file created on the most specific mount, which needs write
// permission on the parent directory.
func (v *VirtualFileSystem) Open(ctx context.Context, task data.TaskIdentifier, path data.Path, flags data.Flags) (data.UniqueFileIdentifier, error) {
	path, err := clean(path)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}
	if !flags.Mode().IsValid() {
		return data.UniqueFileIdentifier{}, data.ErrInvalidMode
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	now := v.now()
	existing := flags.WithOpen(data.NewOpen(false, false, flags.Open().Truncate()))

	var file data.UniqueFileIdentifier
	err = v.try(path, func(entry *mountEntry, residual data.Path) error {
		if _, err := entry.backend.GetMetadataFromPath(ctx, residual); err != nil {
			return err
		}
		if flags.Open().Exclusive() {
			return data.ErrAlreadyExists
		}
		if err := v.checkPermission(ctx, entry, caller, residual, flags.RequiredPermission()); err != nil {
			return err
		}

		local, err := entry.backend.Open(ctx, task, residual, existing, now, caller.user, caller.group)
		if err != nil {
			return err
		}
		file = local.IntoUnique(entry.identifier)
		return nil
	})
	if err == nil {
		v.log.Debug("task %d opened '%s' as %s with %s", task, path, file, flags)
		return file, nil
	}
	if !isNotFound(err) || !flags.Open().Create() {
		return data.UniqueFileIdentifier{}, err
	}

	entry, residual, found := v.bestMount(path)
	if !found {
		return data.UniqueFileIdentifier{}, data.ErrNotFound
	}
	if err := v.checkParentPermission(ctx, caller, path, data.PermissionWrite); err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	local, err := entry.backend.Open(ctx, task, residual, flags, now, caller.user, caller.group)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	file = local.IntoUnique(entry.identifier)
	v.log.Debug("task %d created '%s' as %s", task, path, file)
	return file, nil
}

// CreateFile creates an empty regular file, failing when path exists.
func (v *VirtualFileSystem) CreateFile(ctx context.Context, task data.TaskIdentifier, path data.Path) error {
	file, err := v.Open(ctx, task, path, data.NewFlags(data.ModeWrite, data.NewOpen(true, true, false), data.StatusNone))
	if err != nil {
		return err
	}
	return v.Close(ctx, task, file)
}

func (v *VirtualFileSystem) getFile(task data.TaskIdentifier, file data.UniqueFileIdentifier) (*mountEntry, data.LocalFileIdentifier, error) {
	entry, err := v.getEntry(file.FileSystem)
	if err != nil {
		return nil, data.LocalFileIdentifier{}, err
	}
	return entry, file.IntoLocal(task), nil
}

// Close releases a file or directory slot of task.
func (v *VirtualFileSystem) Close(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier) error {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return err
	}

	if file.File.IsDirectory() {
		v.dropListing(newListingKey(file, task))
		return entry.backend.CloseDirectory(ctx, local)
	}
	return entry.backend.Close(ctx, local)
}

// CloseAll releases every slot of task in every backend. All backends are
// visited; the first failure is returned.
func (v *VirtualFileSystem) CloseAll(ctx context.Context, task data.TaskIdentifier) error {
	v.mu.RLock()
	entries := make([]*mountEntry, 0, len(v.entries))
	for _, entry := range v.entries {
		entries = append(entries, entry)
	}
	v.mu.RUnlock()

	v.dropListings(task)

	var errs data.Errors
	for _, entry := range entries {
		if err := entry.backend.CloseAll(ctx, task); err != nil {
			v.log.Warn("failed to close slots of task %d on file system %d: %v", task, entry.identifier, err)
			errs.Add(err)
		}
	}
	return errs.First()
}

func (v *VirtualFileSystem) Read(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier, p []byte) (int, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return 0, err
	}
	return entry.backend.Read(ctx, local, p, v.now())
}

func (v *VirtualFileSystem) Write(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier, p []byte) (int, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return 0, err
	}
	return entry.backend.Write(ctx, local, p, v.now())
}

func (v *VirtualFileSystem) SetPosition(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier, position data.Position) (uint64, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return 0, err
	}
	return entry.backend.SetPosition(ctx, local, position)
}

func (v *VirtualFileSystem) Flush(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier) error {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return err
	}
	return entry.backend.Flush(ctx, local)
}

// Truncate resizes an open file. Backends without support report
// data.ErrUnsupportedOperation.
func (v *VirtualFileSystem) Truncate(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier, size uint64) error {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return err
	}

	truncater, ok := entry.backend.(backend.Truncater)
	if !ok {
		return data.ErrUnsupportedOperation
	}
	return truncater.Truncate(ctx, local, size)
}

// GetStatistics reports the statistics of an open file, tagged with the
// identifier of its backend.
func (v *VirtualFileSystem) GetStatistics(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier) (data.Statistics, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return data.Statistics{}, err
	}

	statistics, err := entry.backend.GetStatistics(ctx, local)
	if err != nil {
		return data.Statistics{}, err
	}
	statistics.FileSystem = entry.identifier
	return statistics, nil
}

func (v *VirtualFileSystem) GetMode(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier) (data.Mode, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return 0, err
	}
	return entry.backend.GetMode(ctx, local)
}

func (v *VirtualFileSystem) GetMetadata(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier) (data.Metadata, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return data.Metadata{}, err
	}
	return entry.backend.GetMetadata(ctx, local)
}

// Duplicate opens a second slot of task on the same node, with its own
// position where the backend keeps one.
func (v *VirtualFileSystem) Duplicate(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier) (data.UniqueFileIdentifier, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	duplicate, err := entry.backend.Duplicate(ctx, local)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	unique := duplicate.IntoUnique(entry.identifier)
	v.copyListing(newListingKey(file, task), newListingKey(unique, task))
	return unique, nil
}

// TransfertFile moves a slot from task to newTask. With a nil newFile the
// smallest free slot of newTask is used.
func (v *VirtualFileSystem) TransfertFile(ctx context.Context, task data.TaskIdentifier, file data.UniqueFileIdentifier, newTask data.TaskIdentifier, newFile *data.FileIdentifier) (data.UniqueFileIdentifier, error) {
	entry, local, err := v.getFile(task, file)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	transferred, err := entry.backend.Transfert(ctx, newTask, local, newFile)
	if err != nil {
		return data.UniqueFileIdentifier{}, err
	}

	unique := transferred.IntoUnique(entry.identifier)
	v.moveListing(newListingKey(file, task), newListingKey(unique, newTask))

	v.log.Debug("transferred %s of task %d to task %d as %s", file, task, newTask, unique)
	return unique, nil
}
