package vfs

import (
	"context"

	"github.com/mwantia/xila/data"
)

// Named pipes and device nodes live in their own backends, so the mount
// holding their parent directory never lists them. A listing merges them
// into the snapshot of an open directory handle.
type listing struct {
	entries  []data.Entry
	position uint64
}

type listingKey struct {
	fileSystem data.FileSystemIdentifier
	local      data.LocalFileIdentifier
}

func newListingKey(file data.UniqueFileIdentifier, task data.TaskIdentifier) listingKey {
	return listingKey{fileSystem: file.FileSystem, local: file.IntoLocal(task)}
}

// specialEntries lists the named pipes and device nodes directly below
// directory.
func (v *VirtualFileSystem) specialEntries(ctx context.Context, directory data.Path) []data.Entry {
	entries := make([]data.Entry, 0)

	for _, path := range v.pipes.NamedPipes(directory) {
		if parent, ok := path.Parent(); !ok || parent != directory {
			continue
		}
		metadata, err := v.pipes.GetMetadataFromPath(ctx, path)
		if err != nil {
			continue
		}
		entries = append(entries, data.Entry{
			Inode: metadata.Inode,
			Name:  path.FileName(),
			Type:  metadata.Type,
		})
	}

	for _, dev := range v.devices.GetDevicesFromPath(directory) {
		if parent, ok := dev.Path.Parent(); !ok || parent != directory {
			continue
		}
		entry := data.Entry{
			Inode: dev.Inode,
			Name:  dev.Path.FileName(),
			Type:  dev.Type,
		}
		if statistics, err := v.devices.GetStatisticsFromPath(ctx, dev.Path); err == nil {
			entry.Size = statistics.Size
		}
		entries = append(entries, entry)
	}
	return entries
}

// openListing snapshots the backend entries of an open directory and
// appends extra. Names already present in the backend win.
func (v *VirtualFileSystem) openListing(ctx context.Context, entry *mountEntry, local data.LocalFileIdentifier, extra []data.Entry) error {
	entries := make([]data.Entry, 0, len(extra))
	names := make(map[string]struct{})
	for {
		child, err := entry.backend.ReadDirectory(ctx, local)
		if err != nil {
			return err
		}
		if child == nil {
			break
		}
		entries = append(entries, *child)
		names[child.Name] = struct{}{}
	}

	for _, special := range extra {
		if _, taken := names[special.Name]; taken {
			continue
		}
		entries = append(entries, special)
		names[special.Name] = struct{}{}
	}

	v.listingsMu.Lock()
	defer v.listingsMu.Unlock()

	v.listings[listingKey{fileSystem: entry.identifier, local: local}] = &listing{entries: entries}
	return nil
}

// withListing runs fn on the listing of key, if the slot has one.
func (v *VirtualFileSystem) withListing(key listingKey, fn func(l *listing)) bool {
	v.listingsMu.Lock()
	defer v.listingsMu.Unlock()

	l, ok := v.listings[key]
	if ok {
		fn(l)
	}
	return ok
}

func (v *VirtualFileSystem) dropListing(key listingKey) {
	v.listingsMu.Lock()
	defer v.listingsMu.Unlock()

	delete(v.listings, key)
}

func (v *VirtualFileSystem) dropListings(task data.TaskIdentifier) {
	v.listingsMu.Lock()
	defer v.listingsMu.Unlock()

	for key := range v.listings {
		if key.local.Task == task {
			delete(v.listings, key)
		}
	}
}

// copyListing gives to a new slot its own copy of the listing of from.
func (v *VirtualFileSystem) copyListing(from, to listingKey) {
	v.listingsMu.Lock()
	defer v.listingsMu.Unlock()

	l, ok := v.listings[from]
	if !ok {
		return
	}
	v.listings[to] = &listing{entries: l.entries, position: l.position}
}

func (v *VirtualFileSystem) moveListing(from, to listingKey) {
	v.listingsMu.Lock()
	defer v.listingsMu.Unlock()

	l, ok := v.listings[from]
	if !ok {
		return
	}
	delete(v.listings, from)
	v.listings[to] = l
}

func (l *listing) read() *data.Entry {
	if l.position >= uint64(len(l.entries)) {
		return nil
	}
	entry := l.entries[l.position]
	l.position++
	return &entry
}

func (l *listing) seek(position uint64) {
	l.position = min(position, uint64(len(l.entries)))
}

// rebaseSpecialNodes moves the named pipes and device nodes below source
// under destination after the directory itself was renamed.
func (v *VirtualFileSystem) rebaseSpecialNodes(ctx context.Context, source, destination data.Path) error {
	var errs data.Errors

	for _, path := range v.pipes.NamedPipes(source) {
		target, err := rebase(path, source, destination)
		if err == nil {
			err = v.pipes.Rename(ctx, path, target)
		}
		if err != nil {
			v.log.Warn("failed to move named pipe '%s': %v", path, err)
			errs.Add(err)
		}
	}

	for _, dev := range v.devices.GetDevicesFromPath(source) {
		target, err := rebase(dev.Path, source, destination)
		if err == nil {
			err = v.devices.Rename(ctx, dev.Path, target)
		}
		if err != nil {
			v.log.Warn("failed to move device '%s': %v", dev.Path, err)
			errs.Add(err)
		}
	}
	return errs.First()
}

func rebase(path, source, destination data.Path) (data.Path, error) {
	suffix, ok := path.StripPrefixAbsolute(source)
	if !ok {
		return "", data.ErrInvalidParameter
	}
	return destination.Append(suffix)
}

// checkParentDirectory fails unless the parent of path is an existing
// directory.
func (v *VirtualFileSystem) checkParentDirectory(ctx context.Context, path data.Path) error {
	parent, ok := path.Parent()
	if !ok {
		return data.ErrInvalidParameter
	}

	metadata, err := v.GetMetadataFromPath(ctx, parent)
	if err != nil {
		return err
	}
	if metadata.Type != data.FileTypeDirectory {
		return data.ErrNotDirectory
	}
	return nil
}
