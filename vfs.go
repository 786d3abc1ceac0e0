// Package vfs is the virtual file system: a mount table routing absolute
// paths to backends, with permission checks against the credentials of the
// calling task and file identifiers that embed the backend they belong to.
package vfs

import (
	"context"
	"sync"

	"github.com/mwantia/xila/backend"
	"github.com/mwantia/xila/backend/devices"
	"github.com/mwantia/xila/backend/pipe"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
	"github.com/mwantia/xila/users"
	"github.com/tidwall/btree"
)

type mountEntry struct {
	identifier data.FileSystemIdentifier
	// empty for the pipe and device backends
	prefix    data.Path
	backend   backend.FileSystem
	mountedAt data.Time
}

// residual maps an absolute path into the namespace of the entry.
func (e *mountEntry) residual(path data.Path) (data.Path, bool) {
	if e.prefix == "" {
		return path, true
	}
	return path.StripPrefixAbsolute(e.prefix)
}

// MountInfo describes one entry of the mount table.
type MountInfo struct {
	Identifier data.FileSystemIdentifier
	// Path is empty for the built-in pipe and device backends.
	Path      data.Path
	MountedAt data.Time
	OpenCount int
}

type VirtualFileSystem struct {
	mu      sync.RWMutex
	log     *log.Logger
	options *VirtualFileSystemOptions

	tasks TaskManager
	users users.Users

	entries  map[data.FileSystemIdentifier]*mountEntry
	prefixes *btree.Map[string, data.FileSystemIdentifier]

	pipes   *pipe.FileSystem
	devices *devices.FileSystem

	listingsMu sync.Mutex
	listings   map[listingKey]*listing
}

// NewVirtualFileSystem creates the file system with the pipe and device
// backends already in place and registers a hook closing every slot of an
// exiting task.
func NewVirtualFileSystem(tasks TaskManager, usrs users.Users, opts ...VirtualFileSystemOption) (*VirtualFileSystem, error) {
	if tasks == nil || usrs == nil {
		return nil, data.ErrInvalidParameter
	}

	options := newDefaultVirtualFileSystemOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	pipes, err := pipe.New(append([]pipe.Option{
		pipe.WithLogger(options.Logger),
	}, options.PipeOptions...)...)
	if err != nil {
		return nil, err
	}

	devs, err := devices.New(append([]devices.Option{
		devices.WithLogger(options.Logger),
		devices.WithClock(options.Clock),
	}, options.DeviceOptions...)...)
	if err != nil {
		return nil, err
	}

	now := options.Clock.Now()
	v := &VirtualFileSystem{
		log:      options.Logger.Named("vfs"),
		options:  options,
		tasks:    tasks,
		users:    usrs,
		prefixes: btree.NewMap[string, data.FileSystemIdentifier](0),
		pipes:    pipes,
		devices:  devs,
		listings: make(map[listingKey]*listing),
		entries: map[data.FileSystemIdentifier]*mountEntry{
			data.PipeFileSystemIdentifier: {
				identifier: data.PipeFileSystemIdentifier,
				backend:    pipes,
				mountedAt:  now,
			},
			data.DeviceFileSystemIdentifier: {
				identifier: data.DeviceFileSystemIdentifier,
				backend:    devs,
				mountedAt:  now,
			},
		},
	}

	tasks.OnTaskExit(func(ctx context.Context, identifier data.TaskIdentifier) error {
		return v.CloseAll(ctx, identifier)
	})

	return v, nil
}

func (v *VirtualFileSystem) Pipes() *pipe.FileSystem {
	return v.pipes
}

func (v *VirtualFileSystem) Devices() *devices.FileSystem {
	return v.devices
}

func (v *VirtualFileSystem) now() data.Time {
	return v.options.Clock.Now()
}

// clean validates an absolute caller path and resolves "." and "..".
func clean(path data.Path) (data.Path, error) {
	if !path.IsValid() || !path.IsAbsolute() {
		return "", data.ErrInvalidPath
	}
	return path.Canonicalize(), nil
}

// Mount grafts fs under prefix and returns the identifier it was assigned.
func (v *VirtualFileSystem) Mount(ctx context.Context, prefix data.Path, fs backend.FileSystem) (data.FileSystemIdentifier, error) {
	if fs == nil {
		return 0, data.ErrInvalidParameter
	}

	prefix, err := clean(prefix)
	if err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.prefixes.Get(prefix.String()); exists {
		return 0, data.ErrAlreadyMounted
	}

	identifier, err := data.GetNewFileSystemIdentifier(v.entries)
	if err != nil {
		return 0, err
	}

	v.entries[identifier] = &mountEntry{
		identifier: identifier,
		prefix:     prefix,
		backend:    fs,
		mountedAt:  v.now(),
	}
	v.prefixes.Set(prefix.String(), identifier)

	v.log.Info("mounted file system %d at '%s'", identifier, prefix)
	return identifier, nil
}

// Unmount removes the backend mounted at prefix and hands it back to the
// caller, who is responsible for shutting it down. It fails while the backend
// reports open slots or while another mount is nested below prefix.
func (v *VirtualFileSystem) Unmount(ctx context.Context, prefix data.Path) (backend.FileSystem, error) {
	prefix, err := clean(prefix)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	identifier, exists := v.prefixes.Get(prefix.String())
	if !exists {
		return nil, data.ErrNotMounted
	}

	if v.hasChildMountsUnsafe(prefix) {
		v.log.Warn("unable to unmount '%s': nested mounts exist", prefix)
		return nil, data.ErrRessourceBusy
	}

	entry := v.entries[identifier]
	if usage, ok := entry.backend.(backend.Usage); ok && usage.OpenCount() > 0 {
		v.log.Warn("unable to unmount '%s': %d slots still open", prefix, usage.OpenCount())
		return nil, data.ErrRessourceBusy
	}

	delete(v.entries, identifier)
	v.prefixes.Delete(prefix.String())

	v.log.Info("unmounted file system %d from '%s'", identifier, prefix)
	return entry.backend, nil
}

func (v *VirtualFileSystem) hasChildMountsUnsafe(parent data.Path) bool {
	nested := false
	v.prefixes.Scan(func(key string, _ data.FileSystemIdentifier) bool {
		if key != parent.String() && data.Path(key).HasPrefix(parent) {
			nested = true
			return false
		}
		return true
	})
	return nested
}

// Mounts lists the mount table: the built-in backends first, then every
// mounted prefix in lexical order.
func (v *VirtualFileSystem) Mounts() []MountInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	infos := make([]MountInfo, 0, len(v.entries))
	infos = append(infos,
		v.infoUnsafe(v.entries[data.PipeFileSystemIdentifier]),
		v.infoUnsafe(v.entries[data.DeviceFileSystemIdentifier]),
	)

	v.prefixes.Scan(func(_ string, identifier data.FileSystemIdentifier) bool {
		infos = append(infos, v.infoUnsafe(v.entries[identifier]))
		return true
	})
	return infos
}

func (v *VirtualFileSystem) infoUnsafe(entry *mountEntry) MountInfo {
	info := MountInfo{
		Identifier: entry.identifier,
		Path:       entry.prefix,
		MountedAt:  entry.mountedAt,
	}
	if usage, ok := entry.backend.(backend.Usage); ok {
		info.OpenCount = usage.OpenCount()
	}
	return info
}

// Shutdown releases every mounted backend holding external resources and
// clears the mount table. The built-in backends stay in place.
func (v *VirtualFileSystem) Shutdown(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var errs data.Errors
	v.prefixes.Scan(func(key string, identifier data.FileSystemIdentifier) bool {
		entry := v.entries[identifier]
		if closer, ok := entry.backend.(backend.Closer); ok {
			if err := closer.Shutdown(ctx); err != nil {
				v.log.Warn("failed to shut down file system mounted at '%s': %v", key, err)
				errs.Add(err)
			}
		}
		delete(v.entries, identifier)
		return true
	})
	v.prefixes = btree.NewMap[string, data.FileSystemIdentifier](0)

	return errs.First()
}

// getEntry copies a mount entry out so the backend call runs without the
// mount table lock held.
func (v *VirtualFileSystem) getEntry(identifier data.FileSystemIdentifier) (*mountEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	entry, exists := v.entries[identifier]
	if !exists {
		return nil, data.ErrInvalidIdentifier
	}
	return entry, nil
}

// bestMount returns the entry with the longest prefix containing path and
// the residual path inside it.
func (v *VirtualFileSystem) bestMount(path data.Path) (*mountEntry, data.Path, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.bestMountUnsafe(path)
}

func (v *VirtualFileSystem) bestMountUnsafe(path data.Path) (*mountEntry, data.Path, bool) {
	for candidate := path; ; {
		if identifier, exists := v.prefixes.Get(candidate.String()); exists {
			entry := v.entries[identifier]
			residual, _ := entry.residual(path)
			return entry, residual, true
		}

		parent, ok := candidate.Parent()
		if !ok {
			return nil, "", false
		}
		candidate = parent
	}
}

// try runs op against the most specific mount of path, then against the
// pipe and the device backend with the full path, moving on only while the
// previous attempt reported data.ErrNotFound.
func (v *VirtualFileSystem) try(path data.Path, op func(entry *mountEntry, residual data.Path) error) error {
	v.mu.RLock()
	candidates := make([]*mountEntry, 0, 3)
	residuals := make([]data.Path, 0, 3)
	if entry, residual, found := v.bestMountUnsafe(path); found {
		candidates = append(candidates, entry)
		residuals = append(residuals, residual)
	}
	candidates = append(candidates,
		v.entries[data.PipeFileSystemIdentifier],
		v.entries[data.DeviceFileSystemIdentifier],
	)
	residuals = append(residuals, path, path)
	v.mu.RUnlock()

	for i, entry := range candidates {
		err := op(entry, residuals[i])
		if !isNotFound(err) {
			return err
		}
	}
	return data.ErrNotFound
}
