// Package devices implements the built-in device backend. It maps device
// node paths to device.Device instances and routes handle I/O to them.
package devices

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/cenkalti/backoff"
	"github.com/mwantia/xila/backend"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/device"
	"github.com/mwantia/xila/log"
	"github.com/tidwall/btree"
)

var errNoData = errors.New("no data available")

var (
	_ backend.FileSystem = (*FileSystem)(nil)
	_ backend.Usage      = (*FileSystem)(nil)
)

type node struct {
	path     data.Path
	device   device.Device
	metadata data.Metadata
}

type handle struct {
	device device.Device
	flags  data.Flags
	inode  data.Inode
}

// Entry describes a mounted device node.
type Entry struct {
	Path  data.Path
	Inode data.Inode
	Type  data.FileType
}

// FileSystem is the device backend. Resolution is exact: a path must equal a
// registered device path.
type FileSystem struct {
	backend.NoDirectories

	mu      sync.RWMutex
	log     *log.Logger
	options *Options

	nodes map[data.Inode]*node
	paths *btree.Map[string, data.Inode]
	files *backend.FileTable[*handle]
}

func New(opts ...Option) (*FileSystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &FileSystem{
		log:     options.Logger,
		options: options,
		nodes:   make(map[data.Inode]*node),
		paths:   btree.NewMap[string, data.Inode](0),
		files:   backend.NewFileTable[*handle](),
	}, nil
}

// MountDevice registers dev at path and returns the inode of its node.
func (fs *FileSystem) MountDevice(ctx context.Context, path data.Path, dev device.Device) (data.Inode, error) {
	if !path.IsValid() || !path.IsAbsolute() {
		return 0, data.ErrInvalidPath
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.paths.Get(path.String()); exists {
		return 0, data.ErrAlreadyExists
	}

	inode, err := data.GetNewInode(fs.nodes)
	if err != nil {
		return 0, err
	}

	fileType := device.FileType(dev)
	fs.nodes[inode] = &node{
		path:     path,
		device:   dev,
		metadata: data.NewMetadata(inode, fileType, fs.options.Clock.Now(), data.RootUserIdentifier, data.RootGroupIdentifier),
	}
	fs.paths.Set(path.String(), inode)

	fs.log.Debug("mounted %s device at '%s' with inode %d", fileType, path, inode)
	return inode, nil
}

// MountStaticDevice is MountDevice for device names known when the program
// is written. It panics if path is not a valid path.
func (fs *FileSystem) MountStaticDevice(ctx context.Context, path string, dev device.Device) (data.Inode, error) {
	return fs.MountDevice(ctx, data.MustPath(path), dev)
}

// UnmountDevice removes the node at path. It fails while handles on the
// device are open.
func (fs *FileSystem) UnmountDevice(ctx context.Context, path data.Path) (device.Device, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inode, exists := fs.paths.Get(path.String())
	if !exists {
		return nil, data.ErrNotFound
	}

	if fs.files.Any(func(h *handle) bool { return h.inode == inode }) {
		return nil, data.ErrRessourceBusy
	}

	n := fs.nodes[inode]
	delete(fs.nodes, inode)
	fs.paths.Delete(path.String())

	fs.log.Debug("unmounted device at '%s'", path)
	return n.device, nil
}

// GetDevicesFromPath lists every device whose path lies under prefix.
func (fs *FileSystem) GetDevicesFromPath(prefix data.Path) []Entry {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries := make([]Entry, 0)
	fs.paths.Ascend(prefix.String(), func(key string, inode data.Inode) bool {
		if !strings.HasPrefix(key, prefix.String()) {
			return false
		}

		path := data.Path(key)
		if path.HasPrefix(prefix) {
			entries = append(entries, Entry{
				Path:  path,
				Inode: inode,
				Type:  fs.nodes[inode].metadata.Type,
			})
		}
		return true
	})
	return entries
}

func (fs *FileSystem) lookupUnsafe(path data.Path) (*node, error) {
	inode, exists := fs.paths.Get(path.String())
	if !exists {
		return nil, data.ErrNotFound
	}
	return fs.nodes[inode], nil
}

func (fs *FileSystem) Open(ctx context.Context, task data.TaskIdentifier, path data.Path, flags data.Flags, time data.Time, user data.UserIdentifier, group data.GroupIdentifier) (data.LocalFileIdentifier, error) {
	if !flags.Mode().IsValid() {
		return data.LocalFileIdentifier{}, data.ErrInvalidMode
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.lookupUnsafe(path)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}
	if flags.Open().Exclusive() {
		return data.LocalFileIdentifier{}, data.ErrAlreadyExists
	}

	local, err := fs.files.Insert(task, false, &handle{
		device: n.device,
		flags:  flags,
		inode:  n.metadata.Inode,
	})
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	n.metadata.Touch(time, false)
	return local, nil
}

func (fs *FileSystem) Close(ctx context.Context, file data.LocalFileIdentifier) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.files.Remove(file)
	return err
}

func (fs *FileSystem) CloseAll(ctx context.Context, task data.TaskIdentifier) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.files.RemoveAll(task)
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
	return fs.files.Insert(file.Task, false, &clone)
}

func (fs *FileSystem) Transfert(ctx context.Context, newTask data.TaskIdentifier, file data.LocalFileIdentifier, newFile *data.FileIdentifier) (data.LocalFileIdentifier, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.files.Transfert(file, newTask, newFile)
}

func (fs *FileSystem) getHandle(file data.LocalFileIdentifier) (*handle, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.files.Get(file)
}

// Read delegates to the device. A blocking read on a terminal device retries
// until at least one byte arrives or its input ends; other devices report 0
// at their end.
func (fs *FileSystem) Read(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error) {
	h, err := fs.getHandle(file)
	if err != nil {
		return 0, err
	}
	if !h.flags.Mode().CanRead() {
		return 0, data.ErrInvalidMode
	}

	n, err := h.device.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	if err != nil || n > 0 || len(p) == 0 {
		return n, err
	}
	if h.flags.Status().NonBlocking() || !h.device.IsTerminal() {
		return 0, nil
	}

	operation := func() error {
		n, err = h.device.Read(p)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		if n == 0 {
			return errNoData
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(fs.options.PollInterval), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return n, err
	}
	return n, nil
}

func (fs *FileSystem) Write(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error) {
	h, err := fs.getHandle(file)
	if err != nil {
		return 0, err
	}
	if !h.flags.Mode().CanWrite() && !h.flags.Status().Append() {
		return 0, data.ErrInvalidMode
	}

	if h.flags.Status().Append() {
		if _, err := h.device.SetPosition(data.End(0)); err != nil {
			return 0, err
		}
	}
	return h.device.Write(p)
}

func (fs *FileSystem) SetPosition(ctx context.Context, file data.LocalFileIdentifier, position data.Position) (uint64, error) {
	h, err := fs.getHandle(file)
	if err != nil {
		return 0, err
	}
	return h.device.SetPosition(position)
}

func (fs *FileSystem) Flush(ctx context.Context, file data.LocalFileIdentifier) error {
	h, err := fs.getHandle(file)
	if err != nil {
		return err
	}
	return h.device.Flush()
}

func (fs *FileSystem) GetStatistics(ctx context.Context, file data.LocalFileIdentifier) (data.Statistics, error) {
	h, err := fs.getHandle(file)
	if err != nil {
		return data.Statistics{}, err
	}

	metadata, err := fs.GetMetadata(ctx, file)
	if err != nil {
		return data.Statistics{}, err
	}

	size, err := h.device.Size()
	if err != nil {
		return data.Statistics{}, err
	}
	return data.NewStatistics(0, metadata, size), nil
}

func (fs *FileSystem) GetMode(ctx context.Context, file data.LocalFileIdentifier) (data.Mode, error) {
	h, err := fs.getHandle(file)
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

	n, exists := fs.nodes[h.inode]
	if !exists {
		return data.Metadata{}, data.ErrInvalidInode
	}
	return n.metadata, nil
}

func (fs *FileSystem) GetMetadataFromPath(ctx context.Context, path data.Path) (data.Metadata, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, err := fs.lookupUnsafe(path)
	if err != nil {
		return data.Metadata{}, err
	}
	return n.metadata, nil
}

func (fs *FileSystem) GetStatisticsFromPath(ctx context.Context, path data.Path) (data.Statistics, error) {
	fs.mu.RLock()
	n, err := fs.lookupUnsafe(path)
	if err != nil {
		fs.mu.RUnlock()
		return data.Statistics{}, err
	}
	metadata, dev := n.metadata, n.device
	fs.mu.RUnlock()

	size, err := dev.Size()
	if err != nil {
		return data.Statistics{}, err
	}
	return data.NewStatistics(0, metadata, size), nil
}

func (fs *FileSystem) SetMetadataFromPath(ctx context.Context, path data.Path, metadata data.Metadata) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.lookupUnsafe(path)
	if err != nil {
		return err
	}

	metadata.Inode = n.metadata.Inode
	metadata.Type = n.metadata.Type
	n.metadata = metadata
	return nil
}

// Remove unmounts the device at path.
func (fs *FileSystem) Remove(ctx context.Context, path data.Path) error {
	_, err := fs.UnmountDevice(ctx, path)
	return err
}

func (fs *FileSystem) Rename(ctx context.Context, source, destination data.Path) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inode, exists := fs.paths.Get(source.String())
	if !exists {
		return data.ErrNotFound
	}
	if _, taken := fs.paths.Get(destination.String()); taken {
		return data.ErrAlreadyExists
	}

	fs.paths.Delete(source.String())
	fs.paths.Set(destination.String(), inode)
	fs.nodes[inode].path = destination
	fs.nodes[inode].metadata.ChangeTime = fs.options.Clock.Now()
	return nil
}

// OpenCount reports the number of open device handles.
func (fs *FileSystem) OpenCount() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.files.Len()
}
