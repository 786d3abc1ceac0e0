// Package pipe implements the built-in pipe backend: named pipes reachable
// through the namespace and unnamed pipe pairs handed straight to a task.
package pipe

import (
	"context"
	"strings"
	"sync"

	"github.com/mwantia/xila/backend"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
	"github.com/tidwall/btree"
)

var (
	_ backend.FileSystem = (*FileSystem)(nil)
	_ backend.Usage      = (*FileSystem)(nil)
)

type namedPipe struct {
	path     data.Path
	pipe     *Pipe
	metadata data.Metadata
}

type handle struct {
	pipe  *Pipe
	flags data.Flags
	// zero for unnamed pipes
	inode data.Inode
}

// FileSystem is the pipe backend. It is always mounted without a prefix, so
// named pipe paths are absolute.
type FileSystem struct {
	backend.NoDirectories

	mu      sync.RWMutex
	log     *log.Logger
	options *Options

	named map[data.Inode]*namedPipe
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
		named:   make(map[data.Inode]*namedPipe),
		paths:   btree.NewMap[string, data.Inode](0),
		files:   backend.NewFileTable[*handle](),
	}, nil
}

func (fs *FileSystem) checkSize(size int) (int, error) {
	if size == 0 {
		size = fs.options.DefaultSize
	}
	if size <= 0 || size > fs.options.MaximumSize {
		return 0, data.ErrInvalidParameter
	}
	return size, nil
}

// CreateNamedPipe registers a pipe of the given capacity at path.
func (fs *FileSystem) CreateNamedPipe(ctx context.Context, path data.Path, size int, time data.Time, user data.UserIdentifier, group data.GroupIdentifier) (data.Inode, error) {
	size, err := fs.checkSize(size)
	if err != nil {
		return 0, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.paths.Get(path.String()); exists {
		return 0, data.ErrAlreadyExists
	}

	inode, err := data.GetNewInode(fs.named)
	if err != nil {
		return 0, err
	}

	fs.named[inode] = &namedPipe{
		path:     path,
		pipe:     newPipe(size),
		metadata: data.NewMetadata(inode, data.FileTypePipe, time, user, group),
	}
	fs.paths.Set(path.String(), inode)

	fs.log.Debug("created named pipe '%s' with inode %d and %d bytes", path, inode, size)
	return inode, nil
}

// CreateUnnamedPipe creates a pipe and returns its read and write ends, both
// owned by task.
func (fs *FileSystem) CreateUnnamedPipe(ctx context.Context, task data.TaskIdentifier, size int, status data.Status) (data.LocalFileIdentifier, data.LocalFileIdentifier, error) {
	size, err := fs.checkSize(size)
	if err != nil {
		return data.LocalFileIdentifier{}, data.LocalFileIdentifier{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	pipe := newPipe(size)
	readFlags := data.NewFlags(data.ModeRead, data.OpenNone, status)
	writeFlags := data.NewFlags(data.ModeWrite, data.OpenNone, status)

	readEnd, err := fs.files.Insert(task, false, &handle{pipe: pipe, flags: readFlags})
	if err != nil {
		return data.LocalFileIdentifier{}, data.LocalFileIdentifier{}, err
	}

	writeEnd, err := fs.files.Insert(task, false, &handle{pipe: pipe, flags: writeFlags})
	if err != nil {
		_, _ = fs.files.Remove(readEnd)
		return data.LocalFileIdentifier{}, data.LocalFileIdentifier{}, err
	}

	pipe.attach(data.ModeRead)
	pipe.attach(data.ModeWrite)

	return readEnd, writeEnd, nil
}

func (fs *FileSystem) lookupUnsafe(path data.Path) (*namedPipe, error) {
	inode, exists := fs.paths.Get(path.String())
	if !exists {
		return nil, data.ErrNotFound
	}
	return fs.named[inode], nil
}

func (fs *FileSystem) Open(ctx context.Context, task data.TaskIdentifier, path data.Path, flags data.Flags, time data.Time, user data.UserIdentifier, group data.GroupIdentifier) (data.LocalFileIdentifier, error) {
	if !flags.Mode().IsValid() {
		return data.LocalFileIdentifier{}, data.ErrInvalidMode
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	named, err := fs.lookupUnsafe(path)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}
	if flags.Open().Exclusive() {
		return data.LocalFileIdentifier{}, data.ErrAlreadyExists
	}

	local, err := fs.files.Insert(task, false, &handle{
		pipe:  named.pipe,
		flags: flags,
		inode: named.metadata.Inode,
	})
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	named.pipe.attach(flags.Mode())
	named.metadata.Touch(time, false)
	return local, nil
}

func (fs *FileSystem) Close(ctx context.Context, file data.LocalFileIdentifier) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.files.Remove(file)
	if err != nil {
		return err
	}

	h.pipe.detach(h.flags.Mode())
	return nil
}

func (fs *FileSystem) CloseAll(ctx context.Context, task data.TaskIdentifier) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, h := range fs.files.RemoveAll(task) {
		h.pipe.detach(h.flags.Mode())
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
	local, err := fs.files.Insert(file.Task, false, &clone)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	h.pipe.attach(h.flags.Mode())
	return local, nil
}

func (fs *FileSystem) Transfert(ctx context.Context, newTask data.TaskIdentifier, file data.LocalFileIdentifier, newFile *data.FileIdentifier) (data.LocalFileIdentifier, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.files.Transfert(file, newTask, newFile)
}

// getHandle copies the handle out so blocking transfers run without the
// backend lock.
func (fs *FileSystem) getHandle(file data.LocalFileIdentifier) (*handle, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.files.Get(file)
}

func (fs *FileSystem) Read(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error) {
	h, err := fs.getHandle(file)
	if err != nil {
		return 0, err
	}
	if !h.flags.Mode().CanRead() {
		return 0, data.ErrInvalidMode
	}

	return h.pipe.Read(ctx, p, h.flags.Status().NonBlocking())
}

func (fs *FileSystem) Write(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error) {
	h, err := fs.getHandle(file)
	if err != nil {
		return 0, err
	}
	if !h.flags.Mode().CanWrite() {
		return 0, data.ErrInvalidMode
	}

	return h.pipe.Write(ctx, p, h.flags.Status().NonBlocking())
}

func (fs *FileSystem) SetPosition(ctx context.Context, file data.LocalFileIdentifier, position data.Position) (uint64, error) {
	if _, err := fs.getHandle(file); err != nil {
		return 0, err
	}
	return 0, data.ErrUnsupportedOperation
}

func (fs *FileSystem) Flush(ctx context.Context, file data.LocalFileIdentifier) error {
	_, err := fs.getHandle(file)
	return err
}

func (fs *FileSystem) GetStatistics(ctx context.Context, file data.LocalFileIdentifier) (data.Statistics, error) {
	metadata, err := fs.GetMetadata(ctx, file)
	if err != nil {
		return data.Statistics{}, err
	}

	h, err := fs.getHandle(file)
	if err != nil {
		return data.Statistics{}, err
	}
	return data.NewStatistics(0, metadata, uint64(h.pipe.Len())), nil
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

	if named, exists := fs.named[h.inode]; exists && h.inode != 0 {
		return named.metadata, nil
	}

	// unnamed pipes have no node; report a root owned pipe
	return data.NewMetadata(0, data.FileTypePipe, 0, data.RootUserIdentifier, data.RootGroupIdentifier), nil
}

func (fs *FileSystem) GetMetadataFromPath(ctx context.Context, path data.Path) (data.Metadata, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	named, err := fs.lookupUnsafe(path)
	if err != nil {
		return data.Metadata{}, err
	}
	return named.metadata, nil
}

func (fs *FileSystem) GetStatisticsFromPath(ctx context.Context, path data.Path) (data.Statistics, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	named, err := fs.lookupUnsafe(path)
	if err != nil {
		return data.Statistics{}, err
	}
	return data.NewStatistics(0, named.metadata, uint64(named.pipe.Len())), nil
}

func (fs *FileSystem) SetMetadataFromPath(ctx context.Context, path data.Path, metadata data.Metadata) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	named, err := fs.lookupUnsafe(path)
	if err != nil {
		return err
	}

	metadata.Inode = named.metadata.Inode
	metadata.Type = data.FileTypePipe
	named.metadata = metadata
	return nil
}

// Remove unlinks a named pipe. Handles already open keep the pipe alive.
func (fs *FileSystem) Remove(ctx context.Context, path data.Path) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inode, exists := fs.paths.Delete(path.String())
	if !exists {
		return data.ErrNotFound
	}

	delete(fs.named, inode)
	fs.log.Debug("removed named pipe '%s'", path)
	return nil
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
	fs.named[inode].path = destination
	return nil
}

// OpenCount reports the number of open pipe ends.
func (fs *FileSystem) OpenCount() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.files.Len()
}

// NamedPipes lists named pipe paths under prefix, in order.
func (fs *FileSystem) NamedPipes(prefix data.Path) []data.Path {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	paths := make([]data.Path, 0)
	fs.paths.Ascend(prefix.String(), func(key string, _ data.Inode) bool {
		if !strings.HasPrefix(key, prefix.String()) {
			return false
		}
		if path := data.Path(key); path.HasPrefix(prefix) {
			paths = append(paths, path)
		}
		return true
	})
	return paths
}
