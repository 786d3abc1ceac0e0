// Package mount turns any storage.Storage into a mountable backend with a
// directory hierarchy, per-handle positions and timestamps.
package mount

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/xila/backend"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
	"github.com/mwantia/xila/storage"
)

var (
	_ backend.FileSystem = (*FileSystem)(nil)
	_ backend.Truncater  = (*FileSystem)(nil)
	_ backend.Usage      = (*FileSystem)(nil)
	_ backend.Closer     = (*FileSystem)(nil)
)

type handle struct {
	key   string
	inode data.Inode
	flags data.Flags

	position uint64
	accessed data.Time

	// directory handles iterate over a snapshot taken when opened
	directory bool
	entries   []data.Entry
}

type FileSystem struct {
	mu      sync.RWMutex
	log     *log.Logger
	options *Options

	storage   storage.Storage
	files     *backend.FileTable[*handle]
	mountTime time.Time
}

// New opens s and makes sure it holds a root directory.
func New(ctx context.Context, s storage.Storage, opts ...Option) (*FileSystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	fs := &FileSystem{
		log:       options.Logger,
		options:   options,
		storage:   s,
		files:     backend.NewFileTable[*handle](),
		mountTime: time.Now(),
	}

	if err := s.Open(ctx); err != nil {
		return nil, err
	}

	if err := fs.ensureRoot(ctx); err != nil {
		if closeErr := s.Close(ctx); closeErr != nil {
			fs.log.Warn("failed to close storage '%s': %v", s.Name(), closeErr)
		}
		return nil, err
	}

	fs.log.Debug("opened storage '%s'", s.Name())
	return fs, nil
}

func (fs *FileSystem) ensureRoot(ctx context.Context) error {
	_, err := fs.storage.ReadNode(ctx, storage.RootKey)
	if err != data.ErrNotFound {
		return err
	}

	metadata := data.NewMetadata(0, data.FileTypeDirectory, fs.options.Clock.Now(), fs.options.RootUser, fs.options.RootGroup)
	return fs.storage.CreateNode(ctx, storage.RootKey, &metadata)
}

// Storage returns the storage the file system was created with.
func (fs *FileSystem) Storage() storage.Storage {
	return fs.storage
}

func (fs *FileSystem) MountTime() time.Time {
	return fs.mountTime
}

func (fs *FileSystem) OpenCount() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.files.Len()
}

// Shutdown drops every handle and closes the storage.
func (fs *FileSystem) Shutdown(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if count := fs.files.Len(); count > 0 {
		fs.log.Warn("closing storage '%s' with %d open handles", fs.storage.Name(), count)
	}
	fs.files = backend.NewFileTable[*handle]()

	return fs.storage.Close(ctx)
}

func key(path data.Path) (string, error) {
	if !path.IsValid() || !path.IsAbsolute() {
		return "", data.ErrInvalidPath
	}

	segments := path.Segments()
	if len(segments) == 0 {
		return storage.RootKey, nil
	}

	for _, segment := range segments {
		if segment == "." || segment == ".." {
			return "", data.ErrInvalidPath
		}
	}
	return data.Separator + strings.Join(segments, data.Separator), nil
}

func (fs *FileSystem) getHandleUnsafe(file data.LocalFileIdentifier, directory bool) (*handle, error) {
	h, err := fs.files.Get(file)
	if err != nil {
		return nil, err
	}
	if h.directory != directory {
		return nil, data.ErrInvalidIdentifier
	}
	return h, nil
}

// parentUnsafe checks that the parent of k exists and is a directory.
func (fs *FileSystem) parentUnsafe(ctx context.Context, k string) error {
	parent, err := fs.storage.ReadNode(ctx, storage.ParentKey(k))
	if err != nil {
		return err
	}
	if parent.Metadata.Type != data.FileTypeDirectory {
		return data.ErrNotDirectory
	}
	return nil
}

func (fs *FileSystem) isBusyUnsafe(k string) bool {
	return fs.files.Any(func(h *handle) bool {
		return h.key == k || storage.IsDescendant(k, h.key)
	})
}
