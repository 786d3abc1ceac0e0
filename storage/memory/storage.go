// Package memory provides a volatile storage kept entirely in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
	"github.com/tidwall/btree"
)

var _ storage.Storage = (*MemoryStorage)(nil)

type MemoryStorage struct {
	mu sync.RWMutex

	// key -> node identifier
	keys     *btree.Map[string, string]
	metadata map[string]*data.Metadata

	// inode -> content identifier
	inodes map[data.Inode]string
	datas  map[string][]byte

	next    data.Inode
	maxSize uint64
}

func NewMemoryStorage() *MemoryStorage {
	return NewMemoryStorageWithLimit(10 << 20)
}

// NewMemoryStorageWithLimit bounds every content to maxSize bytes; zero
// means unbounded.
func NewMemoryStorageWithLimit(maxSize uint64) *MemoryStorage {
	return &MemoryStorage{
		keys:     btree.NewMap[string, string](0),
		metadata: make(map[string]*data.Metadata),
		inodes:   make(map[data.Inode]string),
		datas:    make(map[string][]byte),
		next:     data.MinimumInode,
		maxSize:  maxSize,
	}
}

// Name returns the identifier name defined for this storage
func (*MemoryStorage) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when mounting.
func (ms *MemoryStorage) Open(ctx context.Context) error {
	// No initialization needed - storage is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting.
func (ms *MemoryStorage) Close(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.keys.Clear()
	clear(ms.metadata)
	clear(ms.inodes)
	clear(ms.datas)

	return nil
}

// GetCapabilities returns what this storage supports.
func (ms *MemoryStorage) GetCapabilities() *storage.Capabilities {
	return &storage.Capabilities{
		Capabilities: []storage.Capability{
			storage.CapabilityMetadata,
			storage.CapabilityObjectStorage,
			storage.CapabilityTransactions,
		},
		MaxObjectSize: ms.maxSize,
	}
}

func (ms *MemoryStorage) CreateNode(ctx context.Context, key string, metadata *data.Metadata) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.keys.Get(key); exists {
		return data.ErrAlreadyExists
	}

	if metadata.Inode == 0 {
		for {
			if _, used := ms.inodes[ms.next]; !used {
				break
			}
			ms.next++
		}
		metadata.Inode = ms.next
		ms.next++
	}

	id := uuid.Must(uuid.NewV7()).String()
	stored := *metadata
	ms.keys.Set(key, id)
	ms.metadata[id] = &stored
	ms.inodes[metadata.Inode] = id
	ms.datas[id] = nil

	return nil
}

func (ms *MemoryStorage) readNodeUnsafe(key string) (*storage.Node, error) {
	id, exists := ms.keys.Get(key)
	if !exists {
		return nil, data.ErrNotFound
	}

	metadata, exists := ms.metadata[id]
	if !exists {
		return nil, data.ErrCorrupted
	}

	return &storage.Node{
		Key:      key,
		Metadata: *metadata,
		Size:     uint64(len(ms.datas[id])),
	}, nil
}

func (ms *MemoryStorage) ReadNode(ctx context.Context, key string) (*storage.Node, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.readNodeUnsafe(key)
}

func (ms *MemoryStorage) UpdateNode(ctx context.Context, key string, metadata data.Metadata) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id, exists := ms.keys.Get(key)
	if !exists {
		return data.ErrNotFound
	}

	stored := ms.metadata[id]
	metadata.Inode = stored.Inode
	*stored = metadata
	return nil
}

func (ms *MemoryStorage) DeleteNode(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id, exists := ms.keys.Delete(key)
	if !exists {
		return data.ErrNotFound
	}

	if metadata, ok := ms.metadata[id]; ok {
		delete(ms.inodes, metadata.Inode)
	}
	delete(ms.metadata, id)
	delete(ms.datas, id)

	return nil
}

func (ms *MemoryStorage) ListNodes(ctx context.Context, key string) ([]*storage.Node, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if _, exists := ms.keys.Get(key); !exists {
		return nil, data.ErrNotFound
	}

	children := storage.Children(ms.keys, key)
	nodes := make([]*storage.Node, 0, len(children))
	for _, child := range children {
		node, err := ms.readNodeUnsafe(child)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (ms *MemoryStorage) MoveNode(ctx context.Context, source, destination string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if err := storage.CheckMove(ms.keys, source, destination); err != nil {
		return err
	}

	for _, key := range storage.Subtree(ms.keys, source) {
		id, _ := ms.keys.Delete(key)
		ms.keys.Set(storage.Rebase(key, source, destination), id)
	}
	return nil
}

func (ms *MemoryStorage) contentUnsafe(inode data.Inode) (string, error) {
	id, exists := ms.inodes[inode]
	if !exists {
		return "", data.ErrInvalidInode
	}
	return id, nil
}

func (ms *MemoryStorage) ReadData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, err := ms.contentUnsafe(inode)
	if err != nil {
		return 0, err
	}

	content := ms.datas[id]
	if offset >= uint64(len(content)) {
		return 0, nil
	}
	return copy(p, content[offset:]), nil
}

func (ms *MemoryStorage) WriteData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id, err := ms.contentUnsafe(inode)
	if err != nil {
		return 0, err
	}

	end := offset + uint64(len(p))
	if ms.maxSize > 0 && end > ms.maxSize {
		return 0, data.ErrFileTooLarge
	}

	content := ms.datas[id]
	if end > uint64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}

	n := copy(content[offset:], p)
	ms.datas[id] = content
	return n, nil
}

func (ms *MemoryStorage) TruncateData(ctx context.Context, inode data.Inode, size uint64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id, err := ms.contentUnsafe(inode)
	if err != nil {
		return err
	}
	if ms.maxSize > 0 && size > ms.maxSize {
		return data.ErrFileTooLarge
	}

	content := ms.datas[id]
	if size <= uint64(len(content)) {
		ms.datas[id] = content[:size:size]
		return nil
	}

	grown := make([]byte, size)
	copy(grown, content)
	ms.datas[id] = grown
	return nil
}
