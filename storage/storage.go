// Package storage defines the persistence contract behind mountable file
// systems. A Storage keeps nodes (path keyed metadata) and their content
// (inode keyed bytes); the mount package turns one into a backend.
package storage

import (
	"context"

	"github.com/mwantia/xila/data"
)

// Storage is used as lifecycle entrypoint and object store of a mount.
//
// Keys are absolute residual paths, "/" being the root node. Storages do not
// check the hierarchy: the caller guarantees parents exist before creating
// children and that directories are empty before deleting them.
type Storage interface {
	// Name returns the identifier name defined for this storage
	Name() string
	// Open is part of the lifecycle behaviour and gets called when mounting.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and gets called when unmounting.
	Close(ctx context.Context) error

	// GetCapabilities returns what this storage supports.
	GetCapabilities() *Capabilities

	// CreateNode stores a new node. A zero metadata.Inode is replaced by a
	// freshly assigned inode. Existing keys fail with data.ErrAlreadyExists.
	CreateNode(ctx context.Context, key string, metadata *data.Metadata) error
	// ReadNode fails with data.ErrNotFound for unknown keys.
	ReadNode(ctx context.Context, key string) (*Node, error)
	UpdateNode(ctx context.Context, key string, metadata data.Metadata) error
	// DeleteNode removes the node and its content.
	DeleteNode(ctx context.Context, key string) error
	// ListNodes returns the direct children of key ordered by key.
	ListNodes(ctx context.Context, key string) ([]*Node, error)
	// MoveNode re-keys source and every node below it under destination.
	MoveNode(ctx context.Context, source, destination string) error

	ReadData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error)
	// WriteData writes at offset, zero-filling any gap and growing the
	// content as needed.
	WriteData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error)
	TruncateData(ctx context.Context, inode data.Inode, size uint64) error
}

// Node is a stored node with the size of its content.
type Node struct {
	Key      string        `json:"key"`
	Metadata data.Metadata `json:"metadata"`
	Size     uint64        `json:"size"`
}

// Name returns the last segment of the key.
func (n *Node) Name() string {
	return data.Path(n.Key).FileName()
}

// Entry converts the node into a directory entry.
func (n *Node) Entry() data.Entry {
	return data.Entry{
		Inode: n.Metadata.Inode,
		Name:  n.Name(),
		Type:  n.Metadata.Type,
		Size:  n.Size,
	}
}
