package consul

import (
	"context"
	"errors"
	"slices"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

// Consul rejects transactions with more than 64 operations
const maxTxnOperations = 64

func (cs *ConsulStorage) CreateNode(ctx context.Context, key string, metadata *data.Metadata) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, err := cs.readMetadataUnsafe(ctx, key); err == nil {
		return data.ErrAlreadyExists
	} else if err != data.ErrNotFound {
		return err
	}

	if metadata.Inode == 0 {
		inode, err := cs.nextInodeUnsafe(ctx)
		if err != nil {
			return err
		}
		metadata.Inode = inode
	}

	if err := cs.writeContentUnsafe(ctx, metadata.Inode, []byte{}); err != nil {
		return err
	}
	return cs.writeMetadataUnsafe(ctx, key, metadata)
}

func (cs *ConsulStorage) ReadNode(ctx context.Context, key string) (*storage.Node, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return cs.readNodeUnsafe(ctx, key)
}

func (cs *ConsulStorage) UpdateNode(ctx context.Context, key string, metadata data.Metadata) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	stored, err := cs.readMetadataUnsafe(ctx, key)
	if err != nil {
		return err
	}

	metadata.Inode = stored.Inode
	return cs.writeMetadataUnsafe(ctx, key, &metadata)
}

func (cs *ConsulStorage) DeleteNode(ctx context.Context, key string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	metadata, err := cs.readMetadataUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if _, err := cs.kv.Delete(cs.nodeKey(key), writeOptions(ctx)); err != nil {
		return storage.Wrap(err, "delete node")
	}
	if _, err := cs.kv.Delete(cs.dataKey(metadata.Inode), writeOptions(ctx)); err != nil {
		return storage.Wrap(err, "delete content")
	}
	return nil
}

func (cs *ConsulStorage) ListNodes(ctx context.Context, key string) ([]*storage.Node, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if _, err := cs.readMetadataUnsafe(ctx, key); err != nil {
		return nil, err
	}

	// Get direct children only (separator "/" tells Consul to only return one level)
	consulKeys, _, err := cs.kv.Keys(cs.nodeKey(storage.ChildPrefix(key)), "/", queryOptions(ctx))
	if err != nil {
		return nil, storage.Wrap(err, "list keys")
	}

	children := make([]string, 0, len(consulKeys))
	for _, consulKey := range consulKeys {
		// a child with descendants shows up both as key and as "key/"
		child := cs.pathOf(consulKey)
		if storage.IsChild(key, child) && !slices.Contains(children, child) {
			children = append(children, child)
		}
	}
	slices.Sort(children)

	nodes := make([]*storage.Node, 0, len(children))
	for _, child := range children {
		node, err := cs.readNodeUnsafe(ctx, child)
		if err == data.ErrNotFound {
			// only an intermediate prefix, not a node
			continue
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (cs *ConsulStorage) MoveNode(ctx context.Context, source, destination string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, err := cs.readMetadataUnsafe(ctx, source); err != nil {
		return err
	}
	if _, err := cs.readMetadataUnsafe(ctx, destination); err == nil {
		return data.ErrAlreadyExists
	}
	if source == storage.RootKey || storage.IsDescendant(source, destination) {
		return data.ErrInvalidParameter
	}

	subtree, err := cs.subtreeUnsafe(ctx, source)
	if err != nil {
		return err
	}

	// each node takes a set and a delete operation
	for batch := range slices.Chunk(subtree, maxTxnOperations/2) {
		operations := make(api.KVTxnOps, 0, len(batch)*2)
		for _, key := range batch {
			pair, _, err := cs.kv.Get(cs.nodeKey(key), queryOptions(ctx))
			if err != nil {
				return storage.Wrap(err, "get node")
			}
			if pair == nil {
				continue
			}

			operations = append(operations,
				&api.KVTxnOp{Verb: api.KVSet, Key: cs.nodeKey(storage.Rebase(key, source, destination)), Value: pair.Value},
				&api.KVTxnOp{Verb: api.KVDelete, Key: cs.nodeKey(key)},
			)
		}

		ok, response, _, err := cs.kv.Txn(operations, queryOptions(ctx))
		if err != nil {
			return storage.Wrap(err, "move nodes")
		}
		if !ok {
			message := "transaction rolled back"
			if response != nil && len(response.Errors) > 0 {
				message = response.Errors[0].What
			}
			return storage.Wrap(errors.New(message), "move nodes")
		}
	}
	return nil
}
