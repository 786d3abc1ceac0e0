package consul

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

// This file contains internal "unsafe" methods that perform operations without acquiring locks.
// These methods MUST only be called when the caller already holds the appropriate lock.

func inodeString(inode data.Inode) string {
	return strconv.FormatUint(uint64(inode), 10)
}

func (cs *ConsulStorage) readMetadataUnsafe(ctx context.Context, key string) (*data.Metadata, error) {
	pair, _, err := cs.kv.Get(cs.nodeKey(key), queryOptions(ctx))
	if err != nil {
		return nil, storage.Wrap(err, "get node")
	}
	if pair == nil {
		return nil, data.ErrNotFound
	}

	var metadata data.Metadata
	if err := json.Unmarshal(pair.Value, &metadata); err != nil {
		return nil, data.ErrCorrupted
	}
	return &metadata, nil
}

func (cs *ConsulStorage) writeMetadataUnsafe(ctx context.Context, key string, metadata *data.Metadata) error {
	value, err := json.Marshal(metadata)
	if err != nil {
		return storage.Wrap(err, "encode node")
	}

	_, err = cs.kv.Put(&api.KVPair{Key: cs.nodeKey(key), Value: value}, writeOptions(ctx))
	return storage.Wrap(err, "put node")
}

func (cs *ConsulStorage) readNodeUnsafe(ctx context.Context, key string) (*storage.Node, error) {
	metadata, err := cs.readMetadataUnsafe(ctx, key)
	if err != nil {
		return nil, err
	}

	content, err := cs.readContentUnsafe(ctx, metadata.Inode)
	if err != nil {
		return nil, err
	}

	return &storage.Node{
		Key:      key,
		Metadata: *metadata,
		Size:     uint64(len(content)),
	}, nil
}

func (cs *ConsulStorage) readContentUnsafe(ctx context.Context, inode data.Inode) ([]byte, error) {
	pair, _, err := cs.kv.Get(cs.dataKey(inode), queryOptions(ctx))
	if err != nil {
		return nil, storage.Wrap(err, "get content")
	}
	if pair == nil {
		return nil, data.ErrInvalidInode
	}
	return pair.Value, nil
}

func (cs *ConsulStorage) writeContentUnsafe(ctx context.Context, inode data.Inode, content []byte) error {
	if !cs.GetCapabilities().Fits(uint64(len(content))) {
		return data.ErrFileTooLarge
	}

	_, err := cs.kv.Put(&api.KVPair{Key: cs.dataKey(inode), Value: content}, writeOptions(ctx))
	return storage.Wrap(err, "put content")
}

// nextInodeUnsafe increments the shared counter with check-and-set so that
// several agents mounting the same prefix never hand out the same inode.
func (cs *ConsulStorage) nextInodeUnsafe(ctx context.Context) (data.Inode, error) {
	for {
		pair, _, err := cs.kv.Get(cs.counterKey(), queryOptions(ctx))
		if err != nil {
			return 0, storage.Wrap(err, "get inode counter")
		}

		current := uint64(0)
		index := uint64(0)
		if pair != nil {
			index = pair.ModifyIndex
			if current, err = strconv.ParseUint(string(pair.Value), 10, 64); err != nil {
				return 0, data.ErrCorrupted
			}
		}

		next := current + 1
		ok, _, err := cs.kv.CAS(&api.KVPair{
			Key:         cs.counterKey(),
			Value:       []byte(strconv.FormatUint(next, 10)),
			ModifyIndex: index,
		}, writeOptions(ctx))
		if err != nil {
			return 0, storage.Wrap(err, "increment inode counter")
		}
		if ok {
			return data.Inode(next), nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
}

// subtreeUnsafe returns key and every key below it.
func (cs *ConsulStorage) subtreeUnsafe(ctx context.Context, key string) ([]string, error) {
	consulKeys, _, err := cs.kv.Keys(cs.nodeKey(key), "", queryOptions(ctx))
	if err != nil {
		return nil, storage.Wrap(err, "list keys")
	}

	keys := make([]string, 0, len(consulKeys))
	for _, consulKey := range consulKeys {
		candidate := cs.pathOf(consulKey)
		if candidate == key || storage.IsDescendant(key, candidate) {
			keys = append(keys, candidate)
		}
	}
	return keys, nil
}
