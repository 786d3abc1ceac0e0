package s3

import (
	"context"
	"slices"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (ss *S3Storage) CreateNode(ctx context.Context, key string, metadata *data.Metadata) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, err := ss.readMetadataUnsafe(ctx, key); err == nil {
		return data.ErrAlreadyExists
	} else if err != data.ErrNotFound {
		return err
	}

	if metadata.Inode == 0 {
		inode, err := ss.nextInodeUnsafe(ctx)
		if err != nil {
			return err
		}
		metadata.Inode = inode
	}

	if err := ss.writeContentUnsafe(ctx, metadata.Inode, []byte{}); err != nil {
		return err
	}
	return ss.writeMetadataUnsafe(ctx, key, metadata)
}

func (ss *S3Storage) ReadNode(ctx context.Context, key string) (*storage.Node, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.readNodeUnsafe(ctx, key)
}

func (ss *S3Storage) UpdateNode(ctx context.Context, key string, metadata data.Metadata) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	stored, err := ss.readMetadataUnsafe(ctx, key)
	if err != nil {
		return err
	}

	metadata.Inode = stored.Inode
	return ss.writeMetadataUnsafe(ctx, key, &metadata)
}

func (ss *S3Storage) DeleteNode(ctx context.Context, key string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	metadata, err := ss.readMetadataUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if err := ss.client.RemoveObject(ctx, ss.config.Bucket, ss.metaObject(key), minio.RemoveObjectOptions{}); err != nil {
		return storage.Wrap(err, "remove node")
	}
	if err := ss.client.RemoveObject(ctx, ss.config.Bucket, ss.dataObject(metadata.Inode), minio.RemoveObjectOptions{}); err != nil {
		return storage.Wrap(err, "remove content")
	}
	return nil
}

func (ss *S3Storage) ListNodes(ctx context.Context, key string) ([]*storage.Node, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if _, err := ss.readMetadataUnsafe(ctx, key); err != nil {
		return nil, err
	}

	children := make([]string, 0)
	for object := range ss.client.ListObjects(ctx, ss.config.Bucket, minio.ListObjectsOptions{
		Prefix:    ss.metaPrefix(key),
		Recursive: false,
	}) {
		if object.Err != nil {
			return nil, storage.Wrap(object.Err, "list objects")
		}

		// children show up as common prefixes, the node itself as object
		child := ss.keyOf(object.Key)
		if storage.IsChild(key, child) {
			children = append(children, child)
		}
	}
	slices.Sort(children)

	nodes := make([]*storage.Node, 0, len(children))
	for _, child := range children {
		node, err := ss.readNodeUnsafe(ctx, child)
		if err == data.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (ss *S3Storage) MoveNode(ctx context.Context, source, destination string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, err := ss.readMetadataUnsafe(ctx, source); err != nil {
		return err
	}
	if _, err := ss.readMetadataUnsafe(ctx, destination); err == nil {
		return data.ErrAlreadyExists
	}
	if source == storage.RootKey || storage.IsDescendant(source, destination) {
		return data.ErrInvalidParameter
	}

	subtree, err := ss.subtreeUnsafe(ctx, source)
	if err != nil {
		return err
	}

	for _, key := range subtree {
		target := storage.Rebase(key, source, destination)

		_, err := ss.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: ss.config.Bucket, Object: ss.metaObject(target)},
			minio.CopySrcOptions{Bucket: ss.config.Bucket, Object: ss.metaObject(key)},
		)
		if err != nil {
			return storage.Wrap(err, "copy node")
		}
		if err := ss.client.RemoveObject(ctx, ss.config.Bucket, ss.metaObject(key), minio.RemoveObjectOptions{}); err != nil {
			return storage.Wrap(err, "remove node")
		}
	}
	return nil
}
