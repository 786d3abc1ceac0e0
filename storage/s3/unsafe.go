package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

// This file contains internal "unsafe" methods that perform operations without acquiring locks.
// These methods MUST only be called when the caller already holds the appropriate lock.

func inodeString(inode data.Inode) string {
	return strconv.FormatUint(uint64(inode), 10)
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (ss *S3Storage) getObjectUnsafe(ctx context.Context, name string) ([]byte, error) {
	object, err := ss.client.GetObject(ctx, ss.config.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	return io.ReadAll(object)
}

func (ss *S3Storage) putObjectUnsafe(ctx context.Context, name string, content []byte, contentType string) error {
	_, err := ss.client.PutObject(ctx, ss.config.Bucket, name, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (ss *S3Storage) readCounterUnsafe(ctx context.Context) (data.Inode, error) {
	content, err := ss.getObjectUnsafe(ctx, ss.counterObject())
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Wrap(err, "get inode counter")
	}

	current, err := strconv.ParseUint(string(content), 10, 64)
	if err != nil {
		return 0, data.ErrCorrupted
	}
	return data.Inode(current), nil
}

func (ss *S3Storage) nextInodeUnsafe(ctx context.Context) (data.Inode, error) {
	next := ss.next + 1
	if err := ss.putObjectUnsafe(ctx, ss.counterObject(), []byte(inodeString(next)), "text/plain"); err != nil {
		return 0, storage.Wrap(err, "put inode counter")
	}

	ss.next = next
	return next, nil
}

func (ss *S3Storage) readMetadataUnsafe(ctx context.Context, key string) (*data.Metadata, error) {
	content, err := ss.getObjectUnsafe(ctx, ss.metaObject(key))
	if isNotFound(err) {
		return nil, data.ErrNotFound
	}
	if err != nil {
		return nil, storage.Wrap(err, "get node")
	}

	var metadata data.Metadata
	if err := json.Unmarshal(content, &metadata); err != nil {
		return nil, data.ErrCorrupted
	}
	return &metadata, nil
}

func (ss *S3Storage) writeMetadataUnsafe(ctx context.Context, key string, metadata *data.Metadata) error {
	content, err := json.Marshal(metadata)
	if err != nil {
		return storage.Wrap(err, "encode node")
	}
	return storage.Wrap(ss.putObjectUnsafe(ctx, ss.metaObject(key), content, "application/json"), "put node")
}

func (ss *S3Storage) sizeUnsafe(ctx context.Context, inode data.Inode) (uint64, error) {
	info, err := ss.client.StatObject(ctx, ss.config.Bucket, ss.dataObject(inode), minio.StatObjectOptions{})
	if isNotFound(err) {
		return 0, data.ErrInvalidInode
	}
	if err != nil {
		return 0, storage.Wrap(err, "stat content")
	}
	return uint64(info.Size), nil
}

func (ss *S3Storage) readNodeUnsafe(ctx context.Context, key string) (*storage.Node, error) {
	metadata, err := ss.readMetadataUnsafe(ctx, key)
	if err != nil {
		return nil, err
	}

	size, err := ss.sizeUnsafe(ctx, metadata.Inode)
	if err != nil {
		return nil, err
	}

	return &storage.Node{
		Key:      key,
		Metadata: *metadata,
		Size:     size,
	}, nil
}

func (ss *S3Storage) readContentUnsafe(ctx context.Context, inode data.Inode) ([]byte, error) {
	content, err := ss.getObjectUnsafe(ctx, ss.dataObject(inode))
	if isNotFound(err) {
		return nil, data.ErrInvalidInode
	}
	if err != nil {
		return nil, storage.Wrap(err, "get content")
	}
	return content, nil
}

func (ss *S3Storage) writeContentUnsafe(ctx context.Context, inode data.Inode, content []byte) error {
	if !ss.GetCapabilities().Fits(uint64(len(content))) {
		return data.ErrFileTooLarge
	}
	return storage.Wrap(ss.putObjectUnsafe(ctx, ss.dataObject(inode), content, "application/octet-stream"), "put content")
}

// subtreeUnsafe returns key and every key below it.
func (ss *S3Storage) subtreeUnsafe(ctx context.Context, key string) ([]string, error) {
	keys := make([]string, 0)
	for object := range ss.client.ListObjects(ctx, ss.config.Bucket, minio.ListObjectsOptions{
		Prefix:    ss.metaPrefix(key),
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, storage.Wrap(object.Err, "list objects")
		}
		keys = append(keys, ss.keyOf(object.Key))
	}
	return keys, nil
}
