// Package s3 provides a storage on top of an S3 compatible object store.
package s3

import (
	"context"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

var _ storage.Storage = (*S3Storage)(nil)

// nodeObject is the object holding the metadata of a node below its
// directory-like prefix, so that listing a prefix non-recursively yields
// the children as common prefixes.
const nodeObject = ".node"

// S3Storage lays nodes out inside a bucket:
//
//	<prefix>meta<path>/.node  JSON encoded metadata
//	<prefix>data/<inode>      raw content
//	<prefix>inode             last assigned inode
//
// Moves copy every object of the subtree and are not atomic. The inode
// counter assumes a single writer per prefix.
type S3Storage struct {
	mu sync.RWMutex

	client *minio.Client
	config *S3StorageConfig

	next data.Inode
}

type S3StorageConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Prefix for all objects in the bucket (optional)
	Prefix string
}

func NewS3Storage(config *S3StorageConfig) (*S3Storage, error) {
	if config == nil || config.Bucket == "" {
		return nil, data.ErrInvalidParameter
	}
	if config.Prefix != "" && !strings.HasSuffix(config.Prefix, "/") {
		config.Prefix += "/"
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, storage.Wrap(err, "create s3 client")
	}

	return &S3Storage{
		client: client,
		config: config,
	}, nil
}

// Name returns the identifier name defined for this storage
func (*S3Storage) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when mounting.
func (ss *S3Storage) Open(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	exists, err := ss.client.BucketExists(ctx, ss.config.Bucket)
	if err != nil {
		return storage.Wrap(err, "check bucket")
	}
	if !exists {
		return data.ErrNotFound
	}

	next, err := ss.readCounterUnsafe(ctx)
	if err != nil {
		return err
	}
	ss.next = next
	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting.
func (ss *S3Storage) Close(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	return nil
}

// GetCapabilities returns what this storage supports.
func (ss *S3Storage) GetCapabilities() *storage.Capabilities {
	return &storage.Capabilities{
		Capabilities: []storage.Capability{
			storage.CapabilityMetadata,
			storage.CapabilityObjectStorage,
			storage.CapabilityPersistent,
		},
		// Single PUT limit
		MaxObjectSize: 5 << 30,
	}
}

// Purge removes every object below the configured prefix.
func (ss *S3Storage) Purge(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	objects := ss.client.ListObjects(ctx, ss.config.Bucket, minio.ListObjectsOptions{
		Prefix:    ss.config.Prefix,
		Recursive: true,
	})
	for result := range ss.client.RemoveObjects(ctx, ss.config.Bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return storage.Wrap(result.Err, "purge prefix")
		}
	}

	ss.next = 0
	return nil
}

func (ss *S3Storage) metaPrefix(key string) string {
	return ss.config.Prefix + "meta" + storage.ChildPrefix(key)
}

func (ss *S3Storage) metaObject(key string) string {
	return ss.metaPrefix(key) + nodeObject
}

func (ss *S3Storage) dataObject(inode data.Inode) string {
	return ss.config.Prefix + "data/" + inodeString(inode)
}

func (ss *S3Storage) counterObject() string {
	return ss.config.Prefix + "inode"
}

// keyOf converts a meta object name back into a storage key.
func (ss *S3Storage) keyOf(object string) string {
	key := strings.TrimPrefix(object, ss.config.Prefix+"meta")
	key = strings.TrimSuffix(key, nodeObject)
	if key != storage.RootKey {
		key = strings.TrimSuffix(key, "/")
	}
	return key
}
