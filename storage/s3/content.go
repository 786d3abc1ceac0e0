package s3

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (ss *S3Storage) ReadData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	size, err := ss.sizeUnsafe(ctx, inode)
	if err != nil {
		return 0, err
	}
	if offset >= size || len(p) == 0 {
		return 0, nil
	}

	length := min(uint64(len(p)), size-offset)
	options := minio.GetObjectOptions{}
	if err := options.SetRange(int64(offset), int64(offset+length-1)); err != nil {
		return 0, data.ErrInvalidParameter
	}

	object, err := ss.client.GetObject(ctx, ss.config.Bucket, ss.dataObject(inode), options)
	if err != nil {
		return 0, storage.Wrap(err, "get content")
	}
	defer object.Close()

	n, err := io.ReadFull(object, p[:length])
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, storage.Wrap(err, "read content")
	}
	return n, nil
}

func (ss *S3Storage) WriteData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	content, err := ss.readContentUnsafe(ctx, inode)
	if err != nil {
		return 0, err
	}

	end := offset + uint64(len(p))
	if end > uint64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	copy(content[offset:], p)

	if err := ss.writeContentUnsafe(ctx, inode, content); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ss *S3Storage) TruncateData(ctx context.Context, inode data.Inode, size uint64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	content, err := ss.readContentUnsafe(ctx, inode)
	if err != nil {
		return err
	}

	resized := make([]byte, size)
	copy(resized, content)
	return ss.writeContentUnsafe(ctx, inode, resized)
}
