package sqlite

import (
	"context"
	"database/sql"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (ss *SQLiteStorage) ReadData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var chunk []byte
	err := ss.db.QueryRowContext(ctx, `SELECT substr(content, ?, ?) FROM xila_nodes WHERE inode = ?`,
		int64(offset)+1, len(p), int64(inode)).Scan(&chunk)
	if err == sql.ErrNoRows {
		return 0, data.ErrInvalidInode
	}
	if err != nil {
		return 0, storage.Wrap(err, "read content")
	}

	return copy(p, chunk), nil
}

func (ss *SQLiteStorage) WriteData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	end := offset + uint64(len(p))
	if !ss.GetCapabilities().Fits(end) {
		return 0, data.ErrFileTooLarge
	}

	err := ss.updateContentUnsafe(ctx, inode, func(content []byte) ([]byte, error) {
		if end > uint64(len(content)) {
			grown := make([]byte, end)
			copy(grown, content)
			content = grown
		}
		copy(content[offset:], p)
		return content, nil
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ss *SQLiteStorage) TruncateData(ctx context.Context, inode data.Inode, size uint64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.GetCapabilities().Fits(size) {
		return data.ErrFileTooLarge
	}

	return ss.updateContentUnsafe(ctx, inode, func(content []byte) ([]byte, error) {
		resized := make([]byte, size)
		copy(resized, content)
		return resized, nil
	})
}
