package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (ps *PostgresStorage) ReadData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var chunk []byte
	err := ps.pool.QueryRow(ctx, `SELECT substring(content FROM $1 FOR $2) FROM xila_nodes WHERE inode = $3`,
		int64(offset)+1, int64(len(p)), int64(inode)).Scan(&chunk)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, data.ErrInvalidInode
	}
	if err != nil {
		return 0, storage.Wrap(err, "read content")
	}

	return copy(p, chunk), nil
}

// updateContentUnsafe applies change to the content of inode, locking its
// row for the duration of the transaction.
func (ps *PostgresStorage) updateContentUnsafe(ctx context.Context, inode data.Inode, change func([]byte) []byte) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return storage.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	var content []byte
	err = tx.QueryRow(ctx, `SELECT content FROM xila_nodes WHERE inode = $1 FOR UPDATE`, int64(inode)).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return data.ErrInvalidInode
	}
	if err != nil {
		return storage.Wrap(err, "read content")
	}

	if _, err := tx.Exec(ctx, `UPDATE xila_nodes SET content = $1 WHERE inode = $2`, change(content), int64(inode)); err != nil {
		return storage.Wrap(err, "write content")
	}
	return storage.Wrap(tx.Commit(ctx), "commit content")
}

func (ps *PostgresStorage) WriteData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	end := offset + uint64(len(p))
	if !ps.GetCapabilities().Fits(end) {
		return 0, data.ErrFileTooLarge
	}

	err := ps.updateContentUnsafe(ctx, inode, func(content []byte) []byte {
		if end > uint64(len(content)) {
			grown := make([]byte, end)
			copy(grown, content)
			content = grown
		}
		copy(content[offset:], p)
		return content
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ps *PostgresStorage) TruncateData(ctx context.Context, inode data.Inode, size uint64) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.GetCapabilities().Fits(size) {
		return data.ErrFileTooLarge
	}

	return ps.updateContentUnsafe(ctx, inode, func(content []byte) []byte {
		resized := make([]byte, size)
		copy(resized, content)
		return resized
	})
}
