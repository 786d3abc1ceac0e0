package sqlite

import (
	"context"
	"database/sql"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

// This file contains internal "unsafe" methods that perform operations without acquiring locks.
// These methods MUST only be called when the caller already holds the appropriate lock.

func (ss *SQLiteStorage) readNodeUnsafe(ctx context.Context, key string) (*storage.Node, error) {
	if _, exists := ss.keys.Get(key); !exists {
		return nil, data.ErrNotFound
	}

	row := ss.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM xila_nodes WHERE key = ?`, key)
	return scanNode(row)
}

// readContentUnsafe loads the whole content of inode inside tx.
func readContentUnsafe(ctx context.Context, tx *sql.Tx, inode data.Inode) ([]byte, error) {
	var content []byte
	err := tx.QueryRowContext(ctx, `SELECT content FROM xila_nodes WHERE inode = ?`, int64(inode)).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, data.ErrInvalidInode
	}
	if err != nil {
		return nil, storage.Wrap(err, "read content")
	}
	return content, nil
}

// updateContentUnsafe applies change to the content of inode in a single
// transaction.
func (ss *SQLiteStorage) updateContentUnsafe(ctx context.Context, inode data.Inode, change func([]byte) ([]byte, error)) error {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	content, err := readContentUnsafe(ctx, tx, inode)
	if err != nil {
		return err
	}

	if content, err = change(content); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE xila_nodes SET content = ? WHERE inode = ?`, content, int64(inode)); err != nil {
		return storage.Wrap(err, "write content")
	}
	return storage.Wrap(tx.Commit(), "commit content")
}
