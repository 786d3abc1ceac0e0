package sqlite

import (
	"context"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (ss *SQLiteStorage) CreateNode(ctx context.Context, key string, metadata *data.Metadata) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, exists := ss.keys.Get(key); exists {
		return data.ErrAlreadyExists
	}

	var inode any
	if metadata.Inode != 0 {
		inode = int64(metadata.Inode)
	}

	var assigned int64
	err := ss.db.QueryRowContext(ctx, `
		INSERT INTO xila_nodes (inode, key, type, permissions, uid, gid, links, access_time, modification_time, change_time, creation_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING inode
	`, inode, key, int64(metadata.Type), int64(metadata.Permissions), int64(metadata.User), int64(metadata.Group),
		int64(metadata.Links), int64(metadata.AccessTime), int64(metadata.ModificationTime),
		int64(metadata.ChangeTime), int64(metadata.CreationTime)).Scan(&assigned)
	if err != nil {
		return storage.Wrap(err, "create node")
	}

	metadata.Inode = data.Inode(assigned)
	ss.keys.Set(key, metadata.Inode)
	return nil
}

func (ss *SQLiteStorage) ReadNode(ctx context.Context, key string) (*storage.Node, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.readNodeUnsafe(ctx, key)
}

func (ss *SQLiteStorage) UpdateNode(ctx context.Context, key string, metadata data.Metadata) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, exists := ss.keys.Get(key); !exists {
		return data.ErrNotFound
	}

	_, err := ss.db.ExecContext(ctx, `
		UPDATE xila_nodes
		SET type = ?, permissions = ?, uid = ?, gid = ?, links = ?, access_time = ?, modification_time = ?, change_time = ?, creation_time = ?
		WHERE key = ?
	`, int64(metadata.Type), int64(metadata.Permissions), int64(metadata.User), int64(metadata.Group),
		int64(metadata.Links), int64(metadata.AccessTime), int64(metadata.ModificationTime),
		int64(metadata.ChangeTime), int64(metadata.CreationTime), key)
	return storage.Wrap(err, "update node")
}

func (ss *SQLiteStorage) DeleteNode(ctx context.Context, key string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, exists := ss.keys.Get(key); !exists {
		return data.ErrNotFound
	}

	if _, err := ss.db.ExecContext(ctx, `DELETE FROM xila_nodes WHERE key = ?`, key); err != nil {
		return storage.Wrap(err, "delete node")
	}

	ss.keys.Delete(key)
	return nil
}

func (ss *SQLiteStorage) ListNodes(ctx context.Context, key string) ([]*storage.Node, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if _, exists := ss.keys.Get(key); !exists {
		return nil, data.ErrNotFound
	}

	children := storage.Children(ss.keys, key)
	nodes := make([]*storage.Node, 0, len(children))
	for _, child := range children {
		node, err := ss.readNodeUnsafe(ctx, child)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (ss *SQLiteStorage) MoveNode(ctx context.Context, source, destination string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := storage.CheckMove(ss.keys, source, destination); err != nil {
		return err
	}

	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	subtree := storage.Subtree(ss.keys, source)
	for _, key := range subtree {
		if _, err := tx.ExecContext(ctx, `UPDATE xila_nodes SET key = ? WHERE key = ?`,
			storage.Rebase(key, source, destination), key); err != nil {
			return storage.Wrap(err, "move node")
		}
	}
	if err := tx.Commit(); err != nil {
		return storage.Wrap(err, "commit move")
	}

	for _, key := range subtree {
		inode, _ := ss.keys.Delete(key)
		ss.keys.Set(storage.Rebase(key, source, destination), inode)
	}
	return nil
}
