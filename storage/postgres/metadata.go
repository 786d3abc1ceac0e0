package postgres

import (
	"context"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

func (ps *PostgresStorage) CreateNode(ctx context.Context, key string, metadata *data.Metadata) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.keys.Get(key); exists {
		return data.ErrAlreadyExists
	}

	args := []any{key, int16(metadata.Type), int32(metadata.Permissions), int32(metadata.User), int32(metadata.Group),
		int64(metadata.Links), int64(metadata.AccessTime), int64(metadata.ModificationTime),
		int64(metadata.ChangeTime), int64(metadata.CreationTime)}

	query := `
		INSERT INTO xila_nodes (key, type, permissions, uid, gid, links, access_time, modification_time, change_time, creation_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING inode`
	if metadata.Inode != 0 {
		query = `
		INSERT INTO xila_nodes (key, type, permissions, uid, gid, links, access_time, modification_time, change_time, creation_time, inode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING inode`
		args = append(args, int64(metadata.Inode))
	}

	var assigned int64
	if err := ps.pool.QueryRow(ctx, query, args...).Scan(&assigned); err != nil {
		return storage.Wrap(err, "create node")
	}

	metadata.Inode = data.Inode(assigned)
	ps.keys.Set(key, metadata.Inode)
	return nil
}

func (ps *PostgresStorage) readNodeUnsafe(ctx context.Context, key string) (*storage.Node, error) {
	if _, exists := ps.keys.Get(key); !exists {
		return nil, data.ErrNotFound
	}
	return scanNode(ps.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM xila_nodes WHERE key = $1`, key))
}

func (ps *PostgresStorage) ReadNode(ctx context.Context, key string) (*storage.Node, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return ps.readNodeUnsafe(ctx, key)
}

func (ps *PostgresStorage) UpdateNode(ctx context.Context, key string, metadata data.Metadata) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.keys.Get(key); !exists {
		return data.ErrNotFound
	}

	_, err := ps.pool.Exec(ctx, `
		UPDATE xila_nodes
		SET type = $1, permissions = $2, uid = $3, gid = $4, links = $5, access_time = $6, modification_time = $7, change_time = $8, creation_time = $9
		WHERE key = $10
	`, int16(metadata.Type), int32(metadata.Permissions), int32(metadata.User), int32(metadata.Group),
		int64(metadata.Links), int64(metadata.AccessTime), int64(metadata.ModificationTime),
		int64(metadata.ChangeTime), int64(metadata.CreationTime), key)
	return storage.Wrap(err, "update node")
}

func (ps *PostgresStorage) DeleteNode(ctx context.Context, key string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.keys.Get(key); !exists {
		return data.ErrNotFound
	}

	if _, err := ps.pool.Exec(ctx, `DELETE FROM xila_nodes WHERE key = $1`, key); err != nil {
		return storage.Wrap(err, "delete node")
	}

	ps.keys.Delete(key)
	return nil
}

func (ps *PostgresStorage) ListNodes(ctx context.Context, key string) ([]*storage.Node, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if _, exists := ps.keys.Get(key); !exists {
		return nil, data.ErrNotFound
	}

	children := storage.Children(ps.keys, key)
	nodes := make([]*storage.Node, 0, len(children))
	for _, child := range children {
		node, err := ps.readNodeUnsafe(ctx, child)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (ps *PostgresStorage) MoveNode(ctx context.Context, source, destination string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := storage.CheckMove(ps.keys, source, destination); err != nil {
		return err
	}

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return storage.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	subtree := storage.Subtree(ps.keys, source)
	for _, key := range subtree {
		if _, err := tx.Exec(ctx, `UPDATE xila_nodes SET key = $1 WHERE key = $2`,
			storage.Rebase(key, source, destination), key); err != nil {
			return storage.Wrap(err, "move node")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.Wrap(err, "commit move")
	}

	for _, key := range subtree {
		inode, _ := ps.keys.Delete(key)
		ps.keys.Set(storage.Rebase(key, source, destination), inode)
	}
	return nil
}
