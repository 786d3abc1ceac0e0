// Package sqlite provides a persistent storage in a single SQLite database
// file, using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
	"github.com/tidwall/btree"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (CGO_ENABLED=0 compatible)
)

var _ storage.Storage = (*SQLiteStorage)(nil)

// SQLiteStorage keeps every node in one table. An in-memory B-tree mirrors
// the key column so that lookups and listings never scan the table.
type SQLiteStorage struct {
	mu sync.RWMutex
	db *sql.DB

	keys *btree.Map[string, data.Inode]
}

// NewSQLiteStorage opens the database at path; ":memory:" keeps it in memory.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storage.Wrap(err, "open database")
	}

	// a private in-memory database only exists on its own connection
	db.SetMaxOpenConns(1)

	return &SQLiteStorage{
		db:   db,
		keys: btree.NewMap[string, data.Inode](0),
	}, nil
}

// Name returns the identifier name defined for this storage
func (*SQLiteStorage) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when mounting.
func (ss *SQLiteStorage) Open(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := ss.initSchemaUnsafe(ctx); err != nil {
		return err
	}
	return ss.loadKeysUnsafe(ctx)
}

// Close is part of the lifecycle behaviour and gets called when unmounting.
func (ss *SQLiteStorage) Close(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.keys.Clear()
	return storage.Wrap(ss.db.Close(), "close database")
}

// GetCapabilities returns what this storage supports.
func (ss *SQLiteStorage) GetCapabilities() *storage.Capabilities {
	return &storage.Capabilities{
		Capabilities: []storage.Capability{
			storage.CapabilityMetadata,
			storage.CapabilityObjectStorage,
			storage.CapabilityPersistent,
			storage.CapabilityTransactions,
		},
		// SQLite default SQLITE_MAX_LENGTH
		MaxObjectSize: 1_000_000_000,
	}
}

func (ss *SQLiteStorage) initSchemaUnsafe(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS xila_nodes (
			inode INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			type INTEGER NOT NULL,
			permissions INTEGER NOT NULL,
			uid INTEGER NOT NULL,
			gid INTEGER NOT NULL,
			links INTEGER NOT NULL,
			access_time INTEGER NOT NULL,
			modification_time INTEGER NOT NULL,
			change_time INTEGER NOT NULL,
			creation_time INTEGER NOT NULL,
			content BLOB NOT NULL DEFAULT x''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_xila_nodes_key ON xila_nodes(key)`,
	}

	for _, statement := range statements {
		if _, err := ss.db.ExecContext(ctx, statement); err != nil {
			return storage.Wrap(err, "initialize schema")
		}
	}
	return nil
}

func (ss *SQLiteStorage) loadKeysUnsafe(ctx context.Context) error {
	rows, err := ss.db.QueryContext(ctx, `SELECT key, inode FROM xila_nodes`)
	if err != nil {
		return storage.Wrap(err, "load keys")
	}
	defer rows.Close()

	ss.keys.Clear()
	for rows.Next() {
		var key string
		var inode int64
		if err := rows.Scan(&key, &inode); err != nil {
			return storage.Wrap(err, "load keys")
		}
		ss.keys.Set(key, data.Inode(inode))
	}
	return storage.Wrap(rows.Err(), "load keys")
}

type scanner interface {
	Scan(dest ...any) error
}

const nodeColumns = `key, inode, type, permissions, uid, gid, links, access_time, modification_time, change_time, creation_time, length(content)`

func scanNode(row scanner) (*storage.Node, error) {
	var node storage.Node
	var inode, links, access, modification, change, creation, size int64
	var fileType, permissions, uid, gid int64

	err := row.Scan(&node.Key, &inode, &fileType, &permissions, &uid, &gid, &links,
		&access, &modification, &change, &creation, &size)
	if err == sql.ErrNoRows {
		return nil, data.ErrNotFound
	}
	if err != nil {
		return nil, storage.Wrap(err, "scan node")
	}

	node.Metadata = data.Metadata{
		Inode:            data.Inode(inode),
		Type:             data.FileType(fileType),
		Permissions:      data.Permissions(permissions),
		User:             data.UserIdentifier(uid),
		Group:            data.GroupIdentifier(gid),
		Links:            uint64(links),
		AccessTime:       data.Time(access),
		ModificationTime: data.Time(modification),
		ChangeTime:       data.Time(change),
		CreationTime:     data.Time(creation),
	}
	node.Size = uint64(size)

	if !node.Metadata.Type.IsValid() {
		return nil, fmt.Errorf("%w: node '%s' has type %d", data.ErrCorrupted, node.Key, fileType)
	}
	return &node, nil
}
