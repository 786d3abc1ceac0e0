package boot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mwantia/xila/config"
	"github.com/mwantia/xila/storage"
	"github.com/mwantia/xila/storage/consul"
	"github.com/mwantia/xila/storage/memory"
	"github.com/mwantia/xila/storage/postgres"
	"github.com/mwantia/xila/storage/s3"
	"github.com/mwantia/xila/storage/sqlite"
)

// newStorage creates the storage named by a mount entry. It is opened by the
// mount that takes it.
func newStorage(ctx context.Context, m config.MountConfig) (storage.Storage, error) {
	option := func(name, fallback string) string {
		if value, exists := m.Options[name]; exists && value != "" {
			return value
		}
		return fallback
	}

	switch m.Type {
	case config.MountMemory:
		limit, err := strconv.ParseUint(option("limit", "0"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: memory limit of '%s'", config.ErrInvalidConfig, m.Path)
		}
		return memory.NewMemoryStorageWithLimit(limit), nil

	case config.MountSQLite:
		return sqlite.NewSQLiteStorage(option("path", ":memory:"))

	case config.MountPostgres:
		dsn := option("dsn", "")
		if dsn == "" {
			return nil, fmt.Errorf("%w: postgres mount '%s' needs a dsn", config.ErrInvalidConfig, m.Path)
		}
		return postgres.NewPostgresStorage(ctx, dsn)

	case config.MountConsul:
		return consul.NewConsulStorage(&consul.ConsulStorageConfig{
			Address:    option("address", ""),
			Token:      option("token", ""),
			Datacenter: option("datacenter", ""),
			Namespace:  option("namespace", ""),
			Prefix:     option("prefix", ""),
		})

	case config.MountS3:
		useSSL, err := strconv.ParseBool(option("use_ssl", "true"))
		if err != nil {
			return nil, fmt.Errorf("%w: use_ssl of '%s'", config.ErrInvalidConfig, m.Path)
		}
		return s3.NewS3Storage(&s3.S3StorageConfig{
			Endpoint:  option("endpoint", ""),
			Bucket:    option("bucket", ""),
			AccessKey: option("access_key", ""),
			SecretKey: option("secret_key", ""),
			UseSSL:    useSSL,
			Prefix:    option("prefix", ""),
		})
	}

	return nil, fmt.Errorf("%w: unknown mount type '%s'", config.ErrInvalidConfig, m.Type)
}
