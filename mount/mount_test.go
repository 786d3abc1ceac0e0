package mount_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mwantia/xila/backend"
	"github.com/mwantia/xila/backend/backendtest"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/mount"
	"github.com/mwantia/xila/storage"
	"github.com/mwantia/xila/storage/memory"
	"github.com/mwantia/xila/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const task data.TaskIdentifier = 1

var clock = data.ClockFunc(func() data.Time { return 1_800_000_000 })

func GetTestStorageFactories() map[string]func(t *testing.T) storage.Storage {
	return map[string]func(t *testing.T) storage.Storage{
		"memory": func(t *testing.T) storage.Storage {
			return memory.NewMemoryStorage()
		},
		"sqlite": func(t *testing.T) storage.Storage {
			s, err := sqlite.NewSQLiteStorage(filepath.Join(t.TempDir(), "xila.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func newFileSystem(t *testing.T, s storage.Storage, opts ...mount.Option) *mount.FileSystem {
	t.Helper()

	ctx := context.Background()
	fs, err := mount.New(ctx, s, append([]mount.Option{mount.WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Shutdown(ctx) })
	return fs
}

func TestConformance(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(t *testing.T) {
			backendtest.Run(t, func(t *testing.T) backend.FileSystem {
				return newFileSystem(t, factory(t))
			})
		})
	}
}

func TestRootDirectory(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t, memory.NewMemoryStorage(), mount.WithRootOwner(7, 8))

	metadata, err := fs.GetMetadataFromPath(ctx, data.Root)
	require.NoError(t, err)
	assert.Equal(t, data.FileTypeDirectory, metadata.Type)
	assert.Equal(t, data.UserIdentifier(7), metadata.User)
	assert.Equal(t, data.GroupIdentifier(8), metadata.Group)
	assert.Equal(t, clock.Now(), metadata.CreationTime)

	assert.ErrorIs(t, fs.Remove(ctx, data.Root), data.ErrRessourceBusy)
}

func TestPersistentRoot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "xila.db")

	s, err := sqlite.NewSQLiteStorage(path)
	require.NoError(t, err)
	fs, err := mount.New(ctx, s)
	require.NoError(t, err)

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/kept"), 1, 0, 0))
	require.NoError(t, fs.Shutdown(ctx))

	s, err = sqlite.NewSQLiteStorage(path)
	require.NoError(t, err)
	fs = newFileSystem(t, s)

	metadata, err := fs.GetMetadataFromPath(ctx, data.MustPath("/kept"))
	require.NoError(t, err)
	assert.Equal(t, data.FileTypeDirectory, metadata.Type)
}

func TestRemoveBusy(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t, memory.NewMemoryStorage())

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/dir"), 1, 0, 0))
	local, err := fs.OpenDirectory(ctx, task, data.MustPath("/dir"))
	require.NoError(t, err)
	assert.Equal(t, 1, fs.OpenCount())

	assert.ErrorIs(t, fs.Remove(ctx, data.MustPath("/dir")), data.ErrRessourceBusy)

	require.NoError(t, fs.CloseDirectory(ctx, local))
	require.NoError(t, fs.Remove(ctx, data.MustPath("/dir")))
	assert.Zero(t, fs.OpenCount())
}

func TestRenameFollowsHandles(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t, memory.NewMemoryStorage())

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/old"), 1, 0, 0))
	flags := data.NewFlags(data.ModeReadWrite, data.OpenCreate, data.StatusNone)
	local, err := fs.Open(ctx, task, data.MustPath("/old/file"), flags, 1, 0, 0)
	require.NoError(t, err)

	require.NoError(t, fs.Rename(ctx, data.MustPath("/old"), data.MustPath("/new")))

	_, err = fs.Write(ctx, local, []byte("moved"), 2)
	require.NoError(t, err)

	statistics, err := fs.GetStatistics(ctx, local)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), statistics.Size)
	assert.Equal(t, data.Time(2), statistics.ModificationTime)

	metadata, err := fs.GetMetadataFromPath(ctx, data.MustPath("/new"))
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), metadata.ChangeTime)

	err = fs.Rename(ctx, data.MustPath("/new"), data.MustPath("/new/inner"))
	assert.ErrorIs(t, err, data.ErrInvalidParameter)
	err = fs.Rename(ctx, data.MustPath("/new"), data.MustPath("/missing/new"))
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestTruncate(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t, memory.NewMemoryStorage())

	flags := data.NewFlags(data.ModeReadWrite, data.OpenCreate, data.StatusNone)
	local, err := fs.Open(ctx, task, data.MustPath("/file"), flags, 1, 0, 0)
	require.NoError(t, err)

	_, err = fs.Write(ctx, local, []byte("abcdef"), 1)
	require.NoError(t, err)

	require.NoError(t, fs.Truncate(ctx, local, 3))
	require.NoError(t, fs.Truncate(ctx, local, 5))

	_, err = fs.SetPosition(ctx, local, data.Start(0))
	require.NoError(t, err)

	buffer := make([]byte, 16)
	n, err := fs.Read(ctx, local, buffer, 1)
	require.NoError(t, err)
	assert.Equal(t, "abc\x00\x00", string(buffer[:n]))
}

func TestCapabilityLimit(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t, memory.NewMemoryStorageWithLimit(4))

	flags := data.NewFlags(data.ModeWrite, data.OpenCreate, data.StatusNone)
	local, err := fs.Open(ctx, task, data.MustPath("/file"), flags, 1, 0, 0)
	require.NoError(t, err)

	_, err = fs.Write(ctx, local, []byte("12345"), 1)
	assert.ErrorIs(t, err, data.ErrFileTooLarge)
	assert.ErrorIs(t, fs.Truncate(ctx, local, 5), data.ErrFileTooLarge)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemoryStorage()

	writable := newFileSystem(t, s)
	flags := data.NewFlags(data.ModeWrite, data.OpenCreate, data.StatusNone)
	local, err := writable.Open(ctx, task, data.MustPath("/file"), flags, 1, 0, 0)
	require.NoError(t, err)
	_, err = writable.Write(ctx, local, []byte("data"), 1)
	require.NoError(t, err)
	require.NoError(t, writable.Close(ctx, local))

	fs, err := mount.New(ctx, s, mount.AsReadOnly())
	require.NoError(t, err)

	_, err = fs.Open(ctx, task, data.MustPath("/file"), flags, 1, 0, 0)
	assert.ErrorIs(t, err, data.ErrPermissionDenied)
	assert.ErrorIs(t, fs.CreateDirectory(ctx, data.MustPath("/dir"), 1, 0, 0), data.ErrPermissionDenied)
	assert.ErrorIs(t, fs.Remove(ctx, data.MustPath("/file")), data.ErrPermissionDenied)

	reader, err := fs.Open(ctx, task, data.MustPath("/file"), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone), 5, 0, 0)
	require.NoError(t, err)

	buffer := make([]byte, 4)
	n, err := fs.Read(ctx, reader, buffer, 5)
	require.NoError(t, err)
	assert.Equal(t, "data", string(buffer[:n]))
}

func TestInvalidPaths(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t, memory.NewMemoryStorage())

	_, err := fs.GetMetadataFromPath(ctx, data.Path("relative"))
	assert.ErrorIs(t, err, data.ErrInvalidPath)
	_, err = fs.GetMetadataFromPath(ctx, data.Path("/a/../b"))
	assert.ErrorIs(t, err, data.ErrInvalidPath)

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/trailing/"), 1, 0, 0))
	_, err = fs.GetMetadataFromPath(ctx, data.MustPath("//trailing"))
	assert.NoError(t, err)
}
