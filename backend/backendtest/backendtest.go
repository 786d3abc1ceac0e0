// Package backendtest holds the behaviour every hierarchical backend.FileSystem
// must show. Backends without directories (pipes, devices) have their own
// tests.
package backendtest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mwantia/xila/backend"
	"github.com/mwantia/xila/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty backend with a root directory. Cleanup is
// registered on t.
type Factory func(t *testing.T) backend.FileSystem

const (
	taskA data.TaskIdentifier = 1
	taskB data.TaskIdentifier = 2

	user  data.UserIdentifier  = 1000
	group data.GroupIdentifier = 1000
	now   data.Time            = 1_700_000_000
)

var (
	createReadWrite = data.NewFlags(data.ModeReadWrite, data.OpenCreate, data.StatusNone)
	readOnly        = data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone)
)

func Run(t *testing.T, factory Factory) {
	tests := map[string]func(*testing.T, backend.FileSystem){
		"RoundTrip":          testRoundTrip,
		"SlotReuse":          testSlotReuse,
		"CreateDirectory":    testCreateDirectory,
		"RemoveDirectory":    testRemoveDirectory,
		"RenamePreserves":    testRenamePreserves,
		"CloseAll":           testCloseAll,
		"ReadDirectory":      testReadDirectory,
		"OpenFlags":          testOpenFlags,
		"Position":           testPosition,
		"Transfert":          testTransfert,
		"Duplicate":          testDuplicate,
		"AccessModeEnforced": testAccessModeEnforced,
		"StatisticsFromPath": testStatisticsFromPath,
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func open(t *testing.T, fs backend.FileSystem, task data.TaskIdentifier, path string, flags data.Flags) data.LocalFileIdentifier {
	t.Helper()

	local, err := fs.Open(context.Background(), task, data.MustPath(path), flags, now, user, group)
	require.NoError(t, err)
	return local
}

func write(t *testing.T, fs backend.FileSystem, local data.LocalFileIdentifier, content string) {
	t.Helper()

	n, err := fs.Write(context.Background(), local, []byte(content), now)
	require.NoError(t, err)
	require.Equal(t, len(content), n)
}

func readAll(t *testing.T, fs backend.FileSystem, local data.LocalFileIdentifier) string {
	t.Helper()

	var content []byte
	buffer := make([]byte, 3)
	for {
		n, err := fs.Read(context.Background(), local, buffer, now)
		require.NoError(t, err)
		if n == 0 {
			return string(content)
		}
		content = append(content, buffer[:n]...)
	}
}

func testRoundTrip(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	local := open(t, fs, taskA, "/file", createReadWrite)
	write(t, fs, local, "hello world")
	require.NoError(t, fs.Close(ctx, local))

	local = open(t, fs, taskA, "/file", readOnly)
	assert.Equal(t, "hello world", readAll(t, fs, local))
	require.NoError(t, fs.Close(ctx, local))

	assert.ErrorIs(t, fs.Close(ctx, local), data.ErrInvalidIdentifier)
}

func testSlotReuse(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	first := open(t, fs, taskA, "/a", createReadWrite)
	second := open(t, fs, taskA, "/b", createReadWrite)
	third := open(t, fs, taskA, "/c", createReadWrite)

	assert.Equal(t, data.MinimumFileIdentifier, first.File)
	assert.Equal(t, data.MinimumFileIdentifier+1, second.File)
	assert.Equal(t, data.MinimumFileIdentifier+2, third.File)

	require.NoError(t, fs.Close(ctx, second))
	reused := open(t, fs, taskA, "/b", readOnly)
	assert.Equal(t, second, reused)

	// slots are per task
	other := open(t, fs, taskB, "/a", readOnly)
	assert.Equal(t, data.MinimumFileIdentifier, other.File)

	directory, err := fs.OpenDirectory(ctx, taskA, data.Root)
	require.NoError(t, err)
	assert.Equal(t, data.DirectoryThreshold, directory.File)
	assert.True(t, directory.File.IsDirectory())
	require.NoError(t, fs.CloseDirectory(ctx, directory))

	for _, local := range []data.LocalFileIdentifier{first, reused, third, other} {
		require.NoError(t, fs.Close(ctx, local))
	}
}

func testCreateDirectory(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/x"), now, user, group))
	err := fs.CreateDirectory(ctx, data.MustPath("/x"), now, user, group)
	assert.ErrorIs(t, err, data.ErrDirectoryAlreadyExists)

	err = fs.CreateDirectory(ctx, data.MustPath("/missing/child"), now, user, group)
	assert.ErrorIs(t, err, data.ErrNotFound)

	local := open(t, fs, taskA, "/file", createReadWrite)
	require.NoError(t, fs.Close(ctx, local))

	err = fs.CreateDirectory(ctx, data.MustPath("/file"), now, user, group)
	assert.ErrorIs(t, err, data.ErrAlreadyExists)
	err = fs.CreateDirectory(ctx, data.MustPath("/file/child"), now, user, group)
	assert.ErrorIs(t, err, data.ErrNotDirectory)

	metadata, err := fs.GetMetadataFromPath(ctx, data.MustPath("/x"))
	require.NoError(t, err)
	assert.Equal(t, data.FileTypeDirectory, metadata.Type)
	assert.Equal(t, user, metadata.User)
	assert.Equal(t, group, metadata.Group)
	assert.Equal(t, now, metadata.CreationTime)
}

func testRemoveDirectory(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/dir"), now, user, group))
	local := open(t, fs, taskA, "/dir/file", createReadWrite)
	require.NoError(t, fs.Close(ctx, local))

	assert.ErrorIs(t, fs.Remove(ctx, data.MustPath("/dir")), data.ErrDirectoryNotEmpty)
	assert.ErrorIs(t, fs.Remove(ctx, data.MustPath("/missing")), data.ErrNotFound)

	require.NoError(t, fs.Remove(ctx, data.MustPath("/dir/file")))
	require.NoError(t, fs.Remove(ctx, data.MustPath("/dir")))

	_, err := fs.GetMetadataFromPath(ctx, data.MustPath("/dir"))
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func testRenamePreserves(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/a"), now, user, group))
	local := open(t, fs, taskA, "/a/file", createReadWrite)
	write(t, fs, local, "content")
	require.NoError(t, fs.Close(ctx, local))

	before, err := fs.GetMetadataFromPath(ctx, data.MustPath("/a"))
	require.NoError(t, err)

	require.NoError(t, fs.Rename(ctx, data.MustPath("/a"), data.MustPath("/b")))

	_, err = fs.GetMetadataFromPath(ctx, data.MustPath("/a"))
	assert.ErrorIs(t, err, data.ErrNotFound)

	after, err := fs.GetMetadataFromPath(ctx, data.MustPath("/b"))
	require.NoError(t, err)

	if diff := cmp.Diff(before, after, cmpopts.IgnoreFields(data.Metadata{}, "ChangeTime")); diff != "" {
		t.Errorf("metadata changed by rename (-before +after):\n%s", diff)
	}

	local = open(t, fs, taskA, "/b/file", readOnly)
	assert.Equal(t, "content", readAll(t, fs, local))
	require.NoError(t, fs.Close(ctx, local))
}

func testCloseAll(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	first := open(t, fs, taskA, "/one", createReadWrite)
	second := open(t, fs, taskA, "/two", createReadWrite)
	directory, err := fs.OpenDirectory(ctx, taskA, data.Root)
	require.NoError(t, err)
	kept := open(t, fs, taskB, "/one", createReadWrite)

	require.NoError(t, fs.CloseAll(ctx, taskA))

	_, err = fs.Read(ctx, first, make([]byte, 1), now)
	assert.ErrorIs(t, err, data.ErrInvalidIdentifier)
	_, err = fs.Read(ctx, second, make([]byte, 1), now)
	assert.ErrorIs(t, err, data.ErrInvalidIdentifier)
	_, err = fs.ReadDirectory(ctx, directory)
	assert.ErrorIs(t, err, data.ErrInvalidIdentifier)

	write(t, fs, kept, "still open")
	require.NoError(t, fs.Close(ctx, kept))
}

func testReadDirectory(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/dir"), now, user, group))
	for _, name := range []string{"/dir/c", "/dir/a", "/dir/b"} {
		local := open(t, fs, taskA, name, createReadWrite)
		require.NoError(t, fs.Close(ctx, local))
	}
	require.NoError(t, fs.CreateDirectory(ctx, data.MustPath("/dir/sub"), now, user, group))

	directory, err := fs.OpenDirectory(ctx, taskA, data.MustPath("/dir"))
	require.NoError(t, err)

	names := make([]string, 0)
	for {
		entry, err := fs.ReadDirectory(ctx, directory)
		require.NoError(t, err)
		if entry == nil {
			break
		}
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "sub"}, names)

	position, err := fs.GetPositionDirectory(ctx, directory)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), position)

	require.NoError(t, fs.SetPositionDirectory(ctx, directory, 3))
	entry, err := fs.ReadDirectory(ctx, directory)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "sub", entry.Name)
	assert.Equal(t, data.FileTypeDirectory, entry.Type)

	require.NoError(t, fs.RewindDirectory(ctx, directory))
	entry, err = fs.ReadDirectory(ctx, directory)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "a", entry.Name)

	require.NoError(t, fs.CloseDirectory(ctx, directory))

	_, err = fs.OpenDirectory(ctx, taskA, data.MustPath("/dir/a"))
	assert.ErrorIs(t, err, data.ErrNotDirectory)
}

func testOpenFlags(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	_, err := fs.Open(ctx, taskA, data.MustPath("/missing"), readOnly, now, user, group)
	assert.ErrorIs(t, err, data.ErrNotFound)

	local := open(t, fs, taskA, "/file", createReadWrite)
	write(t, fs, local, "0123456789")
	require.NoError(t, fs.Close(ctx, local))

	exclusive := data.NewFlags(data.ModeWrite, data.OpenCreate|data.OpenExclusive, data.StatusNone)
	_, err = fs.Open(ctx, taskA, data.MustPath("/file"), exclusive, now, user, group)
	assert.ErrorIs(t, err, data.ErrAlreadyExists)

	appending := open(t, fs, taskA, "/file", data.NewFlags(data.ModeWrite, data.OpenNone, data.StatusAppend))
	write(t, fs, appending, "ab")
	require.NoError(t, fs.Close(ctx, appending))

	local = open(t, fs, taskA, "/file", readOnly)
	assert.Equal(t, "0123456789ab", readAll(t, fs, local))
	require.NoError(t, fs.Close(ctx, local))

	truncating := open(t, fs, taskA, "/file", data.NewFlags(data.ModeReadWrite, data.OpenTruncate, data.StatusNone))
	statistics, err := fs.GetStatistics(ctx, truncating)
	require.NoError(t, err)
	assert.Zero(t, statistics.Size)
	require.NoError(t, fs.Close(ctx, truncating))

	_, err = fs.Open(ctx, taskA, data.Root, readOnly, now, user, group)
	assert.ErrorIs(t, err, data.ErrIsDirectory)

	_, err = fs.Open(ctx, taskA, data.MustPath("/file"), data.NewFlags(0, data.OpenNone, data.StatusNone), now, user, group)
	assert.ErrorIs(t, err, data.ErrInvalidMode)
}

func testPosition(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	local := open(t, fs, taskA, "/file", createReadWrite)
	write(t, fs, local, "abcdef")

	position, err := fs.SetPosition(ctx, local, data.End(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(6), position)

	position, err = fs.SetPosition(ctx, local, data.Current(-4))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), position)
	assert.Equal(t, "cdef", readAll(t, fs, local))

	_, err = fs.SetPosition(ctx, local, data.Current(-100))
	assert.ErrorIs(t, err, data.ErrInvalidParameter)

	// writing past the end zero-fills the gap
	_, err = fs.SetPosition(ctx, local, data.Start(8))
	require.NoError(t, err)
	write(t, fs, local, "z")

	_, err = fs.SetPosition(ctx, local, data.Start(0))
	require.NoError(t, err)
	assert.Equal(t, "abcdef\x00\x00z", readAll(t, fs, local))

	statistics, err := fs.GetStatistics(ctx, local)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), statistics.Size)
	assert.Equal(t, data.FileTypeFile, statistics.Type)

	require.NoError(t, fs.Flush(ctx, local))
	require.NoError(t, fs.Close(ctx, local))
}

func testTransfert(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	local := open(t, fs, taskA, "/file", createReadWrite)
	write(t, fs, local, "shared")
	_, err := fs.SetPosition(ctx, local, data.Start(0))
	require.NoError(t, err)

	moved, err := fs.Transfert(ctx, taskB, local, nil)
	require.NoError(t, err)
	assert.Equal(t, taskB, moved.Task)

	_, err = fs.Read(ctx, local, make([]byte, 1), now)
	assert.ErrorIs(t, err, data.ErrInvalidIdentifier)
	assert.Equal(t, "shared", readAll(t, fs, moved))

	standardIn := data.StandardInFileIdentifier
	placed, err := fs.Transfert(ctx, taskA, moved, &standardIn)
	require.NoError(t, err)
	assert.Equal(t, data.NewLocalFileIdentifier(taskA, standardIn), placed)

	require.NoError(t, fs.Close(ctx, placed))
}

func testDuplicate(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	local := open(t, fs, taskA, "/file", createReadWrite)
	write(t, fs, local, "dup")

	duplicate, err := fs.Duplicate(ctx, local)
	require.NoError(t, err)
	assert.NotEqual(t, local, duplicate)

	mode, err := fs.GetMode(ctx, duplicate)
	require.NoError(t, err)
	assert.Equal(t, data.ModeReadWrite, mode)

	require.NoError(t, fs.Close(ctx, local))
	metadata, err := fs.GetMetadata(ctx, duplicate)
	require.NoError(t, err)
	assert.Equal(t, data.FileTypeFile, metadata.Type)
	require.NoError(t, fs.Close(ctx, duplicate))
}

func testAccessModeEnforced(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	local := open(t, fs, taskA, "/file", createReadWrite)
	require.NoError(t, fs.Close(ctx, local))

	reader := open(t, fs, taskA, "/file", readOnly)
	_, err := fs.Write(ctx, reader, []byte("x"), now)
	assert.ErrorIs(t, err, data.ErrInvalidMode)
	require.NoError(t, fs.Close(ctx, reader))

	writer := open(t, fs, taskA, "/file", data.NewFlags(data.ModeWrite, data.OpenNone, data.StatusNone))
	_, err = fs.Read(ctx, writer, make([]byte, 1), now)
	assert.ErrorIs(t, err, data.ErrInvalidMode)
	require.NoError(t, fs.Close(ctx, writer))
}

func testStatisticsFromPath(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	local := open(t, fs, taskA, "/sized", createReadWrite)
	write(t, fs, local, "12345")

	byHandle, err := fs.GetStatistics(ctx, local)
	require.NoError(t, err)
	require.NoError(t, fs.Close(ctx, local))

	byPath, err := fs.GetStatisticsFromPath(ctx, data.MustPath("/sized"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), byPath.Size)
	assert.Equal(t, byHandle.Inode, byPath.Inode)
	assert.Equal(t, data.FileTypeFile, byPath.Type)

	_, err = fs.GetStatisticsFromPath(ctx, data.MustPath("/missing"))
	assert.ErrorIs(t, err, data.ErrNotFound)
}
