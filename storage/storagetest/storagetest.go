// Package storagetest holds the behaviour every storage.Storage must show.
package storagetest

import (
	"context"
	"testing"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an opened, empty storage. Cleanup is registered on t.
type Factory func(t *testing.T) storage.Storage

func Run(t *testing.T, factory Factory) {
	tests := map[string]func(*testing.T, storage.Storage){
		"CreateAndRead":   testCreateAndRead,
		"Content":         testContent,
		"Truncate":        testTruncate,
		"ListChildren":    testListChildren,
		"MoveSubtree":     testMoveSubtree,
		"DeleteNode":      testDeleteNode,
		"UpdateNode":      testUpdateNode,
		"DistinctInodes":  testDistinctInodes,
		"UnknownInode":    testUnknownInode,
		"MoveValidations": testMoveValidations,
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func create(t *testing.T, s storage.Storage, key string, fileType data.FileType) data.Metadata {
	t.Helper()

	metadata := data.NewMetadata(0, fileType, 1000, 1, 1)
	require.NoError(t, s.CreateNode(context.Background(), key, &metadata))
	require.NotZero(t, metadata.Inode)
	return metadata
}

func testCreateAndRead(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	metadata := create(t, s, "/file", data.FileTypeFile)

	node, err := s.ReadNode(ctx, "/file")
	require.NoError(t, err)
	assert.Equal(t, "/file", node.Key)
	assert.Equal(t, "file", node.Name())
	assert.Equal(t, metadata, node.Metadata)
	assert.Zero(t, node.Size)

	err = s.CreateNode(ctx, "/file", &metadata)
	assert.ErrorIs(t, err, data.ErrAlreadyExists)

	_, err = s.ReadNode(ctx, "/missing")
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func testContent(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	metadata := create(t, s, "/file", data.FileTypeFile)

	n, err := s.WriteData(ctx, metadata.Inode, 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.WriteData(ctx, metadata.Inode, 8, []byte("world"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	node, err := s.ReadNode(ctx, "/file")
	require.NoError(t, err)
	assert.Equal(t, uint64(13), node.Size)

	buffer := make([]byte, 32)
	n, err = s.ReadData(ctx, metadata.Inode, 0, buffer)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\x00\x00\x00world"), buffer[:n])

	n, err = s.ReadData(ctx, metadata.Inode, 13, buffer)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.ReadData(ctx, metadata.Inode, 3, buffer[:4])
	require.NoError(t, err)
	assert.Equal(t, "lo\x00\x00", string(buffer[:n]))
}

func testTruncate(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	metadata := create(t, s, "/file", data.FileTypeFile)

	_, err := s.WriteData(ctx, metadata.Inode, 0, []byte("abcdef"))
	require.NoError(t, err)

	require.NoError(t, s.TruncateData(ctx, metadata.Inode, 3))
	require.NoError(t, s.TruncateData(ctx, metadata.Inode, 5))

	buffer := make([]byte, 8)
	n, err := s.ReadData(ctx, metadata.Inode, 0, buffer)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00\x00"), buffer[:n])
}

func testListChildren(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	create(t, s, "/", data.FileTypeDirectory)
	create(t, s, "/b", data.FileTypeDirectory)
	create(t, s, "/a", data.FileTypeFile)
	create(t, s, "/b/c", data.FileTypeFile)
	create(t, s, "/bc", data.FileTypeFile)

	root, err := s.ListNodes(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b", "/bc"}, keys(root))

	nested, err := s.ListNodes(ctx, "/b")
	require.NoError(t, err)
	assert.Equal(t, []string{"/b/c"}, keys(nested))

	empty, err := s.ListNodes(ctx, "/a")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testMoveSubtree(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	create(t, s, "/", data.FileTypeDirectory)
	create(t, s, "/src", data.FileTypeDirectory)
	file := create(t, s, "/src/file", data.FileTypeFile)

	_, err := s.WriteData(ctx, file.Inode, 0, []byte("kept"))
	require.NoError(t, err)

	require.NoError(t, s.MoveNode(ctx, "/src", "/dst"))

	_, err = s.ReadNode(ctx, "/src")
	assert.ErrorIs(t, err, data.ErrNotFound)
	_, err = s.ReadNode(ctx, "/src/file")
	assert.ErrorIs(t, err, data.ErrNotFound)

	moved, err := s.ReadNode(ctx, "/dst/file")
	require.NoError(t, err)
	assert.Equal(t, file.Inode, moved.Metadata.Inode)
	assert.Equal(t, uint64(4), moved.Size)

	children, err := s.ListNodes(ctx, "/dst")
	require.NoError(t, err)
	assert.Equal(t, []string{"/dst/file"}, keys(children))
}

func testMoveValidations(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	create(t, s, "/", data.FileTypeDirectory)
	create(t, s, "/a", data.FileTypeDirectory)
	create(t, s, "/b", data.FileTypeFile)

	assert.ErrorIs(t, s.MoveNode(ctx, "/missing", "/c"), data.ErrNotFound)
	assert.ErrorIs(t, s.MoveNode(ctx, "/a", "/b"), data.ErrAlreadyExists)
	assert.ErrorIs(t, s.MoveNode(ctx, "/a", "/a/inside"), data.ErrInvalidParameter)
}

func testDeleteNode(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	metadata := create(t, s, "/file", data.FileTypeFile)

	_, err := s.WriteData(ctx, metadata.Inode, 0, []byte("gone"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(ctx, "/file"))
	assert.ErrorIs(t, s.DeleteNode(ctx, "/file"), data.ErrNotFound)

	_, err = s.ReadNode(ctx, "/file")
	assert.ErrorIs(t, err, data.ErrNotFound)

	recreated := create(t, s, "/file", data.FileTypeFile)
	node, err := s.ReadNode(ctx, "/file")
	require.NoError(t, err)
	assert.Equal(t, recreated.Inode, node.Metadata.Inode)
	assert.Zero(t, node.Size)
}

func testUpdateNode(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	metadata := create(t, s, "/file", data.FileTypeFile)

	updated := metadata
	updated.Permissions = data.NewPermissions(data.PermissionReadWrite, data.PermissionNone, data.PermissionNone, data.SpecialNone)
	updated.User = 42
	updated.ModificationTime = 2000
	updated.Inode = metadata.Inode + 100
	require.NoError(t, s.UpdateNode(ctx, "/file", updated))

	node, err := s.ReadNode(ctx, "/file")
	require.NoError(t, err)
	assert.Equal(t, "rw-------", node.Metadata.Permissions.String())
	assert.Equal(t, data.UserIdentifier(42), node.Metadata.User)
	assert.Equal(t, data.Time(2000), node.Metadata.ModificationTime)
	assert.Equal(t, metadata.Inode, node.Metadata.Inode)

	assert.ErrorIs(t, s.UpdateNode(ctx, "/missing", updated), data.ErrNotFound)
}

func testDistinctInodes(t *testing.T, s storage.Storage) {
	seen := make(map[data.Inode]string)
	for _, key := range []string{"/a", "/b", "/c", "/d"} {
		metadata := create(t, s, key, data.FileTypeFile)
		previous, duplicate := seen[metadata.Inode]
		assert.False(t, duplicate, "inode %d shared by %s and %s", metadata.Inode, previous, key)
		seen[metadata.Inode] = key
	}
}

func testUnknownInode(t *testing.T, s storage.Storage) {
	_, err := s.ReadData(context.Background(), data.Inode(987654), 0, make([]byte, 1))
	assert.ErrorIs(t, err, data.ErrInvalidInode)
}

func keys(nodes []*storage.Node) []string {
	result := make([]string, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, node.Key)
	}
	return result
}
