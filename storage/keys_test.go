package storage_test

import (
	"testing"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/btree"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "/", storage.ParentKey("/a"))
	assert.Equal(t, "/a", storage.ParentKey("/a/b"))
	assert.Equal(t, "/", storage.ParentKey("/"))

	assert.True(t, storage.IsChild("/", "/a"))
	assert.False(t, storage.IsChild("/", "/a/b"))
	assert.True(t, storage.IsChild("/a", "/a/b"))
	assert.False(t, storage.IsChild("/a", "/ab"))

	assert.True(t, storage.IsDescendant("/a", "/a/b/c"))
	assert.False(t, storage.IsDescendant("/a", "/a"))

	assert.Equal(t, "/x", storage.Rebase("/a", "/a", "/x"))
	assert.Equal(t, "/x/b/c", storage.Rebase("/a/b/c", "/a", "/x"))
}

func TestIndexWalk(t *testing.T) {
	index := btree.NewMap[string, int](0)
	for i, key := range []string{"/", "/a", "/a/b", "/a/b/c", "/a/d", "/ab", "/z"} {
		index.Set(key, i)
	}

	assert.Equal(t, []string{"/a", "/ab", "/z"}, storage.Children(index, "/"))
	assert.Equal(t, []string{"/a/b", "/a/d"}, storage.Children(index, "/a"))
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c", "/a/d"}, storage.Subtree(index, "/a"))

	assert.NoError(t, storage.CheckMove(index, "/a", "/y"))
	assert.ErrorIs(t, storage.CheckMove(index, "/missing", "/y"), data.ErrNotFound)
	assert.ErrorIs(t, storage.CheckMove(index, "/a", "/z"), data.ErrAlreadyExists)
	assert.ErrorIs(t, storage.CheckMove(index, "/a", "/a/b/x"), data.ErrInvalidParameter)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, storage.Wrap(nil, "read"))
	assert.Equal(t, data.ErrNotFound, storage.Wrap(data.ErrNotFound, "read"))
	assert.ErrorIs(t, storage.Wrap(assert.AnError, "read"), data.ErrInputOutput)
}
