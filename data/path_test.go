package data_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/xila/data"
)

func TestPath_NewPathValidation(t *testing.T) {
	_, err := data.NewPath("")
	require.ErrorIs(t, err, data.ErrInvalidPath)

	_, err = data.NewPath("/a\x00b")
	require.ErrorIs(t, err, data.ErrInvalidPath)

	p, err := data.NewPathAllowEmpty("")
	require.NoError(t, err)
	assert.Equal(t, data.Path(""), p)

	p, err = data.NewPath("/devices/null")
	require.NoError(t, err)
	assert.True(t, p.IsAbsolute())
}

func TestPath_Join(t *testing.T) {
	tests := []struct {
		base    data.Path
		segment string
		want    data.Path
	}{
		{"/", "a", "/a"},
		{"/a", "b", "/a/b"},
		{"/a/", "b", "/a/b"},
		{"/a", "/b", "/a/b"},
		{"/a", "", "/a"},
		{"", "b", "b"},
	}

	for _, tt := range tests {
		got, err := tt.base.Join(tt.segment)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q + %q", tt.base, tt.segment)
	}
}

func TestPath_Parent(t *testing.T) {
	parent, ok := data.Path("/a/b/c").Parent()
	require.True(t, ok)
	assert.Equal(t, data.Path("/a/b"), parent)

	parent, ok = data.Path("/a").Parent()
	require.True(t, ok)
	assert.Equal(t, data.Root, parent)

	_, ok = data.Root.Parent()
	assert.False(t, ok, "root has no parent")

	_, ok = data.Path("a").Parent()
	assert.False(t, ok)
}

func TestPath_SegmentsAndNames(t *testing.T) {
	p := data.Path("/home/user/archive.tar.gz")

	if diff := cmp.Diff([]string{"home", "user", "archive.tar.gz"}, p.Segments()); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "archive.tar.gz", p.FileName())
	assert.Equal(t, "gz", p.Extension())
	assert.Equal(t, "", data.Path("/home/.profile").Extension())
	assert.Equal(t, "", data.Root.FileName())
}

func TestPath_StripPrefixAbsolute(t *testing.T) {
	tests := []struct {
		path   data.Path
		prefix data.Path
		want   data.Path
		ok     bool
	}{
		{"/a/b/c", "/a/b", "/c", true},
		{"/a/b/c", "/a", "/b/c", true},
		{"/a/b", "/a/b", "/", true},
		{"/a/b", "/", "/a/b", true},
		{"/ab", "/a", "", false},
		{"/a", "/a/b", "", false},
		{"a/b", "/a", "", false},
		{"/a/b", "/a/", "/b", true},
	}

	for _, tt := range tests {
		got, ok := tt.path.StripPrefixAbsolute(tt.prefix)
		assert.Equal(t, tt.ok, ok, "%q under %q", tt.path, tt.prefix)
		if ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestPath_Canonicalize(t *testing.T) {
	assert.Equal(t, data.Path("/a/c"), data.Path("/a/./b/../c").Canonicalize())
	assert.Equal(t, data.Root, data.Path("/../..").Canonicalize())
	assert.Equal(t, data.Path("/a/b"), data.Path("//a//b/").Canonicalize())
}
