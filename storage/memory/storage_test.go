package memory_test

import (
	"context"
	"testing"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
	"github.com/mwantia/xila/storage/memory"
	"github.com/mwantia/xila/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		s := memory.NewMemoryStorage()
		require.NoError(t, s.Open(context.Background()))
		t.Cleanup(func() { _ = s.Close(context.Background()) })
		return s
	})
}

func TestMemoryStorageLimit(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemoryStorageWithLimit(8)

	metadata := data.NewMetadata(0, data.FileTypeFile, 0, 0, 0)
	require.NoError(t, s.CreateNode(ctx, "/small", &metadata))

	_, err := s.WriteData(ctx, metadata.Inode, 4, []byte("12345"))
	assert.ErrorIs(t, err, data.ErrFileTooLarge)
	assert.ErrorIs(t, s.TruncateData(ctx, metadata.Inode, 9), data.ErrFileTooLarge)
	assert.True(t, s.GetCapabilities().Fits(8))
}
