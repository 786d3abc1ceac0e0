package consul_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/mwantia/xila/storage"
	"github.com/mwantia/xila/storage/consul"
	"github.com/mwantia/xila/storage/storagetest"
	"github.com/stretchr/testify/require"
)

// The suite needs a reachable agent, for example XILA_TEST_CONSUL=127.0.0.1:8500
func TestConsulStorage(t *testing.T) {
	address := os.Getenv("XILA_TEST_CONSUL")
	if address == "" {
		t.Skip("XILA_TEST_CONSUL not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		ctx := context.Background()

		s, err := consul.NewConsulStorage(&consul.ConsulStorageConfig{
			Address: address,
			Prefix:  "xila-test/" + uuid.NewString(),
		})
		require.NoError(t, err)
		require.NoError(t, s.Open(ctx))
		t.Cleanup(func() {
			_ = s.Purge(ctx)
			_ = s.Close(ctx)
		})
		return s
	})
}

func TestConsulStorageDefaults(t *testing.T) {
	s, err := consul.NewConsulStorage(nil)
	require.NoError(t, err)
	require.Equal(t, "consul", s.Name())
	require.True(t, s.GetCapabilities().Contains(storage.CapabilityPersistent))
	require.False(t, s.GetCapabilities().Fits(1024*1024))
}
