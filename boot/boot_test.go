package boot

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/xila/config"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
	"github.com/mwantia/xila/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Default()
	require.NoError(t, err)

	cfg.Mounts = append(cfg.Mounts, config.MountConfig{
		Path:    "/db",
		Type:    config.MountSQLite,
		Options: map[string]string{"path": ":memory:"},
	})
	cfg.Devices = append(cfg.Devices,
		config.DeviceConfig{
			Path:      "/devices/disk",
			Type:      config.DeviceMemory,
			Size:      4096,
			Partition: &config.PartitionConfig{Offset: 1024, Size: 2048},
		},
		config.DeviceConfig{
			Path:  "/devices/image",
			Type:  config.DeviceFile,
			Image: filepath.Join(t.TempDir(), "image.bin"),
			Size:  512,
		},
	)
	cfg.Shell.Input = "/devices/null"
	return cfg
}

func start(t *testing.T, cfg *config.Config, input string) (*System, *bytes.Buffer) {
	t.Helper()

	var console bytes.Buffer
	s, err := Start(context.Background(), cfg,
		WithLogger(log.Discard()),
		WithConsole(strings.NewReader(input), &console),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, &console
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	s, console := start(t, newConfig(t), "")

	for _, path := range []string{"/db", "/devices", "/devices/console", "/devices/disk", "/devices/image"} {
		exists, err := s.VFS.Exists(ctx, data.Path(path))
		require.NoError(t, err)
		assert.True(t, exists, path)
	}

	code, err := s.Execute(ctx, "ls /")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Contains(t, console.String(), "db\n")
	assert.Contains(t, console.String(), "devices\n")

	console.Reset()
	code, err = s.Execute(ctx, "mounts")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Contains(t, console.String(), "/db")

	console.Reset()
	code, err = s.Execute(ctx, "stat /devices/disk")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Contains(t, console.String(), "Size: 2048")
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	s, console := start(t, newConfig(t), "")

	code, err := s.Execute(ctx, "echo stored | tee /db/greeting")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Equal(t, "stored\n", console.String())

	console.Reset()
	code, err = s.Execute(ctx, "cat /db/greeting")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Equal(t, "stored\n", console.String())

	console.Reset()
	code, _ = s.Execute(ctx, "unknown")
	assert.Equal(t, shell.ExitNotFound, code)
	assert.Equal(t, "unknown: command not found\n", console.String())
}

func TestRun(t *testing.T) {
	cfg := newConfig(t)
	cfg.Shell.Input = "/devices/console"

	s, console := start(t, cfg, "echo from console\nexit\n")
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "$ from console\n$ ", console.String())
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()

	var console bytes.Buffer
	s, err := Start(ctx, newConfig(t), WithLogger(log.Discard()), WithConsole(strings.NewReader(""), &console))
	require.NoError(t, err)

	require.NoError(t, s.Shutdown(ctx))
	assert.Empty(t, s.closers)
}

func TestStartInvalid(t *testing.T) {
	cfg := newConfig(t)
	cfg.Mounts[0].Type = "tape"

	_, err := Start(context.Background(), cfg, WithLogger(log.Discard()))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = newConfig(t)
	cfg.Mounts = append(cfg.Mounts, config.MountConfig{Path: "/remote", Type: config.MountPostgres})

	_, err = Start(context.Background(), cfg, WithLogger(log.Discard()))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
