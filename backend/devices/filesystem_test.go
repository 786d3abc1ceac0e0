package devices_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mwantia/xila/backend/devices"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var readWrite = data.NewFlags(data.ModeReadWrite, data.OpenNone, data.StatusNone)

func newFileSystem(t *testing.T) *devices.FileSystem {
	t.Helper()

	fs, err := devices.New(devices.WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return fs
}

func TestDeviceEcho(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t)

	_, err := fs.MountStaticDevice(ctx, "/devices/mem", device.NewMemory(512))
	require.NoError(t, err)

	file, err := fs.Open(ctx, 1, data.MustPath("/devices/mem"), readWrite, 0, 0, 0)
	require.NoError(t, err)

	n, err := fs.Write(ctx, file, []byte("abc"), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	position, err := fs.SetPosition(ctx, file, data.Start(0))
	require.NoError(t, err)
	assert.Zero(t, position)

	buffer := make([]byte, 3)
	n, err = fs.Read(ctx, file, buffer, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buffer))

	statistics, err := fs.GetStatistics(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, uint64(512), statistics.Size)
	assert.Equal(t, data.FileTypeBlockDevice, statistics.Type)

	require.NoError(t, fs.Close(ctx, file))
}

func TestDeviceTransfert(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t)

	memory := device.NewMemory(512)
	_, err := memory.WriteAtPosition([]byte("shared"), 0)
	require.NoError(t, err)
	_, err = fs.MountStaticDevice(ctx, "/devices/mem", memory)
	require.NoError(t, err)

	file, err := fs.Open(ctx, 1, data.MustPath("/devices/mem"), readWrite, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, data.MinimumFileIdentifier, file.File)

	moved, err := fs.Transfert(ctx, 2, file, nil)
	require.NoError(t, err)
	assert.Equal(t, data.TaskIdentifier(2), moved.Task)

	_, err = fs.Read(ctx, file, make([]byte, 1), 0)
	assert.ErrorIs(t, err, data.ErrInvalidIdentifier)

	buffer := make([]byte, 6)
	_, err = fs.Read(ctx, moved, buffer, 0)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(buffer))
}

func TestDeviceResolutionIsExact(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t)

	_, err := fs.MountStaticDevice(ctx, "/devices/null", device.NewNull())
	require.NoError(t, err)
	_, err = fs.MountStaticDevice(ctx, "/devices/zero", device.NewZero())
	require.NoError(t, err)
	_, err = fs.MountStaticDevice(ctx, "/devices/disk/0", device.NewMemory(64))
	require.NoError(t, err)
	_, err = fs.MountStaticDevice(ctx, "/devicesx", device.NewNull())
	require.NoError(t, err)

	_, err = fs.MountStaticDevice(ctx, "/devices/null", device.NewNull())
	assert.ErrorIs(t, err, data.ErrAlreadyExists)

	_, err = fs.GetMetadataFromPath(ctx, data.MustPath("/devices"))
	assert.ErrorIs(t, err, data.ErrNotFound)

	entries := fs.GetDevicesFromPath(data.MustPath("/devices"))
	paths := make([]data.Path, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	assert.Equal(t, []data.Path{"/devices/disk/0", "/devices/null", "/devices/zero"}, paths)
}

func TestUnmountBusyDevice(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t)
	path := data.MustPath("/devices/null")

	_, err := fs.MountDevice(ctx, path, device.NewNull())
	require.NoError(t, err)

	_, err = fs.Open(ctx, 1, path, readWrite, 0, 0, 0)
	require.NoError(t, err)

	_, err = fs.UnmountDevice(ctx, path)
	assert.ErrorIs(t, err, data.ErrRessourceBusy)

	require.NoError(t, fs.CloseAll(ctx, 1))
	assert.Zero(t, fs.OpenCount())

	require.NoError(t, fs.Remove(ctx, path))
	_, err = fs.Open(ctx, 1, path, readWrite, 0, 0, 0)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestBlockingTerminalRead(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t)

	reader, writer := io.Pipe()
	_, err := fs.MountStaticDevice(ctx, "/devices/console", device.NewStream(reader, io.Discard))
	require.NoError(t, err)

	blocking, err := fs.Open(ctx, 1, data.MustPath("/devices/console"), readWrite, 0, 0, 0)
	require.NoError(t, err)
	nonBlocking, err := fs.Open(ctx, 1, data.MustPath("/devices/console"),
		readWrite.WithStatus(data.StatusNonBlocking), 0, 0, 0)
	require.NoError(t, err)

	n, err := fs.Read(ctx, nonBlocking, make([]byte, 4), 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = writer.Write([]byte("y"))
	}()

	buffer := make([]byte, 4)
	n, err = fs.Read(ctx, blocking, buffer, 0)
	require.NoError(t, err)
	assert.Equal(t, "y", string(buffer[:n]))

	cancelled, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
	defer cancel()
	_, err = fs.Read(cancelled, blocking, buffer, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTerminalEndOfInput(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t)

	reader, writer := io.Pipe()
	_, err := fs.MountStaticDevice(ctx, "/devices/console", device.NewStream(reader, io.Discard))
	require.NoError(t, err)

	file, err := fs.Open(ctx, 1, data.MustPath("/devices/console"), readWrite, 0, 0, 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = writer.Close()
	}()

	n, err := fs.Read(ctx, file, make([]byte, 4), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeviceMetadata(t *testing.T) {
	ctx := context.Background()
	fs := newFileSystem(t)
	path := data.MustPath("/devices/random")

	_, err := fs.MountDevice(ctx, path, device.NewRandom())
	require.NoError(t, err)

	metadata, err := fs.GetMetadataFromPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "rw-rw----", metadata.Permissions.String())

	metadata.User = 7
	metadata.Type = data.FileTypeFile
	require.NoError(t, fs.SetMetadataFromPath(ctx, path, metadata))

	updated, err := fs.GetMetadataFromPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, data.UserIdentifier(7), updated.User)
	assert.Equal(t, data.FileTypeCharacterDevice, updated.Type)

	statistics, err := fs.GetStatisticsFromPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, data.FileTypeCharacterDevice, statistics.Type)
	assert.Zero(t, statistics.Size)
}
