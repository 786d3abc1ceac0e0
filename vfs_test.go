package vfs_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/xila"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/device"
	"github.com/mwantia/xila/mount"
	"github.com/mwantia/xila/storage/memory"
	"github.com/mwantia/xila/task"
	"github.com/mwantia/xila/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	root  = data.RootTaskIdentifier
	taskA = data.TaskIdentifier(1)
	taskB = data.TaskIdentifier(2)
	guest = data.TaskIdentifier(3)
)

var clock = data.ClockFunc(func() data.Time { return 1_800_000_000 })

type credentials struct {
	user  data.UserIdentifier
	group data.GroupIdentifier
}

// testTasks is a task manager with fixed tasks and no scheduling.
type testTasks struct {
	mu    sync.Mutex
	tasks map[data.TaskIdentifier]credentials
	hooks []task.ExitHook
}

func (m *testTasks) GetUser(identifier data.TaskIdentifier) (data.UserIdentifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, exists := m.tasks[identifier]
	if !exists {
		return 0, task.ErrInvalidTask
	}
	return c.user, nil
}

func (m *testTasks) GetGroup(identifier data.TaskIdentifier) (data.GroupIdentifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, exists := m.tasks[identifier]
	if !exists {
		return 0, task.ErrInvalidTask
	}
	return c.group, nil
}

func (m *testTasks) OnTaskExit(hook task.ExitHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook)
}

func newVirtualFileSystem(t *testing.T) (*vfs.VirtualFileSystem, *users.Memory) {
	t.Helper()

	usrs := users.NewMemory()
	require.NoError(t, usrs.AddGroup(users.Group{Identifier: 42, Name: "guest"}))
	require.NoError(t, usrs.AddUser(users.User{Identifier: 42, Name: "guest", Group: 42}))

	tasks := &testTasks{tasks: map[data.TaskIdentifier]credentials{
		root:  {data.RootUserIdentifier, data.RootGroupIdentifier},
		taskA: {data.RootUserIdentifier, data.RootGroupIdentifier},
		taskB: {data.RootUserIdentifier, data.RootGroupIdentifier},
		guest: {42, 42},
	}}

	v, err := vfs.NewVirtualFileSystem(tasks, usrs, vfs.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Shutdown(context.Background()) })

	mountMemory(t, v, "/")
	require.NoError(t, v.CreateDirectory(context.Background(), root, data.MustPath("/devices"), false))
	return v, usrs
}

func mountMemory(t *testing.T, v *vfs.VirtualFileSystem, prefix string) *mount.FileSystem {
	t.Helper()

	ctx := context.Background()
	fs, err := mount.New(ctx, memory.NewMemoryStorage(), mount.WithClock(clock))
	require.NoError(t, err)

	_, err = v.Mount(ctx, data.MustPath(prefix), fs)
	require.NoError(t, err)
	return fs
}

func writeFile(t *testing.T, v *vfs.VirtualFileSystem, owner data.TaskIdentifier, path, content string) {
	t.Helper()

	ctx := context.Background()
	file, err := v.Open(ctx, owner, data.MustPath(path), data.NewFlags(data.ModeWrite, data.NewOpen(true, false, true), data.StatusNone))
	require.NoError(t, err)
	require.NoError(t, v.WriteAll(ctx, owner, file, []byte(content)))
	require.NoError(t, v.Close(ctx, owner, file))
}

func readFile(t *testing.T, v *vfs.VirtualFileSystem, owner data.TaskIdentifier, path string) string {
	t.Helper()

	ctx := context.Background()
	file, err := v.Open(ctx, owner, data.MustPath(path), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
	require.NoError(t, err)
	content, err := v.ReadToEnd(ctx, owner, file, 4)
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, owner, file))
	return string(content)
}

func TestPipeRoundTrip(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	readEnd, writeEnd, err := v.CreateUnnamedPipe(ctx, taskA, 64, data.StatusNonBlocking)
	require.NoError(t, err)
	assert.Equal(t, data.PipeFileSystemIdentifier, readEnd.FileSystem)
	assert.Equal(t, data.PipeFileSystemIdentifier, writeEnd.FileSystem)

	n, err := v.Write(ctx, taskA, writeEnd, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buffer := make([]byte, 5)
	n, err = v.Read(ctx, taskA, readEnd, buffer)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buffer))

	require.NoError(t, v.Close(ctx, taskA, readEnd))
	require.NoError(t, v.Close(ctx, taskA, writeEnd))
}

func TestPermissionDenied(t *testing.T) {
	ctx := context.Background()
	v, usrs := newVirtualFileSystem(t)
	path := data.MustPath("/a")

	writeFile(t, v, root, "/a", "secret")
	permissions := data.NewPermissions(data.PermissionReadWrite, data.PermissionNone, data.PermissionNone, data.SpecialNone)
	require.NoError(t, v.SetPermissions(ctx, root, path, permissions))

	readWrite := data.NewFlags(data.ModeReadWrite, data.OpenNone, data.StatusNone)
	_, err := v.Open(ctx, guest, path, readWrite)
	assert.ErrorIs(t, err, data.ErrPermissionDenied)

	// root bypasses the triads
	file, err := v.Open(ctx, root, path, readWrite)
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, root, file))

	// the group triad applies once the guest joins the owning group
	require.NoError(t, usrs.AddMember(data.RootGroupIdentifier, 42))
	permissions = permissions.WithGroup(data.PermissionRead)
	require.NoError(t, v.SetPermissions(ctx, root, path, permissions))

	file, err = v.Open(ctx, guest, path, data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
	require.NoError(t, err)
	require.NoError(t, v.Close(ctx, guest, file))

	_, err = v.Open(ctx, guest, path, readWrite)
	assert.ErrorIs(t, err, data.ErrPermissionDenied)

	// the root directory is rwxr-xr-x and owned by root
	assert.ErrorIs(t, v.CreateFile(ctx, guest, data.MustPath("/b")), data.ErrPermissionDenied)
	assert.ErrorIs(t, v.Delete(ctx, guest, path, false), data.ErrPermissionDenied)
	assert.ErrorIs(t, v.SetPermissions(ctx, guest, path, permissions), data.ErrPermissionDenied)
	assert.ErrorIs(t, v.SetOwner(ctx, guest, path, 42, 42), data.ErrPermissionDenied)

	// unknown tasks cannot be resolved
	_, err = v.Open(ctx, 99, path, readWrite)
	assert.ErrorIs(t, err, data.ErrFailedToGetTaskInformations)
}

func TestOwnerMayWrite(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/home/guest"), true))
	require.NoError(t, v.SetOwner(ctx, root, data.MustPath("/home/guest"), 42, 42))

	writeFile(t, v, guest, "/home/guest/notes", "mine")
	assert.Equal(t, "mine", readFile(t, v, guest, "/home/guest/notes"))

	user, group, err := v.GetOwner(ctx, data.MustPath("/home/guest/notes"))
	require.NoError(t, err)
	assert.Equal(t, data.UserIdentifier(42), user)
	assert.Equal(t, data.GroupIdentifier(42), group)

	permissions, err := v.GetPermissions(ctx, data.MustPath("/home/guest/notes"))
	require.NoError(t, err)
	assert.Equal(t, "rw-r--r--", permissions.String())

	require.NoError(t, v.Delete(ctx, guest, data.MustPath("/home/guest/notes"), false))
}

func TestDeviceEcho(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.MountStaticDevice(ctx, root, "/devices/mem", device.NewMemory(512)))

	file, err := v.Open(ctx, taskA, data.MustPath("/devices/mem"), data.NewFlags(data.ModeReadWrite, data.OpenNone, data.StatusNone))
	require.NoError(t, err)
	assert.Equal(t, data.DeviceFileSystemIdentifier, file.FileSystem)

	require.NoError(t, v.WriteAll(ctx, taskA, file, []byte("abc")))
	position, err := v.SetPosition(ctx, taskA, file, data.Start(0))
	require.NoError(t, err)
	assert.Zero(t, position)

	buffer := make([]byte, 3)
	n, err := v.Read(ctx, taskA, file, buffer)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buffer))

	size, err := v.GetSize(ctx, data.MustPath("/devices/mem"))
	require.NoError(t, err)
	assert.Equal(t, uint64(512), size)

	fileType, err := v.GetType(ctx, data.MustPath("/devices/mem"))
	require.NoError(t, err)
	assert.Equal(t, data.FileTypeBlockDevice, fileType)

	assert.ErrorIs(t, v.MountStaticDevice(ctx, guest, "/devices/other", device.NewNull()), data.ErrPermissionDenied)
	assert.ErrorIs(t, v.MountStaticDevice(ctx, root, "/devices/mem", device.NewNull()), data.ErrAlreadyExists)

	_, err = v.UnmountDevice(ctx, root, data.MustPath("/devices/mem"))
	assert.ErrorIs(t, err, data.ErrRessourceBusy)

	require.NoError(t, v.Close(ctx, taskA, file))
	_, err = v.UnmountDevice(ctx, root, data.MustPath("/devices/mem"))
	require.NoError(t, err)
}

func TestTransfert(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.MountStaticDevice(ctx, root, "/devices/mem", device.NewMemory(512)))

	file, err := v.Open(ctx, taskA, data.MustPath("/devices/mem"), data.NewFlags(data.ModeReadWrite, data.OpenNone, data.StatusNone))
	require.NoError(t, err)
	assert.Equal(t, data.MinimumFileIdentifier, file.File)
	require.NoError(t, v.WriteAll(ctx, taskA, file, []byte("stream")))
	_, err = v.SetPosition(ctx, taskA, file, data.Start(0))
	require.NoError(t, err)

	moved, err := v.TransfertFile(ctx, taskA, file, taskB, nil)
	require.NoError(t, err)

	_, err = v.Read(ctx, taskA, file, make([]byte, 1))
	assert.ErrorIs(t, err, data.ErrInvalidIdentifier)

	buffer := make([]byte, 6)
	n, err := v.Read(ctx, taskB, moved, buffer)
	require.NoError(t, err)
	assert.Equal(t, "stream", string(buffer[:n]))

	require.NoError(t, v.Close(ctx, taskB, moved))
}

func TestRecursiveCreateDirectory(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/x/y/z"), true))
	for _, path := range []string{"/x", "/x/y", "/x/y/z"} {
		fileType, err := v.GetType(ctx, data.MustPath(path))
		require.NoError(t, err)
		assert.Equal(t, data.FileTypeDirectory, fileType, path)
	}

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/x/y/z"), true))
	assert.ErrorIs(t, v.CreateDirectory(ctx, root, data.MustPath("/x/y/z"), false), data.ErrDirectoryAlreadyExists)
	assert.ErrorIs(t, v.CreateDirectory(ctx, root, data.MustPath("/missing/child"), false), data.ErrNotFound)
}

func TestRecursiveCreateDirectoryBelowForeignAncestors(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/home/guest"), true))
	require.NoError(t, v.SetOwner(ctx, root, data.MustPath("/home/guest"), 42, 42))

	require.NoError(t, v.CreateDirectory(ctx, guest, data.MustPath("/home/guest/docs"), false))
	require.NoError(t, v.CreateDirectory(ctx, guest, data.MustPath("/home/guest/docs/a/b"), true))
	require.NoError(t, v.CreateDirectory(ctx, guest, data.MustPath("/home/guest/docs/a/b"), true))

	user, _, err := v.GetOwner(ctx, data.MustPath("/home/guest/docs/a/b"))
	require.NoError(t, err)
	assert.Equal(t, data.UserIdentifier(42), user)

	// missing components below a root owned directory still need permission
	assert.ErrorIs(t, v.CreateDirectory(ctx, guest, data.MustPath("/home/other/docs"), true), data.ErrPermissionDenied)

	writeFile(t, v, root, "/home/file", "")
	assert.ErrorIs(t, v.CreateDirectory(ctx, root, data.MustPath("/home/file/sub"), true), data.ErrNotDirectory)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/tree/a/b"), true))
	writeFile(t, v, root, "/tree/a/file", "1")
	writeFile(t, v, root, "/tree/a/b/file", "2")

	assert.ErrorIs(t, v.Delete(ctx, root, data.MustPath("/tree"), false), data.ErrDirectoryNotEmpty)
	assert.ErrorIs(t, v.Delete(ctx, root, data.MustPath("/nothing"), false), data.ErrNotFound)

	require.NoError(t, v.Delete(ctx, root, data.MustPath("/tree"), true))

	exists, err := v.Exists(ctx, data.MustPath("/tree"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)
	mountMemory(t, v, "/other")

	writeFile(t, v, root, "/a", "content")
	before, err := v.GetStatisticsFromPath(ctx, data.MustPath("/a"))
	require.NoError(t, err)

	require.NoError(t, v.Rename(ctx, root, data.MustPath("/a"), data.MustPath("/b")))

	exists, err := v.Exists(ctx, data.MustPath("/a"))
	require.NoError(t, err)
	assert.False(t, exists)

	after, err := v.GetStatisticsFromPath(ctx, data.MustPath("/b"))
	require.NoError(t, err)
	assert.Equal(t, before.Inode, after.Inode)
	assert.Equal(t, before.Size, after.Size)
	assert.Equal(t, "content", readFile(t, v, root, "/b"))

	err = v.Rename(ctx, root, data.MustPath("/b"), data.MustPath("/other/b"))
	assert.ErrorIs(t, err, data.ErrInvalidParameter)
}

func TestLongestPrefix(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	outer := mountMemory(t, v, "/a")
	inner := mountMemory(t, v, "/a/b")

	require.NoError(t, v.CreateFile(ctx, root, data.MustPath("/a/b/c")))

	_, err := inner.GetMetadataFromPath(ctx, data.MustPath("/c"))
	require.NoError(t, err)
	_, err = outer.GetMetadataFromPath(ctx, data.MustPath("/b/c"))
	assert.ErrorIs(t, err, data.ErrNotFound)

	statistics, err := v.GetStatisticsFromPath(ctx, data.MustPath("/a/b/c"))
	require.NoError(t, err)

	var identifier data.FileSystemIdentifier
	for _, info := range v.Mounts() {
		if info.Path == "/a/b" {
			identifier = info.Identifier
		}
	}
	assert.Equal(t, identifier, statistics.FileSystem)

	// paths are canonicalized before resolution
	exists, err := v.Exists(ctx, data.MustPath("/a/x/../b/./c"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMountTable(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)
	fs := mountMemory(t, v, "/mnt")

	_, err := v.Mount(ctx, data.MustPath("/mnt"), fs)
	assert.ErrorIs(t, err, data.ErrAlreadyMounted)
	_, err = v.Mount(ctx, data.Path("relative"), fs)
	assert.ErrorIs(t, err, data.ErrInvalidPath)

	mounts := v.Mounts()
	require.Len(t, mounts, 4)
	assert.Equal(t, data.PipeFileSystemIdentifier, mounts[0].Identifier)
	assert.Equal(t, data.DeviceFileSystemIdentifier, mounts[1].Identifier)
	assert.Equal(t, data.Path("/"), mounts[2].Path)
	assert.Equal(t, data.Path("/mnt"), mounts[3].Path)

	mountMemory(t, v, "/mnt/nested")
	_, err = v.Unmount(ctx, data.MustPath("/mnt"))
	assert.ErrorIs(t, err, data.ErrRessourceBusy)
	_, err = v.Unmount(ctx, data.MustPath("/mnt/nested"))
	require.NoError(t, err)

	file, err := v.Open(ctx, taskA, data.MustPath("/mnt/file"), data.NewFlags(data.ModeWrite, data.OpenCreate, data.StatusNone))
	require.NoError(t, err)
	_, err = v.Unmount(ctx, data.MustPath("/mnt"))
	assert.ErrorIs(t, err, data.ErrRessourceBusy)

	require.NoError(t, v.Close(ctx, taskA, file))
	unmounted, err := v.Unmount(ctx, data.MustPath("/mnt"))
	require.NoError(t, err)
	assert.Same(t, fs, unmounted)

	_, err = v.Unmount(ctx, data.MustPath("/mnt"))
	assert.ErrorIs(t, err, data.ErrNotMounted)
}

func TestNamedPipe(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/tmp"), false))
	require.NoError(t, v.CreateNamedPipe(ctx, root, data.MustPath("/tmp/fifo"), 0))
	assert.ErrorIs(t, v.CreateNamedPipe(ctx, root, data.MustPath("/tmp/fifo"), 0), data.ErrAlreadyExists)
	assert.ErrorIs(t, v.CreateNamedPipe(ctx, guest, data.MustPath("/tmp/other"), 0), data.ErrPermissionDenied)

	fileType, err := v.GetType(ctx, data.MustPath("/tmp/fifo"))
	require.NoError(t, err)
	assert.Equal(t, data.FileTypePipe, fileType)

	// creation flags do not shadow an existing pipe with a regular file
	writer, err := v.Open(ctx, taskA, data.MustPath("/tmp/fifo"), data.NewFlags(data.ModeWrite, data.OpenCreate, data.StatusNone))
	require.NoError(t, err)
	assert.Equal(t, data.PipeFileSystemIdentifier, writer.FileSystem)

	reader, err := v.Open(ctx, taskB, data.MustPath("/tmp/fifo"), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNonBlocking))
	require.NoError(t, err)

	require.NoError(t, v.WriteAll(ctx, taskA, writer, []byte("line one\nline two\n")))
	line, err := v.ReadLine(ctx, taskB, reader)
	require.NoError(t, err)
	assert.Equal(t, "line one", line)

	require.NoError(t, v.Close(ctx, taskA, writer))
	require.NoError(t, v.Close(ctx, taskB, reader))
	require.NoError(t, v.Delete(ctx, root, data.MustPath("/tmp/fifo"), false))
}

func TestReadDirectory(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/list"), false))
	require.NoError(t, v.CreateFile(ctx, root, data.MustPath("/list/one")))
	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/list/two"), false))

	directory, err := v.OpenDirectory(ctx, taskA, data.MustPath("/list"))
	require.NoError(t, err)
	assert.True(t, directory.File.IsDirectory())

	first, err := v.ReadDirectory(ctx, taskA, directory)
	require.NoError(t, err)
	require.NotNil(t, first)

	position, err := v.GetPositionDirectory(ctx, taskA, directory)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), position)

	require.NoError(t, v.RewindDirectory(ctx, taskA, directory))
	again, err := v.ReadDirectory(ctx, taskA, directory)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, v.Close(ctx, taskA, directory))

	entries, err := v.ReadDirectoryEntries(ctx, taskA, data.MustPath("/list"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	assert.ElementsMatch(t, []string{"one", "two"}, names)
}

func TestSpecialNodesInDirectory(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/tmp"), false))
	writeFile(t, v, root, "/tmp/file", "content")
	require.NoError(t, v.CreateNamedPipe(ctx, root, data.MustPath("/tmp/fifo"), 64))
	require.NoError(t, v.MountStaticDevice(ctx, root, "/tmp/null", device.NewNull()))

	entries, err := v.ReadDirectoryEntries(ctx, taskA, data.MustPath("/tmp"))
	require.NoError(t, err)
	types := make(map[string]data.FileType, len(entries))
	for _, entry := range entries {
		types[entry.Name] = entry.Type
	}
	assert.Len(t, entries, 3)
	assert.Equal(t, data.FileTypeFile, types["file"])
	assert.Equal(t, data.FileTypePipe, types["fifo"])
	assert.Contains(t, types, "null")

	// nodes below a child directory stay out of the listing
	nested, err := v.ReadDirectoryEntries(ctx, taskA, data.Root)
	require.NoError(t, err)
	for _, entry := range nested {
		assert.NotEqual(t, "fifo", entry.Name)
	}

	directory, err := v.OpenDirectory(ctx, taskA, data.MustPath("/tmp"))
	require.NoError(t, err)
	for range 3 {
		entry, err := v.ReadDirectory(ctx, taskA, directory)
		require.NoError(t, err)
		require.NotNil(t, entry)
	}
	end, err := v.ReadDirectory(ctx, taskA, directory)
	require.NoError(t, err)
	assert.Nil(t, end)

	position, err := v.GetPositionDirectory(ctx, taskA, directory)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), position)

	require.NoError(t, v.SetPositionDirectory(ctx, taskA, directory, 10))
	position, err = v.GetPositionDirectory(ctx, taskA, directory)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), position)

	require.NoError(t, v.RewindDirectory(ctx, taskA, directory))
	first, err := v.ReadDirectory(ctx, taskA, directory)
	require.NoError(t, err)
	assert.NotNil(t, first)
	require.NoError(t, v.CloseDirectory(ctx, taskA, directory))

	assert.ErrorIs(t, v.Delete(ctx, root, data.MustPath("/tmp"), false), data.ErrDirectoryNotEmpty)
	require.NoError(t, v.Delete(ctx, root, data.MustPath("/tmp/file"), false))
	assert.ErrorIs(t, v.Delete(ctx, root, data.MustPath("/tmp"), false), data.ErrDirectoryNotEmpty)

	exists, err := v.Exists(ctx, data.MustPath("/tmp"))
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, v.Rename(ctx, root, data.MustPath("/tmp"), data.MustPath("/var")))
	for path, want := range map[string]bool{
		"/var/fifo": true,
		"/var/null": true,
		"/tmp/fifo": false,
		"/tmp/null": false,
	} {
		exists, err := v.Exists(ctx, data.MustPath(path))
		require.NoError(t, err)
		assert.Equal(t, want, exists, path)
	}

	require.NoError(t, v.Delete(ctx, root, data.MustPath("/var"), true))
	for _, path := range []string{"/var", "/var/fifo", "/var/null"} {
		exists, err := v.Exists(ctx, data.MustPath(path))
		require.NoError(t, err)
		assert.False(t, exists, path)
	}
	assert.Empty(t, v.GetDevices(data.MustPath("/var")))
}

func TestSpecialNodeParent(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	writeFile(t, v, root, "/file", "")
	assert.ErrorIs(t, v.CreateNamedPipe(ctx, root, data.MustPath("/file/fifo"), 0), data.ErrNotDirectory)
	assert.ErrorIs(t, v.MountStaticDevice(ctx, root, "/file/null", device.NewNull()), data.ErrNotDirectory)

	assert.ErrorIs(t, v.CreateNamedPipe(ctx, root, data.MustPath("/missing/fifo"), 0), data.ErrNotFound)
	assert.ErrorIs(t, v.MountStaticDevice(ctx, root, "/missing/null", device.NewNull()), data.ErrNotFound)
	assert.Empty(t, v.GetDevices(data.MustPath("/missing")))
}

func TestCloseAll(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)
	fs := mountMemory(t, v, "/mnt")

	require.NoError(t, v.MountStaticDevice(ctx, root, "/devices/null", device.NewNull()))

	_, err := v.Open(ctx, taskA, data.MustPath("/mnt/file"), data.NewFlags(data.ModeWrite, data.OpenCreate, data.StatusNone))
	require.NoError(t, err)
	_, err = v.Open(ctx, taskA, data.MustPath("/devices/null"), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
	require.NoError(t, err)
	_, _, err = v.CreateUnnamedPipe(ctx, taskA, 0, data.StatusNone)
	require.NoError(t, err)
	_, err = v.OpenDirectory(ctx, taskA, data.MustPath("/mnt"))
	require.NoError(t, err)

	kept, err := v.Open(ctx, taskB, data.MustPath("/mnt/file"), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
	require.NoError(t, err)

	require.NoError(t, v.CloseAll(ctx, taskA))
	assert.Equal(t, 1, fs.OpenCount())
	assert.Zero(t, v.Devices().OpenCount())
	assert.Zero(t, v.Pipes().OpenCount())

	require.NoError(t, v.Close(ctx, taskB, kept))
}

func TestCloseAllOnTaskExit(t *testing.T) {
	ctx := context.Background()

	manager, err := task.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = manager.Shutdown(shutdown)
	})

	v, err := vfs.NewVirtualFileSystem(manager, users.NewMemory(), vfs.WithClock(clock))
	require.NoError(t, err)
	fs := mountMemory(t, v, "/")

	handle, _, err := manager.Spawn(root, "writer", nil, func(ctx context.Context) error {
		_, err := v.Open(ctx, task.Current(ctx), data.MustPath("/left-open"), data.NewFlags(data.ModeWrite, data.OpenCreate, data.StatusNone))
		return err
	})
	require.NoError(t, err)

	join, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, handle.Join(join))

	exists, err := v.Exists(ctx, data.MustPath("/left-open"))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Zero(t, fs.OpenCount())
}

func TestTruncate(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	writeFile(t, v, root, "/file", "abcdef")

	file, err := v.Open(ctx, root, data.MustPath("/file"), data.NewFlags(data.ModeReadWrite, data.OpenNone, data.StatusNone))
	require.NoError(t, err)
	require.NoError(t, v.Truncate(ctx, root, file, 3))
	require.NoError(t, v.Close(ctx, root, file))
	assert.Equal(t, "abc", readFile(t, v, root, "/file"))

	readEnd, writeEnd, err := v.CreateUnnamedPipe(ctx, root, 0, data.StatusNone)
	require.NoError(t, err)
	assert.ErrorIs(t, v.Truncate(ctx, root, writeEnd, 0), data.ErrUnsupportedOperation)
	require.NoError(t, v.Close(ctx, root, readEnd))
	require.NoError(t, v.Close(ctx, root, writeEnd))
}

func TestStandardStreams(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	require.NoError(t, v.MountStaticDevice(ctx, root, "/devices/null", device.NewNull()))
	require.NoError(t, v.CreateFile(ctx, root, data.MustPath("/out")))
	require.NoError(t, v.CreateFile(ctx, root, data.MustPath("/err")))

	standard, err := v.OpenStandard(ctx, taskA, data.MustPath("/devices/null"), data.MustPath("/out"), data.MustPath("/err"))
	require.NoError(t, err)
	assert.Equal(t, data.StandardInFileIdentifier, standard.In.File)
	assert.Equal(t, data.StandardOutFileIdentifier, standard.Out.File)
	assert.Equal(t, data.StandardErrorFileIdentifier, standard.Error.File)

	require.NoError(t, standard.Print(ctx, "hello %s\n", "world"))
	require.NoError(t, standard.PrintError(ctx, "oops"))

	line, err := standard.ReadLine(ctx)
	require.NoError(t, err)
	assert.Empty(t, line)

	child, err := standard.Duplicate(ctx, taskB)
	require.NoError(t, err)
	assert.Equal(t, data.StandardOutFileIdentifier, child.Out.File)
	_, err = io.WriteString(child.Stdout(ctx), "from child\n")
	require.NoError(t, err)

	require.NoError(t, standard.Close(ctx))
	require.NoError(t, child.Close(ctx))

	assert.Equal(t, "hello world\nfrom child\n", readFile(t, v, root, "/out"))
	assert.Equal(t, "oops", readFile(t, v, root, "/err"))
}

func TestFile(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	file, err := v.OpenFile(ctx, taskA, data.MustPath("/file"), data.NewFlags(data.ModeReadWrite, data.OpenCreate, data.StatusNone))
	require.NoError(t, err)

	_, err = file.WriteString("0123456789")
	require.NoError(t, err)

	offset, err := file.Seek(-4, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), offset)

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "6789", string(content))

	statistics, err := file.Statistics()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), statistics.Size)

	require.NoError(t, file.Close())
	assert.ErrorIs(t, file.Close(), data.ErrInvalidIdentifier)
}

func TestInvalidPaths(t *testing.T) {
	ctx := context.Background()
	v, _ := newVirtualFileSystem(t)

	_, err := v.Open(ctx, root, data.Path("relative"), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
	assert.ErrorIs(t, err, data.ErrInvalidPath)

	_, err = v.Open(ctx, root, data.MustPath("/missing"), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
	assert.ErrorIs(t, err, data.ErrNotFound)

	_, err = v.Read(ctx, root, data.NewUniqueFileIdentifier(200, 3), make([]byte, 1))
	assert.ErrorIs(t, err, data.ErrInvalidIdentifier)
}
