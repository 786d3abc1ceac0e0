package task_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, opts ...task.Option) *task.Manager {
	t.Helper()

	m, err := task.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func TestRootTask(t *testing.T) {
	m := newManager(t, task.WithRootCredentials(3, 4))

	parent, err := m.GetParent(data.RootTaskIdentifier)
	require.NoError(t, err)
	assert.Equal(t, data.RootTaskIdentifier, parent)

	user, err := m.GetUser(data.RootTaskIdentifier)
	require.NoError(t, err)
	assert.Equal(t, data.UserIdentifier(3), user)

	spawner, err := m.GetSpawner(data.RootTaskIdentifier)
	require.NoError(t, err)
	assert.Equal(t, task.NoSpawner, spawner)

	_, err = m.GetUser(99)
	assert.ErrorIs(t, err, task.ErrInvalidTask)
}

func TestSpawnInherits(t *testing.T) {
	m := newManager(t, task.WithRootEnvironment(map[string]string{"PATH": "/bin"}))
	require.NoError(t, m.SetGroup(data.RootTaskIdentifier, 9))

	release := make(chan struct{})
	handle, identifier, err := m.Spawn(data.RootTaskIdentifier, "child", nil, func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, data.MinimumTaskIdentifier, identifier)
	assert.Equal(t, identifier, handle.Task())

	group, err := m.GetGroup(identifier)
	require.NoError(t, err)
	assert.Equal(t, data.GroupIdentifier(9), group)

	value, err := m.GetEnvironmentVariable(identifier, "PATH")
	require.NoError(t, err)
	assert.Equal(t, "/bin", value)

	// the child owns a copy
	require.NoError(t, m.SetEnvironmentVariable(identifier, "PATH", "/usr/bin"))
	value, err = m.GetEnvironmentVariable(data.RootTaskIdentifier, "PATH")
	require.NoError(t, err)
	assert.Equal(t, "/bin", value)

	children, err := m.GetChildren(data.RootTaskIdentifier)
	require.NoError(t, err)
	assert.Equal(t, []data.TaskIdentifier{identifier}, children)

	name, err := m.GetName(identifier)
	require.NoError(t, err)
	assert.Equal(t, "child", name)

	close(release)
	require.NoError(t, handle.Join(context.Background()))

	_, err = m.GetName(identifier)
	assert.ErrorIs(t, err, task.ErrInvalidTask)

	signal, ok, err := m.PopSignal(data.RootTaskIdentifier)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, task.SignalChildExited, signal)
}

func TestJoinReturnsBodyError(t *testing.T) {
	m := newManager(t)
	failure := errors.New("failure")

	handle, _, err := m.Spawn(data.RootTaskIdentifier, "failing", nil, func(ctx context.Context) error {
		return failure
	})
	require.NoError(t, err)
	assert.ErrorIs(t, handle.Join(context.Background()), failure)

	handle, _, err = m.Spawn(data.RootTaskIdentifier, "panicking", nil, func(ctx context.Context) error {
		panic("boom")
	})
	require.NoError(t, err)
	assert.ErrorContains(t, handle.Join(context.Background()), "boom")
}

func TestContextCarriesTask(t *testing.T) {
	m := newManager(t)

	var seen data.TaskIdentifier
	handle, identifier, err := m.Spawn(data.RootTaskIdentifier, "probe", nil, func(ctx context.Context) error {
		seen = task.Current(ctx)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, handle.Join(context.Background()))
	assert.Equal(t, identifier, seen)

	assert.Equal(t, data.RootTaskIdentifier, task.Current(context.Background()))
}

func TestEnvironment(t *testing.T) {
	m := newManager(t)
	root := data.RootTaskIdentifier

	assert.ErrorIs(t, m.SetEnvironmentVariable(root, "A=B", "x"), task.ErrInvalidName)
	assert.ErrorIs(t, m.SetEnvironmentVariable(root, "", "x"), task.ErrInvalidName)

	require.NoError(t, m.SetEnvironmentVariable(root, "HOME", "/home"))
	require.NoError(t, m.SetEnvironmentVariable(root, "HOME", "/root"))

	environment, err := m.GetEnvironmentVariables(root)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"HOME": "/root"}, environment)

	require.NoError(t, m.RemoveEnvironmentVariable(root, "HOME"))
	assert.ErrorIs(t, m.RemoveEnvironmentVariable(root, "HOME"), task.ErrVariableNotFound)

	_, err = m.GetEnvironmentVariable(root, "HOME")
	assert.ErrorIs(t, err, task.ErrVariableNotFound)
}

func TestEmptyRootEnvironment(t *testing.T) {
	m := newManager(t, task.WithRootEnvironment(nil))
	root := data.RootTaskIdentifier

	require.NoError(t, m.SetEnvironmentVariable(root, "HOME", "/"))

	source := map[string]string{"PATH": "/bin"}
	shared := newManager(t, task.WithRootEnvironment(source))
	source["PATH"] = "/sbin"

	value, err := shared.GetEnvironmentVariable(root, "PATH")
	require.NoError(t, err)
	assert.Equal(t, "/bin", value)

	release := make(chan struct{})
	handle, identifier, err := m.Spawn(root, "child", nil, func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, m.SetEnvironmentVariable(identifier, "USER", "guest"))
	value, err = m.GetEnvironmentVariable(identifier, "HOME")
	require.NoError(t, err)
	assert.Equal(t, "/", value)

	close(release)
	require.NoError(t, handle.Join(context.Background()))
}

func TestSignalQueue(t *testing.T) {
	m := newManager(t)
	root := data.RootTaskIdentifier

	_, ok, err := m.PeekSignal(root)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SendSignal(root, task.SignalHangup))
	require.NoError(t, m.SendSignal(root, task.SignalUser1))
	assert.ErrorIs(t, m.SendSignal(root, task.Signal(0)), data.ErrInvalidParameter)

	signal, ok, err := m.PeekSignal(root)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, task.SignalHangup, signal)

	for _, expected := range []task.Signal{task.SignalHangup, task.SignalUser1} {
		signal, ok, err := m.PopSignal(root)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, expected, signal)
	}

	_, ok, err = m.PopSignal(root)
	require.NoError(t, err)
	assert.False(t, ok)

	parsed, ok := task.ParseSignal("kill")
	assert.True(t, ok)
	assert.Equal(t, task.SignalKill, parsed)
	assert.Equal(t, "kill", parsed.String())
}

func TestKillCancelsBody(t *testing.T) {
	m := newManager(t)

	started := make(chan struct{})
	handle, identifier, err := m.Spawn(data.RootTaskIdentifier, "sleeper", nil, func(ctx context.Context) error {
		close(started)
		return task.Sleep(ctx, time.Hour)
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, m.SendSignal(identifier, task.SignalKill))
	assert.ErrorIs(t, handle.Join(context.Background()), context.Canceled)
}

func TestExitHook(t *testing.T) {
	m := newManager(t)

	var mu sync.Mutex
	exited := make([]data.TaskIdentifier, 0)
	m.OnTaskExit(func(ctx context.Context, identifier data.TaskIdentifier) error {
		mu.Lock()
		defer mu.Unlock()

		assert.NoError(t, ctx.Err())
		exited = append(exited, identifier)
		return nil
	})

	handle, identifier, err := m.Spawn(data.RootTaskIdentifier, "short", nil, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, handle.Join(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []data.TaskIdentifier{identifier}, exited)
}

func TestOrphansMoveToRoot(t *testing.T) {
	m := newManager(t)

	release := make(chan struct{})
	var grandchild data.TaskIdentifier

	parent, parentIdentifier, err := m.Spawn(data.RootTaskIdentifier, "parent", nil, func(ctx context.Context) error {
		_, identifier, err := m.Spawn(task.Current(ctx), "grandchild", nil, func(ctx context.Context) error {
			<-release
			return nil
		})
		grandchild = identifier
		return err
	})
	require.NoError(t, err)
	require.NoError(t, parent.Join(context.Background()))

	identifier, err := m.GetParent(grandchild)
	require.NoError(t, err)
	assert.Equal(t, data.RootTaskIdentifier, identifier)
	assert.NotEqual(t, parentIdentifier, identifier)

	close(release)
}

func TestSpawners(t *testing.T) {
	m := newManager(t, task.WithSpawners(0))

	_, _, err := m.Spawn(data.RootTaskIdentifier, "nowhere", nil, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, task.ErrNoSpawner)

	first, err := m.RegisterSpawner()
	require.NoError(t, err)
	second, err := m.RegisterSpawner()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	release := make(chan struct{})
	blocked := func(ctx context.Context) error {
		<-release
		return nil
	}

	handle, identifier, err := m.Spawn(data.RootTaskIdentifier, "pinned", &first, blocked)
	require.NoError(t, err)
	spawner, err := m.GetSpawner(identifier)
	require.NoError(t, err)
	assert.Equal(t, first, spawner)

	// least loaded is now the second one
	other, otherIdentifier, err := m.Spawn(data.RootTaskIdentifier, "balanced", nil, blocked)
	require.NoError(t, err)
	spawner, err = m.GetSpawner(otherIdentifier)
	require.NoError(t, err)
	assert.Equal(t, second, spawner)

	assert.Equal(t, map[task.SpawnerIdentifier]int{first: 1, second: 1}, m.Spawners())
	assert.ErrorIs(t, m.UnregisterSpawner(first), task.ErrSpawnerBusy)

	missing := task.SpawnerIdentifier(42)
	_, _, err = m.Spawn(data.RootTaskIdentifier, "missing", &missing, blocked)
	assert.ErrorIs(t, err, task.ErrInvalidSpawner)
	assert.ErrorIs(t, m.UnregisterSpawner(missing), task.ErrInvalidSpawner)

	close(release)
	require.NoError(t, handle.Join(context.Background()))
	require.NoError(t, other.Join(context.Background()))

	require.Eventually(t, func() bool {
		return m.UnregisterSpawner(first) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	m, err := task.New()
	require.NoError(t, err)

	handle, _, err := m.Spawn(data.RootTaskIdentifier, "sleeper", nil, func(ctx context.Context) error {
		return task.Sleep(ctx, time.Hour)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, m.Shutdown(ctx))
	assert.ErrorIs(t, handle.Join(ctx), context.Canceled)

	_, _, err = m.Spawn(data.RootTaskIdentifier, "late", nil, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, task.ErrShutdown)
	assert.ErrorIs(t, m.Shutdown(ctx), task.ErrShutdown)
}
