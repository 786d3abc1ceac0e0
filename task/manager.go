// Package task implements the task manager: task records with credentials,
// environment and signal queues, hosted on spawners that run task bodies as
// goroutines.
package task

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
)

// Body is the code a task runs. ctx carries the task identifier and is
// cancelled on kill or manager shutdown.
type Body func(ctx context.Context) error

// ExitHook runs after a task body returned, before the record is dropped.
type ExitHook func(ctx context.Context, identifier data.TaskIdentifier) error

type Manager struct {
	mu      sync.RWMutex
	log     *log.Logger
	options *Options

	ctx    context.Context
	cancel context.CancelFunc

	tasks    map[data.TaskIdentifier]*Task
	spawners map[SpawnerIdentifier]*spawner
	hooks    []ExitHook
	closed   bool
}

// New creates the manager together with the root task.
func New(opts ...Option) (*Manager, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		log:      options.Logger,
		options:  options,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(map[data.TaskIdentifier]*Task),
		spawners: make(map[SpawnerIdentifier]*spawner),
	}

	environment := make(map[string]string, len(options.RootEnvironment))
	maps.Copy(environment, options.RootEnvironment)

	m.tasks[data.RootTaskIdentifier] = &Task{
		identifier:  data.RootTaskIdentifier,
		parent:      data.RootTaskIdentifier,
		name:        options.RootName,
		user:        options.RootUser,
		group:       options.RootGroup,
		environment: environment,
		spawner:     NoSpawner,
	}

	for range options.Spawners {
		if _, err := m.registerSpawnerUnsafe(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// OnTaskExit registers a hook run for every exiting task, in registration
// order.
func (m *Manager) OnTaskExit(hook ExitHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook)
}

// JoinHandle waits for a spawned task.
type JoinHandle struct {
	identifier data.TaskIdentifier
	done       chan struct{}
	err        error
}

func (h *JoinHandle) Task() data.TaskIdentifier {
	return h.identifier
}

// Done is closed once the task body returned and exit hooks ran.
func (h *JoinHandle) Done() <-chan struct{} {
	return h.done
}

// Join blocks until the task finished and returns the error of its body.
func (h *JoinHandle) Join(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn starts body as a child of parent. The child inherits the credentials
// and a copy of the environment of its parent. With a nil spawner the least
// loaded one is picked.
func (m *Manager) Spawn(parent data.TaskIdentifier, name string, spawnerIdentifier *SpawnerIdentifier, body Body) (*JoinHandle, data.TaskIdentifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, 0, ErrShutdown
	}

	p, err := m.getTaskUnsafe(parent)
	if err != nil {
		return nil, 0, err
	}

	var host *spawner
	if spawnerIdentifier != nil {
		var exists bool
		if host, exists = m.spawners[*spawnerIdentifier]; !exists {
			return nil, 0, ErrInvalidSpawner
		}
	} else if host, err = m.leastLoadedUnsafe(); err != nil {
		return nil, 0, err
	}

	identifier, err := m.newIdentifierUnsafe()
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithCancel(WithTask(m.ctx, identifier))
	m.tasks[identifier] = &Task{
		identifier:  identifier,
		parent:      parent,
		name:        name,
		user:        p.user,
		group:       p.group,
		environment: maps.Clone(p.environment),
		spawner:     host.identifier,
		cancel:      cancel,
	}

	handle := &JoinHandle{
		identifier: identifier,
		done:       make(chan struct{}),
	}

	host.spawn(func() {
		defer close(handle.done)

		handle.err = run(ctx, body)
		cancel()
		m.exit(ctx, identifier)
	})

	m.log.Debug("spawned task %d '%s' on spawner %d", identifier, name, host.identifier)
	return handle, identifier, nil
}

func run(ctx context.Context, body Body) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("task: panic: %v", recovered)
		}
	}()
	return body(ctx)
}

func (m *Manager) newIdentifierUnsafe() (data.TaskIdentifier, error) {
	for candidate := data.MinimumTaskIdentifier; candidate < data.MaximumTaskIdentifier; candidate++ {
		if _, used := m.tasks[candidate]; !used {
			return candidate, nil
		}
	}
	return 0, ErrTooManyTasks
}

// exit runs the exit hooks, re-parents orphans to the root task and drops
// the record.
func (m *Manager) exit(ctx context.Context, identifier data.TaskIdentifier) {
	m.mu.RLock()
	hooks := append([]ExitHook(nil), m.hooks...)
	m.mu.RUnlock()

	teardown := context.WithoutCancel(ctx)
	for _, hook := range hooks {
		if err := hook(teardown, identifier); err != nil {
			m.log.Warn("exit hook failed for task %d: %v", identifier, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.tasks[identifier]
	if !exists {
		return
	}

	for _, child := range m.tasks {
		if child.parent == identifier {
			child.parent = data.RootTaskIdentifier
		}
	}
	delete(m.tasks, identifier)

	if parent, exists := m.tasks[t.parent]; exists {
		parent.signals = append(parent.signals, SignalChildExited)
	}

	m.log.Debug("task %d '%s' exited", identifier, t.name)
}

// Sleep suspends the calling task for duration or until ctx is done.
func Sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every running task and waits for all spawners to drain.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrShutdown
	}
	m.closed = true
	m.cancel()

	spawners := make([]*spawner, 0, len(m.spawners))
	for _, s := range m.spawners {
		spawners = append(spawners, s)
	}
	m.mu.Unlock()

	errs := data.Errors{}
	for _, s := range spawners {
		errs.Add(s.wait(ctx))
	}
	return errs.First()
}
