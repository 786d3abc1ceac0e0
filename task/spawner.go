package task

import (
	"context"
	"sync/atomic"

	"github.com/mwantia/xila/data"
	"golang.org/x/sync/errgroup"
)

type SpawnerIdentifier uint16

// NoSpawner is reported for the root task, which runs on the caller of New.
const NoSpawner SpawnerIdentifier = 0

// spawner hosts task bodies in an errgroup. Bodies never report their error
// to the group, so one failing task does not affect its siblings.
type spawner struct {
	identifier SpawnerIdentifier
	group      errgroup.Group
	load       atomic.Int64
}

func (s *spawner) spawn(body func()) {
	s.load.Add(1)
	s.group.Go(func() error {
		defer s.load.Add(-1)
		body()
		return nil
	})
}

// wait blocks until every hosted task returned or ctx is done.
func (s *spawner) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) RegisterSpawner() (SpawnerIdentifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NoSpawner, ErrShutdown
	}
	return m.registerSpawnerUnsafe()
}

func (m *Manager) registerSpawnerUnsafe() (SpawnerIdentifier, error) {
	for candidate := NoSpawner + 1; candidate != NoSpawner; candidate++ {
		if _, used := m.spawners[candidate]; !used {
			m.spawners[candidate] = &spawner{identifier: candidate}
			m.log.Debug("registered spawner %d", candidate)
			return candidate, nil
		}
	}
	return NoSpawner, ErrInvalidSpawner
}

// UnregisterSpawner fails while the spawner still hosts running tasks.
func (m *Manager) UnregisterSpawner(identifier SpawnerIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.spawners[identifier]
	if !exists {
		return ErrInvalidSpawner
	}
	if s.load.Load() > 0 {
		return ErrSpawnerBusy
	}

	delete(m.spawners, identifier)
	m.log.Debug("unregistered spawner %d", identifier)
	return nil
}

// GetSpawner returns the spawner hosting task.
func (m *Manager) GetSpawner(identifier data.TaskIdentifier) (SpawnerIdentifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return NoSpawner, err
	}
	return t.spawner, nil
}

// Spawners lists the registered spawner identifiers with their load.
func (m *Manager) Spawners() map[SpawnerIdentifier]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loads := make(map[SpawnerIdentifier]int, len(m.spawners))
	for identifier, s := range m.spawners {
		loads[identifier] = int(s.load.Load())
	}
	return loads
}

// leastLoadedUnsafe picks the spawner with the fewest running tasks, the
// smallest identifier winning ties.
func (m *Manager) leastLoadedUnsafe() (*spawner, error) {
	var selected *spawner
	for _, candidate := range m.spawners {
		if selected == nil {
			selected = candidate
			continue
		}

		load, best := candidate.load.Load(), selected.load.Load()
		if load < best || (load == best && candidate.identifier < selected.identifier) {
			selected = candidate
		}
	}

	if selected == nil {
		return nil, ErrNoSpawner
	}
	return selected, nil
}
