package task

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/mwantia/xila/data"
)

// Task is the record the manager keeps for every live task.
type Task struct {
	identifier data.TaskIdentifier
	parent     data.TaskIdentifier
	name       string

	user        data.UserIdentifier
	group       data.GroupIdentifier
	environment map[string]string

	signals []Signal
	spawner SpawnerIdentifier
	cancel  context.CancelFunc
}

// Info is a snapshot of a task record.
type Info struct {
	Identifier data.TaskIdentifier  `json:"identifier"`
	Parent     data.TaskIdentifier  `json:"parent"`
	Name       string               `json:"name"`
	User       data.UserIdentifier  `json:"user"`
	Group      data.GroupIdentifier `json:"group"`
	Spawner    SpawnerIdentifier    `json:"spawner"`
	Signals    int                  `json:"signals"`
}

func (t *Task) info() Info {
	return Info{
		Identifier: t.identifier,
		Parent:     t.parent,
		Name:       t.name,
		User:       t.user,
		Group:      t.group,
		Spawner:    t.spawner,
		Signals:    len(t.signals),
	}
}

func isValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "=\x00")
}

func (m *Manager) getTaskUnsafe(identifier data.TaskIdentifier) (*Task, error) {
	t, exists := m.tasks[identifier]
	if !exists {
		return nil, ErrInvalidTask
	}
	return t, nil
}

func (m *Manager) GetTask(identifier data.TaskIdentifier) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return Info{}, err
	}
	return t.info(), nil
}

// ListTasks returns every live task ordered by identifier.
func (m *Manager) ListTasks() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.tasks))
	for _, identifier := range slices.Sorted(maps.Keys(m.tasks)) {
		infos = append(infos, m.tasks[identifier].info())
	}
	return infos
}

func (m *Manager) GetName(identifier data.TaskIdentifier) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return "", err
	}
	return t.name, nil
}

func (m *Manager) GetUser(identifier data.TaskIdentifier) (data.UserIdentifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return 0, err
	}
	return t.user, nil
}

func (m *Manager) SetUser(identifier data.TaskIdentifier, user data.UserIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return err
	}
	t.user = user
	return nil
}

func (m *Manager) GetGroup(identifier data.TaskIdentifier) (data.GroupIdentifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return 0, err
	}
	return t.group, nil
}

func (m *Manager) SetGroup(identifier data.TaskIdentifier, group data.GroupIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return err
	}
	t.group = group
	return nil
}

// GetParent returns the parent of a task; the root task is its own parent.
func (m *Manager) GetParent(identifier data.TaskIdentifier) (data.TaskIdentifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return 0, err
	}
	return t.parent, nil
}

// GetChildren returns the direct children of a task ordered by identifier.
func (m *Manager) GetChildren(identifier data.TaskIdentifier) ([]data.TaskIdentifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.getTaskUnsafe(identifier); err != nil {
		return nil, err
	}

	children := make([]data.TaskIdentifier, 0)
	for candidate, t := range m.tasks {
		if t.parent == identifier && candidate != identifier {
			children = append(children, candidate)
		}
	}
	slices.Sort(children)
	return children, nil
}

func (m *Manager) SetEnvironmentVariable(identifier data.TaskIdentifier, name, value string) error {
	if !isValidName(name) {
		return ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return err
	}
	t.environment[name] = value
	return nil
}

func (m *Manager) GetEnvironmentVariable(identifier data.TaskIdentifier, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return "", err
	}

	value, exists := t.environment[name]
	if !exists {
		return "", ErrVariableNotFound
	}
	return value, nil
}

func (m *Manager) RemoveEnvironmentVariable(identifier data.TaskIdentifier, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return err
	}
	if _, exists := t.environment[name]; !exists {
		return ErrVariableNotFound
	}

	delete(t.environment, name)
	return nil
}

// GetEnvironmentVariables returns a copy of the whole environment.
func (m *Manager) GetEnvironmentVariables(identifier data.TaskIdentifier) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.getTaskUnsafe(identifier)
	if err != nil {
		return nil, err
	}
	return maps.Clone(t.environment), nil
}
