// Package users holds the users and groups collaborator consulted for
// permission checks, with an in-memory implementation.
package users

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/mwantia/xila/data"
)

var (
	ErrUnknownUser  = errors.New("users: unknown user")
	ErrUnknownGroup = errors.New("users: unknown group")
	ErrExists       = errors.New("users: identifier or name already used")
)

// Users answers the questions the virtual file system asks about callers.
type Users interface {
	// IsInGroup reports whether user is a member of group, either through
	// its primary group or an explicit membership.
	IsInGroup(user data.UserIdentifier, group data.GroupIdentifier) (bool, error)
	GetUserName(user data.UserIdentifier) (string, error)
	GetGroupName(group data.GroupIdentifier) (string, error)
	GetUserPrimaryGroup(user data.UserIdentifier) (data.GroupIdentifier, error)
}

var _ Users = (*Memory)(nil)

type User struct {
	Identifier data.UserIdentifier  `mapstructure:"id" json:"id"`
	Name       string               `mapstructure:"name" json:"name"`
	Group      data.GroupIdentifier `mapstructure:"group" json:"group"`
}

type Group struct {
	Identifier data.GroupIdentifier  `mapstructure:"id" json:"id"`
	Name       string                `mapstructure:"name" json:"name"`
	Members    []data.UserIdentifier `mapstructure:"members" json:"members"`
}

// Memory keeps users and groups in process memory. The root user and group
// always exist.
type Memory struct {
	mu     sync.RWMutex
	users  map[data.UserIdentifier]*User
	groups map[data.GroupIdentifier]*Group
}

func NewMemory() *Memory {
	m := &Memory{
		users:  make(map[data.UserIdentifier]*User),
		groups: make(map[data.GroupIdentifier]*Group),
	}

	m.groups[data.RootGroupIdentifier] = &Group{Identifier: data.RootGroupIdentifier, Name: "root"}
	m.users[data.RootUserIdentifier] = &User{Identifier: data.RootUserIdentifier, Name: "root", Group: data.RootGroupIdentifier}
	return m
}

func (m *Memory) AddGroup(group Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.groups[group.Identifier]; exists {
		return ErrExists
	}
	for _, existing := range m.groups {
		if existing.Name == group.Name {
			return ErrExists
		}
	}

	group.Members = slices.Clone(group.Members)
	m.groups[group.Identifier] = &group
	return nil
}

// AddUser registers user; its primary group must exist.
func (m *Memory) AddUser(user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Identifier]; exists {
		return ErrExists
	}
	for _, existing := range m.users {
		if existing.Name == user.Name {
			return ErrExists
		}
	}
	if _, exists := m.groups[user.Group]; !exists {
		return ErrUnknownGroup
	}

	m.users[user.Identifier] = &user
	return nil
}

func (m *Memory) AddMember(group data.GroupIdentifier, user data.UserIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, exists := m.groups[group]
	if !exists {
		return ErrUnknownGroup
	}
	if _, exists := m.users[user]; !exists {
		return ErrUnknownUser
	}

	if !slices.Contains(g.Members, user) {
		g.Members = append(g.Members, user)
	}
	return nil
}

func (m *Memory) IsInGroup(user data.UserIdentifier, group data.GroupIdentifier) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[user]
	if !exists {
		return false, ErrUnknownUser
	}
	if u.Group == group {
		return true, nil
	}

	g, exists := m.groups[group]
	if !exists {
		return false, nil
	}
	return slices.Contains(g.Members, user), nil
}

func (m *Memory) GetUserName(user data.UserIdentifier) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[user]
	if !exists {
		return "", ErrUnknownUser
	}
	return u.Name, nil
}

func (m *Memory) GetGroupName(group data.GroupIdentifier) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, exists := m.groups[group]
	if !exists {
		return "", ErrUnknownGroup
	}
	return g.Name, nil
}

func (m *Memory) GetUserPrimaryGroup(user data.UserIdentifier) (data.GroupIdentifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[user]
	if !exists {
		return 0, ErrUnknownUser
	}
	return u.Group, nil
}

// Users returns every user ordered by identifier.
func (m *Memory) Users() []User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]User, 0, len(m.users))
	for _, identifier := range slices.Sorted(maps.Keys(m.users)) {
		users = append(users, *m.users[identifier])
	}
	return users
}
