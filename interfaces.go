package vfs

import (
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/task"
)

// TaskManager is the part of the task manager the virtual file system relies
// on: the credentials of a caller and a hook to drain its slots on exit.
type TaskManager interface {
	GetUser(identifier data.TaskIdentifier) (data.UserIdentifier, error)
	GetGroup(identifier data.TaskIdentifier) (data.GroupIdentifier, error)
	OnTaskExit(hook task.ExitHook)
}

var _ TaskManager = (*task.Manager)(nil)
