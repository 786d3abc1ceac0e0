package task

import "errors"

var (
	ErrInvalidTask      = errors.New("task: invalid task identifier")
	ErrInvalidSpawner   = errors.New("task: invalid spawner identifier")
	ErrNoSpawner        = errors.New("task: no spawner registered")
	ErrSpawnerBusy      = errors.New("task: spawner still hosts tasks")
	ErrVariableNotFound = errors.New("task: environment variable not found")
	ErrInvalidName      = errors.New("task: invalid environment variable name")
	ErrTooManyTasks     = errors.New("task: too many tasks")
	ErrShutdown         = errors.New("task: manager is shut down")
)
