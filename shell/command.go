package shell

import (
	"context"
	"errors"
	"strings"

	vfs "github.com/mwantia/xila"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/task"
)

// Command represents an executable command run by the shell.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "ls -l [path]")
	Usage() string

	// Execute runs the command with parsed arguments inside its own task.
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, env *Environment, args *Arguments) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *FlagSet
}

// WorkingDirectoryVariable names the environment variable relative paths
// are resolved against.
const WorkingDirectoryVariable = "PWD"

// Environment is what a running command sees: its task, the streams placed
// at its standard slots, and the services of the shell.
type Environment struct {
	Shell    *Shell
	VFS      *vfs.VirtualFileSystem
	Tasks    *task.Manager
	Task     data.TaskIdentifier
	Standard *vfs.Standard
}

// Resolve turns a command argument into an absolute path. Relative
// arguments are taken from the working directory of the task.
func (e *Environment) Resolve(argument string) (data.Path, error) {
	if strings.HasPrefix(argument, data.Separator) {
		path, err := data.NewPath(argument)
		if err != nil {
			return "", err
		}
		return path.Canonicalize(), nil
	}

	directory, err := e.Tasks.GetEnvironmentVariable(e.Task, WorkingDirectoryVariable)
	switch {
	case errors.Is(err, task.ErrVariableNotFound):
		directory = data.Separator
	case err != nil:
		return "", data.ErrFailedToGetTaskInformations
	}

	path, err := data.NewPath(directory)
	if err != nil {
		return "", err
	}
	if path, err = path.Join(argument); err != nil {
		return "", err
	}
	return path.Canonicalize(), nil
}

func (e *Environment) Print(ctx context.Context, format string, args ...any) error {
	return e.Standard.Print(ctx, format, args...)
}

func (e *Environment) PrintError(ctx context.Context, format string, args ...any) error {
	return e.Standard.PrintError(ctx, format, args...)
}
