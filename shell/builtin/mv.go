package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type MvCommand struct {
}

func (m *MvCommand) Name() string {
	return "mv"
}

func (m *MvCommand) Description() string {
	return "Rename a file or directory inside one file system"
}

func (m *MvCommand) Usage() string {
	return "mv source destination"
}

func (m *MvCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	switch {
	case len(args.Args) < 2:
		return shell.ExitUsage, shell.ErrMissingArgument
	case len(args.Args) > 2:
		return shell.ExitUsage, shell.ErrTooManyArguments
	}

	source, err := env.Resolve(args.Args[0])
	if err != nil {
		return shell.ExitFailure, err
	}
	destination, err := env.Resolve(args.Args[1])
	if err != nil {
		return shell.ExitFailure, err
	}

	if err := env.VFS.Rename(ctx, env.Task, source, destination); err != nil {
		return shell.ExitFailure, err
	}
	return shell.ExitSuccess, nil
}

func (m *MvCommand) GetFlags() *shell.FlagSet {
	return nil
}
