package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type MkdirCommand struct {
}

func (m *MkdirCommand) Name() string {
	return "mkdir"
}

func (m *MkdirCommand) Description() string {
	return "Create directories"
}

func (m *MkdirCommand) Usage() string {
	return "mkdir [-p] path..."
}

func (m *MkdirCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	if len(args.Args) == 0 {
		return shell.ExitUsage, shell.ErrMissingArgument
	}

	for _, argument := range args.Args {
		path, err := env.Resolve(argument)
		if err != nil {
			return shell.ExitFailure, err
		}
		if err := env.VFS.CreateDirectory(ctx, env.Task, path, args.Bool("parents")); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (m *MkdirCommand) GetFlags() *shell.FlagSet {
	return shell.NewFlagSet(&shell.Flag{
		Name:        "parents",
		Short:       "p",
		Type:        shell.FlagBool,
		Description: "Create missing parents, existing directories are no error",
	})
}
