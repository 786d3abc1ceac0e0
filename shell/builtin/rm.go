package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type RmCommand struct {
}

func (r *RmCommand) Name() string {
	return "rm"
}

func (r *RmCommand) Description() string {
	return "Remove files and directories"
}

func (r *RmCommand) Usage() string {
	return "rm [-r] path..."
}

func (r *RmCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	if len(args.Args) == 0 {
		return shell.ExitUsage, shell.ErrMissingArgument
	}

	for _, argument := range args.Args {
		path, err := env.Resolve(argument)
		if err != nil {
			return shell.ExitFailure, err
		}
		if err := env.VFS.Delete(ctx, env.Task, path, args.Bool("recursive")); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (r *RmCommand) GetFlags() *shell.FlagSet {
	return shell.NewFlagSet(&shell.Flag{
		Name:        "recursive",
		Short:       "r",
		Type:        shell.FlagBool,
		Description: "Remove directories and their contents",
	})
}
