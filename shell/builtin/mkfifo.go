package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type MkfifoCommand struct {
}

func (m *MkfifoCommand) Name() string {
	return "mkfifo"
}

func (m *MkfifoCommand) Description() string {
	return "Create named pipes"
}

func (m *MkfifoCommand) Usage() string {
	return "mkfifo [-s size] path..."
}

func (m *MkfifoCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	if len(args.Args) == 0 {
		return shell.ExitUsage, shell.ErrMissingArgument
	}

	for _, argument := range args.Args {
		path, err := env.Resolve(argument)
		if err != nil {
			return shell.ExitFailure, err
		}
		if err := env.VFS.CreateNamedPipe(ctx, env.Task, path, int(args.Int("size"))); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (m *MkfifoCommand) GetFlags() *shell.FlagSet {
	return shell.NewFlagSet(&shell.Flag{
		Name:        "size",
		Short:       "s",
		Type:        shell.FlagInt,
		Default:     int64(0),
		Description: "Capacity of the pipe, zero for the default",
	})
}
