package builtin

import (
	"context"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/shell"
)

type DevicesCommand struct {
}

func (d *DevicesCommand) Name() string {
	return "devices"
}

func (d *DevicesCommand) Description() string {
	return "List the device nodes below a prefix"
}

func (d *DevicesCommand) Usage() string {
	return "devices [prefix]"
}

func (d *DevicesCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	prefix := data.Root
	switch len(args.Args) {
	case 0:
	case 1:
		path, err := env.Resolve(args.Args[0])
		if err != nil {
			return shell.ExitFailure, err
		}
		prefix = path
	default:
		return shell.ExitUsage, shell.ErrTooManyArguments
	}

	for _, entry := range env.VFS.GetDevices(prefix) {
		if err := env.Print(ctx, "%c %4d %s\n", entry.Type.Letter(), entry.Inode, entry.Path); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (d *DevicesCommand) GetFlags() *shell.FlagSet {
	return nil
}
