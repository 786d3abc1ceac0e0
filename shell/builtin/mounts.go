package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type MountsCommand struct {
}

func (m *MountsCommand) Name() string {
	return "mounts"
}

func (m *MountsCommand) Description() string {
	return "List the mounted file systems"
}

func (m *MountsCommand) Usage() string {
	return "mounts"
}

func (m *MountsCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	for _, info := range env.VFS.Mounts() {
		path := info.Path.String()
		if path == "" {
			path = "-"
		}

		if err := env.Print(ctx, "%3d %-24s %4d\n", info.Identifier, path, info.OpenCount); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (m *MountsCommand) GetFlags() *shell.FlagSet {
	return nil
}
