package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type StatCommand struct {
}

func (s *StatCommand) Name() string {
	return "stat"
}

func (s *StatCommand) Description() string {
	return "Display the statistics of a path"
}

func (s *StatCommand) Usage() string {
	return "stat path..."
}

func (s *StatCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	if len(args.Args) == 0 {
		return shell.ExitUsage, shell.ErrMissingArgument
	}

	for _, argument := range args.Args {
		path, err := env.Resolve(argument)
		if err != nil {
			return shell.ExitFailure, err
		}

		statistics, err := env.VFS.GetStatisticsFromPath(ctx, path)
		if err != nil {
			return shell.ExitFailure, err
		}

		err = env.Print(ctx, "  Path: %s\n  Type: %s\n  Size: %d\n FS/Inode: %d/%d\n Links: %d\nAccess: %s (%d/%d)\nModify: %d\nChange: %d\n",
			path,
			statistics.Type,
			statistics.Size,
			statistics.FileSystem, statistics.Inode,
			statistics.Links,
			statistics.Permissions, statistics.User, statistics.Group,
			statistics.ModificationTime.Seconds(),
			statistics.ChangeTime.Seconds(),
		)
		if err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (s *StatCommand) GetFlags() *shell.FlagSet {
	return nil
}
