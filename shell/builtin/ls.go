package builtin

import (
	"context"
	"slices"
	"strings"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/shell"
)

type LsCommand struct {
}

// Name returns the command identifier
func (ls *LsCommand) Name() string {
	return "ls"
}

// Description returns human-readable help text
func (ls *LsCommand) Description() string {
	return "List directory contents"
}

// Usage returns a usage string for help (e.g. "ls -l [path]")
func (ls *LsCommand) Usage() string {
	return "ls [-l] [path...]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (ls *LsCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	targets := args.Args
	if len(targets) == 0 {
		targets = []string{"."}
	}

	long := args.Bool("long")
	for i, target := range targets {
		path, err := env.Resolve(target)
		if err != nil {
			return shell.ExitFailure, err
		}

		if len(targets) > 1 {
			if i > 0 {
				if err := env.Print(ctx, "\n"); err != nil {
					return shell.ExitFailure, err
				}
			}
			if err := env.Print(ctx, "%s:\n", path); err != nil {
				return shell.ExitFailure, err
			}
		}

		if err := ls.list(ctx, env, path, long); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (ls *LsCommand) list(ctx context.Context, env *shell.Environment, path data.Path, long bool) error {
	kind, err := env.VFS.GetType(ctx, path)
	if err != nil {
		return err
	}
	if kind != data.FileTypeDirectory {
		return ls.print(ctx, env, path, path.String(), long)
	}

	entries, err := env.VFS.ReadDirectoryEntries(ctx, env.Task, path)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	slices.Sort(names)

	for _, name := range names {
		child, err := path.Join(name)
		if err != nil {
			return err
		}
		if err := ls.print(ctx, env, child, name, long); err != nil {
			return err
		}
	}
	return nil
}

func (ls *LsCommand) print(ctx context.Context, env *shell.Environment, path data.Path, name string, long bool) error {
	if !long {
		return env.Print(ctx, "%s\n", name)
	}

	statistics, err := env.VFS.GetStatisticsFromPath(ctx, path)
	if err != nil {
		return err
	}

	var line strings.Builder
	line.WriteByte(statistics.Type.Letter())
	line.WriteString(statistics.Permissions.String())
	return env.Print(ctx, "%s %4d %4d %8d %s\n", line.String(), statistics.User, statistics.Group, statistics.Size, name)
}

// GetFlags returns the flag set for this command (this is optional)
func (ls *LsCommand) GetFlags() *shell.FlagSet {
	return shell.NewFlagSet(&shell.Flag{
		Name:        "long",
		Short:       "l",
		Type:        shell.FlagBool,
		Description: "Use a long listing format",
	})
}
