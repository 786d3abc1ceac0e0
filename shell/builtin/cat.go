package builtin

import (
	"context"
	"io"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/shell"
)

type CatCommand struct {
}

func (c *CatCommand) Name() string {
	return "cat"
}

func (c *CatCommand) Description() string {
	return "Concatenate files, or the standard input, to the standard output"
}

func (c *CatCommand) Usage() string {
	return "cat [path...]"
}

func (c *CatCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	stdout := env.Standard.Stdout(ctx)

	if len(args.Args) == 0 {
		if _, err := io.Copy(stdout, env.Standard.Stdin(ctx)); err != nil {
			return shell.ExitFailure, err
		}
		return shell.ExitSuccess, nil
	}

	for _, argument := range args.Args {
		path, err := env.Resolve(argument)
		if err != nil {
			return shell.ExitFailure, err
		}

		file, err := env.VFS.OpenFile(ctx, env.Task, path, data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
		if err != nil {
			return shell.ExitFailure, err
		}

		_, err = io.Copy(stdout, file)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (c *CatCommand) GetFlags() *shell.FlagSet {
	return nil
}
