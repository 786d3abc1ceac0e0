package builtin

import (
	"context"
	"io"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/shell"
)

type TeeCommand struct {
}

func (t *TeeCommand) Name() string {
	return "tee"
}

func (t *TeeCommand) Description() string {
	return "Copy the standard input to files and to the standard output"
}

func (t *TeeCommand) Usage() string {
	return "tee [-a] path..."
}

func (t *TeeCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	status := data.StatusNone
	open := data.NewOpen(true, false, true)
	if args.Bool("append") {
		status = data.StatusAppend
		open = data.NewOpen(true, false, false)
	}

	writers := []io.Writer{env.Standard.Stdout(ctx)}
	closers := make([]io.Closer, 0, len(args.Args))
	defer func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}()

	for _, argument := range args.Args {
		path, err := env.Resolve(argument)
		if err != nil {
			return shell.ExitFailure, err
		}

		file, err := env.VFS.OpenFile(ctx, env.Task, path, data.NewFlags(data.ModeWrite, open, status))
		if err != nil {
			return shell.ExitFailure, err
		}
		writers = append(writers, file)
		closers = append(closers, file)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), env.Standard.Stdin(ctx)); err != nil {
		return shell.ExitFailure, err
	}
	return shell.ExitSuccess, nil
}

func (t *TeeCommand) GetFlags() *shell.FlagSet {
	return shell.NewFlagSet(&shell.Flag{
		Name:        "append",
		Short:       "a",
		Type:        shell.FlagBool,
		Description: "Append to the files instead of truncating them",
	})
}
