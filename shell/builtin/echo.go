package builtin

import (
	"context"
	"strings"

	"github.com/mwantia/xila/shell"
)

type EchoCommand struct {
}

func (e *EchoCommand) Name() string {
	return "echo"
}

func (e *EchoCommand) Description() string {
	return "Write the arguments to the standard output"
}

func (e *EchoCommand) Usage() string {
	return "echo [-n] [text...]"
}

func (e *EchoCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	text := strings.Join(args.Args, " ")
	if !args.Bool("no-newline") {
		text += "\n"
	}

	if err := env.Print(ctx, "%s", text); err != nil {
		return shell.ExitFailure, err
	}
	return shell.ExitSuccess, nil
}

func (e *EchoCommand) GetFlags() *shell.FlagSet {
	return shell.NewFlagSet(&shell.Flag{
		Name:        "no-newline",
		Short:       "n",
		Type:        shell.FlagBool,
		Description: "Do not output the trailing newline",
	})
}
