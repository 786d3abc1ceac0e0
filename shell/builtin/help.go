package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type HelpCommand struct {
}

func (h *HelpCommand) Name() string {
	return "help"
}

func (h *HelpCommand) Description() string {
	return "List the registered commands"
}

func (h *HelpCommand) Usage() string {
	return "help [command]"
}

func (h *HelpCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	if len(args.Args) > 0 {
		cmd, err := env.Shell.Get(args.Args[0])
		if err != nil {
			return shell.ExitFailure, err
		}

		if err := env.Print(ctx, "%s\n\nusage: %s\n", cmd.Description(), cmd.Usage()); err != nil {
			return shell.ExitFailure, err
		}
		if flags := cmd.GetFlags(); flags != nil {
			for _, flag := range flags.Flags {
				if err := env.Print(ctx, "  -%s, --%-12s %s\n", flag.Short, flag.Name, flag.Description); err != nil {
					return shell.ExitFailure, err
				}
			}
		}
		return shell.ExitSuccess, nil
	}

	for _, cmd := range env.Shell.List() {
		if err := env.Print(ctx, "%-8s %s\n", cmd.Name(), cmd.Description()); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (h *HelpCommand) GetFlags() *shell.FlagSet {
	return nil
}
