package builtin

import (
	"context"

	"github.com/mwantia/xila/shell"
)

type PsCommand struct {
}

func (p *PsCommand) Name() string {
	return "ps"
}

func (p *PsCommand) Description() string {
	return "List the running tasks"
}

func (p *PsCommand) Usage() string {
	return "ps"
}

func (p *PsCommand) Execute(ctx context.Context, env *shell.Environment, args *shell.Arguments) (int, error) {
	if err := env.Print(ctx, "%5s %5s %5s %5s %s\n", "TASK", "PARENT", "USER", "GROUP", "NAME"); err != nil {
		return shell.ExitFailure, err
	}

	for _, info := range env.Tasks.ListTasks() {
		if err := env.Print(ctx, "%5d %5d %5d %5d %s\n", info.Identifier, info.Parent, info.User, info.Group, info.Name); err != nil {
			return shell.ExitFailure, err
		}
	}
	return shell.ExitSuccess, nil
}

func (p *PsCommand) GetFlags() *shell.FlagSet {
	return nil
}
