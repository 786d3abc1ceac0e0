// Package builtin holds the commands every shell registers.
package builtin

import (
	"github.com/mwantia/xila/shell"
)

// All returns a fresh instance of every builtin command.
func All() []shell.Command {
	return []shell.Command{
		&CatCommand{},
		&DevicesCommand{},
		&EchoCommand{},
		&HelpCommand{},
		&LsCommand{},
		&MkdirCommand{},
		&MkfifoCommand{},
		&MountsCommand{},
		&MvCommand{},
		&PsCommand{},
		&RmCommand{},
		&StatCommand{},
		&TeeCommand{},
	}
}

// Register adds every builtin command to sh.
func Register(sh *shell.Shell) error {
	for _, cmd := range All() {
		if err := sh.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}
