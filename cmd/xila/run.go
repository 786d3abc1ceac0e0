package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mwantia/xila/boot"
	"github.com/mwantia/xila/shell"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [command line]",
	Short: "Run the shell, or a single command line",
	Long: `Run the shell on the configured standard streams.

Examples:
  # Interactive shell on the console device
  xila run

  # Single pipeline, quoted so the host shell leaves the pipe alone
  xila run 'echo hello | tee /tmp/greeting'`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withSystem(ctx, func(s *boot.System) error {
			if len(args) == 0 {
				return s.Run(ctx)
			}

			code, err := s.Execute(ctx, strings.Join(args, " "))
			if code != shell.ExitSuccess {
				if err != nil {
					return fmt.Errorf("exited with %d: %w", code, err)
				}
				return fmt.Errorf("exited with %d", code)
			}
			return nil
		})
	},
}
