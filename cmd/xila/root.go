package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mwantia/xila/boot"
	"github.com/mwantia/xila/config"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=..." on release builds.
var version = "0.1.0-dev"

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "xila",
	Short: "Virtual file system with devices, pipes and a shell",
	Long: `xila mounts the configured file systems and devices into a single
virtual tree and runs a small shell on top of it.

Without a --config flag, xila.yaml is looked up in the working directory,
$HOME/.xila and /etc/xila. Every setting can be overridden with an
XILA_ prefixed environment variable, e.g. XILA_LOG_LEVEL=debug.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(runCmd, mountsCmd, devicesCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// withSystem boots the configured system, hands it to fn and shuts it down
// again, whatever fn returns.
func withSystem(ctx context.Context, fn func(*boot.System) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	system, err := boot.Start(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if shutdownErr := system.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil && err == nil {
			err = fmt.Errorf("failed to shut down: %w", shutdownErr)
		}
	}()

	return fn(system)
}
