// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/internal/config"
	"github.com/procdoc-lab/cua-cli/internal/observability"
)

var (
	cfgFile string
	cfg     = config.NewDefaultConfig()

	// exitCode carries the run outcome out of cobra: 0 completed,
	// 2 step limit, 3 failed, 1 for setup errors.
	exitCode int
)

// newRootCmd builds the base command. Tests construct their own instance so
// state never leaks between cases.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "cua-cli",
		Short:   "cua-cli drives a screenshot-guided computer-using agent.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Runs before any subcommand: config first, then logging.
			if err := initializeConfig(); err != nil {
				return err
			}

			if err := viper.Unmarshal(cfg); err != nil {
				// Fall back to a default logger so the error is at least visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "cua-cli"})
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting cua-cli", zap.String("version", Version))
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(newRunCmd())
	return root
}

// Execute runs the CLI with a signal-aware context and exits with the run's
// outcome code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		if exitCode == 0 {
			exitCode = 1
		}
	}

	observability.Sync()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CUA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars.
	}
	return nil
}
