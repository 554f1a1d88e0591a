package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/service/sentinel"
	"github.com/oshokin/panel-sentinel/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// inMemory keeps all local state in memory.
	inMemory bool
	// once runs a single poll cycle and exits.
	once bool

	// rootCmd represents the base command for running panel-sentinel.
	rootCmd = &cobra.Command{
		Use:   "panel-sentinel [listen-address]",
		Short: "Keep device reactive states in line with building panel arm states.",
		Long: `Polls the live security system and reacts to panel arm and disarm edges.

When a building is disarmed, devices on its ignore list are made non-reactive;
when it is armed again they become reactive. At each building's check time an
alert is sent if the panel is still disarmed.

The operator gRPC API listens on the configured address unless one is given as argument.
With --once a single poll cycle runs and the process exits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return sentinel.Run(ctx, &sentinel.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				Memory:        inMemory,
				Once:          once,
			})
		},
	}
)

// Execute runs the panel-sentinel CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&inMemory, "memory", false, "keep schedules, ignore lists, snapshots and cache in memory")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single poll cycle and exit")
}
