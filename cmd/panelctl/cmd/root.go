package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/service/client"
	"github.com/oshokin/panel-sentinel/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the address from the configuration file.
	serverAddress string

	// rootCmd represents the base command for operator actions.
	rootCmd = &cobra.Command{
		Use:   "panelctl",
		Short: "Operate a running panel-sentinel.",
		Long: `Talks to the panel-sentinel operator API.

Every change is recorded with this machine's hostname and the current user.`,
		SilenceUsage: true,
	}
)

// Execute runs the panelctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "panel-sentinel address, overrides the configuration")

	rootCmd.AddCommand(
		newReevaluateCommand(),
		newRevertCommand(),
		newStatusCommand(),
		newScheduleCommand(),
		newIgnoreCommand(),
		newBuildingsCommand(),
		newDevicesCommand(),
	)
}

// run executes fn with a signal-aware context and the shared options.
func run(cmd *cobra.Command, fn func(ctx context.Context, opts *client.Options) error) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Out:           cmd.OutOrStdout(),
	})
}

func parseBuilding(raw string) (panel.BuildingID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid building id %q", raw)
	}

	return panel.BuildingID(id), nil
}

func newReevaluateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reevaluate <building-id>",
		Short: "Apply a building's schedule now (only while the panel flag is disarmed).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			building, err := parseBuilding(args[0])
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Reevaluate(ctx, opts, building)
			})
		},
	}
}

func newRevertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <building-id>",
		Short: "Restore a building's devices to the states saved before its schedule was applied.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			building, err := parseBuilding(args[0])
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Revert(ctx, opts, building)
			})
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "status [armed|disarmed]",
		Short:     "Show or set the operator panel flag.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{panel.ArmStateArmed.String(), panel.ArmStateDisarmed.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			var set *bool

			if len(args) > 0 {
				isArmed := args[0] == panel.ArmStateArmed.String()
				set = &isArmed
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Status(ctx, opts, set)
			})
		},
	}
}

func newScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <building-id> [HH:MM]",
		Short: "Show or set a building's check time.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			building, err := parseBuilding(args[0])
			if err != nil {
				return err
			}

			var startTime string
			if len(args) > 1 {
				startTime = args[1]
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Schedule(ctx, opts, building, startTime)
			})
		},
	}
}

func newIgnoreCommand() *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "ignore <building-id> <device-id>...",
		Short: "Mute devices while their building is disarmed (or unmute with --clear).",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			building, err := parseBuilding(args[0])
			if err != nil {
				return err
			}

			devices := make([]panel.DeviceID, 0, len(args)-1)

			for _, raw := range args[1:] {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid device id %q", raw)
				}

				devices = append(devices, panel.DeviceID(id))
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Ignore(ctx, opts, building, devices, !unset)
			})
		},
	}

	cmd.Flags().BoolVar(&unset, "clear", false, "remove the devices from the ignore list")

	return cmd
}

func newBuildingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "buildings",
		Short: "List buildings with their check times.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.Buildings)
		},
	}
}

func newDevicesCommand() *cobra.Command {
	var (
		search        string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "devices <building-id>",
		Short: "List a building's devices with their reactive state and ignore flag.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			building, err := parseBuilding(args[0])
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Devices(ctx, opts, building, search, limit, offset)
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "only devices whose name contains this text")
	cmd.Flags().IntVar(&limit, "limit", 100, "page size") //nolint:mnd // Matches the server default.
	cmd.Flags().IntVar(&offset, "offset", 0, "devices to skip")

	return cmd
}
