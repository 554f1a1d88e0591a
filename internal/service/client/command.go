package client

import (
	"context"
	"fmt"
	"io"

	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/service/common"
)

// Options configures how panelctl reaches panel-sentinel.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the address from config when specified.
	ServerAddress string
	// Out receives command output. Defaults to discarding it.
	Out io.Writer
}

// connect loads settings, identifies the actor and dials the server.
func connect(ctx context.Context, opts *Options) (*common.Client, error) {
	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Connecting to panel-sentinel", "server_address", serverAddress, "actor", actor.String())

	return common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor),
	)
}

// withClient runs fn with a connected client and closes it afterwards.
func withClient(ctx context.Context, opts *Options, fn func(c *common.Client) error) error {
	c, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = c.Close()
	}()

	return fn(c)
}

func (o *Options) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}

	return o.Out
}

// Reevaluate applies a building's schedule now.
func Reevaluate(ctx context.Context, opts *Options, building panel.BuildingID) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		outcome, err := c.Reevaluate(ctx, building)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Building re-evaluated", "building_id", building, "outcome", outcome)
		_, err = fmt.Fprintf(opts.out(), "building %d: %s\n", building, outcome)

		return err
	})
}

// Revert restores a building from its snapshot.
func Revert(ctx context.Context, opts *Options, building panel.BuildingID) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		restored, err := c.RevertSnapshot(ctx, building)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Snapshot reverted", "building_id", building, "devices", restored)
		_, err = fmt.Fprintf(opts.out(), "building %d: %d devices restored\n", building, restored)

		return err
	})
}

// Status prints the operator panel flag. When set is not nil the flag is changed first.
func Status(ctx context.Context, opts *Options, set *bool) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		var (
			isArmed bool
			err     error
		)

		if set != nil {
			isArmed, err = c.SetPanelStatus(ctx, *set)
		} else {
			isArmed, err = c.GetPanelStatus(ctx)
		}

		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(opts.out(), "panel: %s\n", panel.ArmStateOf(isArmed))

		return err
	})
}

// Schedule prints a building's check time. A non-empty startTime ("HH:MM") is stored first.
func Schedule(ctx context.Context, opts *Options, building panel.BuildingID, startTime string) error {
	if startTime != "" {
		// Fail fast on a malformed time before connecting.
		if _, err := panel.ParseCheckTime(startTime); err != nil {
			return err
		}
	}

	return withClient(ctx, opts, func(c *common.Client) error {
		if startTime != "" {
			if err := c.SetBuildingTime(ctx, building, startTime); err != nil {
				return err
			}
		}

		current, err := c.GetBuildingTime(ctx, building)
		if err != nil {
			return err
		}

		if current == "" {
			current = "not set (default " + panel.DefaultCheckTime.String() + ")"
		}

		_, err = fmt.Fprintf(opts.out(), "building %d: %s\n", building, current)

		return err
	})
}

// Ignore sets or clears the ignore-on-disarm flag of devices of a building.
func Ignore(ctx context.Context, opts *Options, building panel.BuildingID, devices []panel.DeviceID, ignore bool) error {
	entries := make([]panel.IgnoreEntry, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, panel.IgnoreEntry{DeviceID: d, BuildingID: building, IgnoreOnDisarm: ignore})
	}

	return withClient(ctx, opts, func(c *common.Client) error {
		saved, err := c.SetIgnored(ctx, entries)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(opts.out(), "building %d: %d devices saved\n", building, saved)

		return err
	})
}

// Buildings prints every building with its check time.
func Buildings(ctx context.Context, opts *Options) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		buildings, err := c.ListBuildings(ctx)
		if err != nil {
			return err
		}

		return printBuildings(opts.out(), buildings)
	})
}

// Devices prints a page of a building's devices.
func Devices(
	ctx context.Context,
	opts *Options,
	building panel.BuildingID,
	search string,
	limit, offset int,
) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		devices, err := c.ListDevices(ctx, building, search, limit, offset)
		if err != nil {
			return err
		}

		return printDevices(opts.out(), devices)
	})
}
