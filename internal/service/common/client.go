//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/panel-sentinel/internal/api/grpc/panel"
	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

// Client wraps the PanelService gRPC client with typed helpers.
type Client struct {
	// conn is the underlying gRPC connection to panel-sentinel.
	conn *grpc.ClientConn
	// api is the PanelService client.
	api api.PanelServiceClient
	// actor identifies the caller on every request.
	actor *panel.Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sets the identity sent with every call.
func WithActor(actor *panel.Actor) Option {
	return func(c *Client) {
		c.actor = actor.Clone()
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to panel-sentinel.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial panel-sentinel: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewPanelServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Reevaluate asks the server to apply a building's schedule now and returns the outcome name.
func (c *Client) Reevaluate(ctx context.Context, building panel.BuildingID) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Reevaluate(callCtx, wrapperspb.Int64(int64(building)))
	if err != nil {
		return "", fmt.Errorf("reevaluate building %d: %w", building, err)
	}

	return resp.GetFields()[api.FieldOutcome].GetStringValue(), nil
}

// RevertSnapshot restores a building from its snapshot and returns the number of devices written.
func (c *Client) RevertSnapshot(ctx context.Context, building panel.BuildingID) (int, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.RevertSnapshot(callCtx, wrapperspb.Int64(int64(building)))
	if err != nil {
		return 0, fmt.Errorf("revert building %d: %w", building, err)
	}

	return int(resp.GetValue()), nil
}

// GetPanelStatus returns the operator panel flag.
func (c *Client) GetPanelStatus(ctx context.Context) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetPanelStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return false, fmt.Errorf("get panel status: %w", err)
	}

	return resp.GetValue(), nil
}

// SetPanelStatus stores the operator panel flag.
func (c *Client) SetPanelStatus(ctx context.Context, isArmed bool) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetPanelStatus(callCtx, wrapperspb.Bool(isArmed))
	if err != nil {
		return false, fmt.Errorf("set panel status: %w", err)
	}

	return resp.GetValue(), nil
}

// GetBuildingTime returns the stored check time, "" when the building has none.
func (c *Client) GetBuildingTime(ctx context.Context, building panel.BuildingID) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetBuildingTime(callCtx, wrapperspb.Int64(int64(building)))
	if err != nil {
		return "", fmt.Errorf("get time of building %d: %w", building, err)
	}

	return resp.GetFields()[api.FieldStartTime].GetStringValue(), nil
}

// SetBuildingTime stores the check time ("HH:MM") of a building.
func (c *Client) SetBuildingTime(ctx context.Context, building panel.BuildingID, startTime string) error {
	req, err := structpb.NewStruct(map[string]any{
		api.FieldBuildingID: int64(building),
		api.FieldStartTime:  startTime,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.SetBuildingTime(callCtx, req); err != nil {
		return fmt.Errorf("set time of building %d: %w", building, err)
	}

	return nil
}

// SetIgnored saves ignore-on-disarm flags and returns how many were saved.
func (c *Client) SetIgnored(ctx context.Context, entries []panel.IgnoreEntry) (int, error) {
	items := make([]any, 0, len(entries))

	for _, e := range entries {
		items = append(items, map[string]any{
			api.FieldDeviceID:   int64(e.DeviceID),
			api.FieldBuildingID: int64(e.BuildingID),
			api.FieldIgnore:     e.IgnoreOnDisarm,
		})
	}

	req, err := structpb.NewStruct(map[string]any{api.FieldItems: items})
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetIgnored(callCtx, req)
	if err != nil {
		return 0, fmt.Errorf("set ignored: %w", err)
	}

	return int(resp.GetFields()[api.FieldSaved].GetNumberValue()), nil
}

// ListBuildings returns every building with its check time.
func (c *Client) ListBuildings(ctx context.Context) ([]panel.Building, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListBuildings(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}

	values := resp.GetFields()[api.FieldBuildings].GetListValue().GetValues()
	buildings := make([]panel.Building, 0, len(values))

	for _, v := range values {
		fields := v.GetStructValue().GetFields()

		checkTime, err := panel.ParseCheckTime(fields[api.FieldStartTime].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("decode building: %w", err)
		}

		buildings = append(buildings, panel.Building{
			ID:        panel.BuildingID(toInt64(fields[api.FieldID])),
			Name:      fields[api.FieldName].GetStringValue(),
			CheckTime: checkTime,
		})
	}

	return buildings, nil
}

// ListDevices pages through a building's devices whose name contains search.
func (c *Client) ListDevices(
	ctx context.Context,
	building panel.BuildingID,
	search string,
	limit, offset int,
) ([]panel.DeviceInfo, error) {
	req, err := structpb.NewStruct(map[string]any{
		api.FieldBuildingID: int64(building),
		api.FieldSearch:     search,
		api.FieldLimit:      limit,
		api.FieldOffset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListDevices(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("list devices of building %d: %w", building, err)
	}

	values := resp.GetFields()[api.FieldDevices].GetListValue().GetValues()
	devices := make([]panel.DeviceInfo, 0, len(values))

	for _, v := range values {
		fields := v.GetStructValue().GetFields()

		state := panel.Reactive
		if fields[api.FieldState].GetStringValue() == panel.NonReactive.String() {
			state = panel.NonReactive
		}

		devices = append(devices, panel.DeviceInfo{
			Device: panel.Device{
				ID:         panel.DeviceID(toInt64(fields[api.FieldID])),
				BuildingID: panel.BuildingID(toInt64(fields[api.FieldBuildingID])),
				Name:       fields[api.FieldName].GetStringValue(),
				State:      state,
			},
			IsIgnored: fields[api.FieldIsIgnored].GetBoolValue(),
		})
	}

	return devices, nil
}

// callContext returns a context carrying the actor and, if configured, the call timeout.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = api.WithActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

func toInt64(v *structpb.Value) int64 {
	return int64(math.Round(v.GetNumberValue()))
}
