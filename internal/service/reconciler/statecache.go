package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

const (
	// globalFlagKey holds the operator "panel armed" switch.
	globalFlagKey = "panel_armed"
	// stateKeyPrefix is followed by the building id.
	stateKeyPrefix = "panel_state/"
)

// errUnknownStateWrite is returned when Set is given ArmStateUnknown.
var errUnknownStateWrite = errors.New("only armed or disarmed can be cached")

// StateCache remembers the last observed arm state of every building.
// Each building has its own key so an update never rewrites other buildings.
type StateCache struct {
	kv store.KeyValue
}

// NewStateCache stores its entries in kv.
func NewStateCache(kv store.KeyValue) *StateCache {
	return &StateCache{kv: kv}
}

// Get returns the cached state, ArmStateUnknown if the building was never seen.
// An unreadable value also counts as unknown and is replaced on the next Set.
func (c *StateCache) Get(ctx context.Context, building panel.BuildingID) (panel.ArmState, error) {
	raw, err := c.kv.CacheGet(ctx, stateKey(building))
	if errors.Is(err, store.ErrNotFound) {
		return panel.ArmStateUnknown, nil
	}

	if err != nil {
		return panel.ArmStateUnknown, fmt.Errorf("read cached state of building %d: %w", building, err)
	}

	switch raw {
	case panel.ArmStateArmed.String():
		return panel.ArmStateArmed, nil
	case panel.ArmStateDisarmed.String():
		return panel.ArmStateDisarmed, nil
	default:
		return panel.ArmStateUnknown, nil
	}
}

// Set records the building's state.
func (c *StateCache) Set(ctx context.Context, building panel.BuildingID, state panel.ArmState) error {
	if !state.IsKnown() {
		return errUnknownStateWrite
	}

	if err := c.kv.CacheSet(ctx, stateKey(building), state.String()); err != nil {
		return fmt.Errorf("write cached state of building %d: %w", building, err)
	}

	return nil
}

// GlobalFlag returns the operator "panel armed" switch. It is armed until set.
func (c *StateCache) GlobalFlag(ctx context.Context) (bool, error) {
	raw, err := c.kv.CacheGet(ctx, globalFlagKey)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("read panel flag: %w", err)
	}

	isArmed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse panel flag %q: %w", raw, err)
	}

	return isArmed, nil
}

// SetGlobalFlag stores the operator "panel armed" switch.
func (c *StateCache) SetGlobalFlag(ctx context.Context, isArmed bool) error {
	if err := c.kv.CacheSet(ctx, globalFlagKey, strconv.FormatBool(isArmed)); err != nil {
		return fmt.Errorf("write panel flag: %w", err)
	}

	return nil
}

func stateKey(building panel.BuildingID) string {
	return stateKeyPrefix + strconv.FormatInt(int64(building), 10)
}
