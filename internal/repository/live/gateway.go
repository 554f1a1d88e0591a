package live

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

// ErrDeviceNotFound is returned by SetReactiveBulk when a device is not in the building.
var ErrDeviceNotFound = errors.New("device not found")

// DefaultSearchLimit is used by SearchDevices when limit is not positive.
const DefaultSearchLimit = 100

const (
	queryArmStates = `
SELECT Building_PRK, bldArmed_BIT
FROM Building_TBL
ORDER BY Building_PRK;`

	queryBuildings = `
SELECT Building_PRK, bldBuildingName_TXT
FROM Building_TBL
ORDER BY Building_PRK;`

	queryDevices = `
SELECT ProEvent_PRK, pevBuilding_FRK, pevAlias_TXT, pevReactive_FRK
FROM ProEvent_TBL
WHERE pevBuilding_FRK = $1
ORDER BY ProEvent_PRK;`

	querySearchDevices = `
SELECT ProEvent_PRK, pevBuilding_FRK, pevAlias_TXT, pevReactive_FRK
FROM ProEvent_TBL
WHERE pevBuilding_FRK = $1 AND LOWER(pevAlias_TXT) LIKE $2
ORDER BY ProEvent_PRK
LIMIT $3 OFFSET $4;`

	execSetReactive = `
UPDATE ProEvent_TBL
SET pevReactive_FRK = $1
WHERE ProEvent_PRK = $2 AND pevBuilding_FRK = $3;`
)

// Gateway reads and writes the live system through database/sql.
type Gateway struct {
	db      *sql.DB
	timeout time.Duration
}

// NewGateway wraps db. Every call is bounded by timeout when it is positive.
func NewGateway(db *sql.DB, timeout time.Duration) *Gateway {
	return &Gateway{
		db:      db,
		timeout: timeout,
	}
}

// LiveArmStates returns the armed flag of every building.
func (g *Gateway) LiveArmStates(ctx context.Context) (map[panel.BuildingID]bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, queryArmStates)
	if err != nil {
		return nil, fmt.Errorf("query arm states: %w", err)
	}

	defer rows.Close()

	states := make(map[panel.BuildingID]bool)

	for rows.Next() {
		var (
			id      int64
			isArmed bool
		)

		if err := rows.Scan(&id, &isArmed); err != nil {
			return nil, fmt.Errorf("scan arm state: %w", err)
		}

		states[panel.BuildingID(id)] = isArmed
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arm states: %w", err)
	}

	return states, nil
}

// ListBuildings returns every building without a check time.
func (g *Gateway) ListBuildings(ctx context.Context) ([]panel.Building, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, queryBuildings)
	if err != nil {
		return nil, fmt.Errorf("query buildings: %w", err)
	}

	defer rows.Close()

	var buildings []panel.Building

	for rows.Next() {
		var (
			id   int64
			name sql.NullString
		)

		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}

		buildings = append(buildings, panel.Building{ID: panel.BuildingID(id), Name: name.String})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buildings: %w", err)
	}

	return buildings, nil
}

// Devices returns every device of the building with its current state.
func (g *Gateway) Devices(ctx context.Context, building panel.BuildingID) ([]panel.Device, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, queryDevices, int64(building))
	if err != nil {
		return nil, fmt.Errorf("query devices of building %d: %w", building, err)
	}

	return scanDevices(rows)
}

// SearchDevices pages through the building's devices whose name contains search.
func (g *Gateway) SearchDevices(
	ctx context.Context,
	building panel.BuildingID,
	search string,
	limit, offset int,
) ([]panel.Device, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if offset < 0 {
		offset = 0
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	pattern := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"

	rows, err := g.db.QueryContext(ctx, querySearchDevices, int64(building), pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search devices of building %d: %w", building, err)
	}

	return scanDevices(rows)
}

// SetReactiveBulk writes all pairs of one building in one transaction. Either every device
// is updated or none is. An empty batch does nothing.
func (g *Gateway) SetReactiveBulk(ctx context.Context, building panel.BuildingID, states []panel.DeviceState) error {
	if len(states) == 0 {
		return nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk write: %w", err)
	}

	for _, s := range states {
		res, err := tx.ExecContext(ctx, execSetReactive, int64(s.State.Code()), int64(s.ID), int64(building))
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("set device %d %s: %w", s.ID, s.State, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("rows affected for device %d: %w", s.ID, err)
		}

		if affected == 0 {
			_ = tx.Rollback()

			return fmt.Errorf("%w: device %d, building %d", ErrDeviceNotFound, s.ID, building)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk write: %w", err)
	}

	return nil
}

// Close closes the underlying pool.
func (g *Gateway) Close() error {
	return g.db.Close()
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, g.timeout)
}

func scanDevices(rows *sql.Rows) ([]panel.Device, error) {
	defer rows.Close()

	var devices []panel.Device

	for rows.Next() {
		var (
			id, building int64
			name         sql.NullString
			code         int
		)

		if err := rows.Scan(&id, &building, &name, &code); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}

		state, err := panel.ReactiveStateFromCode(code)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", id, err)
		}

		devices = append(devices, panel.Device{
			ID:         panel.DeviceID(id),
			BuildingID: panel.BuildingID(building),
			Name:       name.String,
			State:      state,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}

	return devices, nil
}
