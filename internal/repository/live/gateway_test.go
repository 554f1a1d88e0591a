package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

func setupMockGateway(t *testing.T) (sqlmock.Sqlmock, *Gateway) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return mock, NewGateway(db, time.Second)
}

func TestGateway_LiveArmStates(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	mock.ExpectQuery(`SELECT Building_PRK, bldArmed_BIT`).
		WillReturnRows(sqlmock.NewRows([]string{"Building_PRK", "bldArmed_BIT"}).
			AddRow(int64(1), true).
			AddRow(int64(2), false))

	states, err := g.LiveArmStates(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[panel.BuildingID]bool{1: true, 2: false}, states)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_Devices(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	mock.ExpectQuery(`FROM ProEvent_TBL`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"ProEvent_PRK", "pevBuilding_FRK", "pevAlias_TXT", "pevReactive_FRK"}).
			AddRow(int64(3), int64(4), "Lobby PIR", 0).
			AddRow(int64(7), int64(4), nil, 1))

	devices, err := g.Devices(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, []panel.Device{
		{ID: 3, BuildingID: 4, Name: "Lobby PIR", State: panel.Reactive},
		{ID: 7, BuildingID: 4, State: panel.NonReactive},
	}, devices)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_DevicesRejectsUnknownCode(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	mock.ExpectQuery(`FROM ProEvent_TBL`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"ProEvent_PRK", "pevBuilding_FRK", "pevAlias_TXT", "pevReactive_FRK"}).
			AddRow(int64(3), int64(4), "Door", 9))

	_, err := g.Devices(context.Background(), 4)
	require.Error(t, err)
}

func TestGateway_SearchDevicesDefaults(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	mock.ExpectQuery(`FROM ProEvent_TBL`).
		WithArgs(int64(2), "%door%", DefaultSearchLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"ProEvent_PRK", "pevBuilding_FRK", "pevAlias_TXT", "pevReactive_FRK"}))

	devices, err := g.SearchDevices(context.Background(), 2, " Door ", 0, -5)
	require.NoError(t, err)
	require.Empty(t, devices)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_SetReactiveBulkCommits(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ProEvent_TBL`).WithArgs(int64(1), int64(3), int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ProEvent_TBL`).WithArgs(int64(1), int64(7), int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := g.SetReactiveBulk(context.Background(), 5, []panel.DeviceState{
		{ID: 3, State: panel.NonReactive},
		{ID: 7, State: panel.NonReactive},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_SetReactiveBulkRollsBackMissingDevice(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ProEvent_TBL`).WithArgs(int64(0), int64(3), int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ProEvent_TBL`).WithArgs(int64(0), int64(99), int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := g.SetReactiveBulk(context.Background(), 5, []panel.DeviceState{
		{ID: 3, State: panel.Reactive},
		{ID: 99, State: panel.Reactive},
	})
	require.ErrorIs(t, err, ErrDeviceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_SetReactiveBulkRollsBackOnExecError(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)
	errLocked := errors.New("row locked")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ProEvent_TBL`).WithArgs(int64(1), int64(3), int64(5)).WillReturnError(errLocked)
	mock.ExpectRollback()

	err := g.SetReactiveBulk(context.Background(), 5, []panel.DeviceState{{ID: 3, State: panel.NonReactive}})
	require.ErrorIs(t, err, errLocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_SetReactiveBulkEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	require.NoError(t, g.SetReactiveBulk(context.Background(), 5, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGateway_SetReactiveBulkStaysInBuilding leaves a device of another building alone.
func TestGateway_SetReactiveBulkStaysInBuilding(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	// Device 9 belongs to building 2, so the update scoped to building 1 matches nothing.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ProEvent_TBL\s+SET pevReactive_FRK = \$1\s+WHERE ProEvent_PRK = \$2 AND pevBuilding_FRK = \$3`).
		WithArgs(int64(1), int64(9), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := g.SetReactiveBulk(context.Background(), 1, []panel.DeviceState{{ID: 9, State: panel.NonReactive}})
	require.ErrorIs(t, err, ErrDeviceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_ListBuildings(t *testing.T) {
	t.Parallel()

	mock, g := setupMockGateway(t)

	mock.ExpectQuery(`SELECT Building_PRK, bldBuildingName_TXT`).
		WillReturnRows(sqlmock.NewRows([]string{"Building_PRK", "bldBuildingName_TXT"}).
			AddRow(int64(1), "HQ").
			AddRow(int64(2), "Warehouse"))

	buildings, err := g.ListBuildings(context.Background())
	require.NoError(t, err)
	require.Equal(t, []panel.Building{{ID: 1, Name: "HQ"}, {ID: 2, Name: "Warehouse"}}, buildings)
	require.NoError(t, mock.ExpectationsWereMet())
}
