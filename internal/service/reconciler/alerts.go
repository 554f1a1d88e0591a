package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/metrics"
	"github.com/oshokin/panel-sentinel/internal/notify"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

// AlertChecker raises an alert for every building found disarmed at its check time.
type AlertChecker struct {
	schedules store.Schedules
	reader    ArmStateReader
	sender    notify.Sender
	location  *time.Location
	metrics   *metrics.Metrics
	now       func() time.Time

	mu sync.Mutex
	// alerted holds the minute each building was last alerted for.
	alerted map[panel.BuildingID]time.Time
}

// NewAlertChecker creates a checker comparing check times in location. m may be nil.
func NewAlertChecker(
	schedules store.Schedules,
	reader ArmStateReader,
	sender notify.Sender,
	location *time.Location,
	m *metrics.Metrics,
) *AlertChecker {
	if location == nil {
		location = time.UTC
	}

	return &AlertChecker{
		schedules: schedules,
		reader:    reader,
		sender:    sender,
		location:  location,
		metrics:   m,
		now:       time.Now,
		alerted:   make(map[panel.BuildingID]time.Time),
	}
}

// CheckAll compares the current minute with every stored check time.
// Live states are only read when some building is due. A building alerts at
// most once per minute; a failed send is retried by the next call in that minute.
func (c *AlertChecker) CheckAll(ctx context.Context) error {
	observed := c.now().In(c.location)
	minute := observed.Truncate(time.Minute)

	schedules, err := c.schedules.ListBuildingSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}

	due := make([]panel.Schedule, 0, len(schedules))

	for _, s := range schedules {
		if s.CheckTime.Matches(observed) {
			due = append(due, s)
		}
	}

	if len(due) == 0 {
		return nil
	}

	live, err := c.reader.LiveArmStates(ctx)
	if err != nil {
		return fmt.Errorf("read live arm states: %w", err)
	}

	var errs []error

	for _, s := range due {
		buildingCtx := logger.WithFields(ctx, "building_id", s.BuildingID, "check_time", s.CheckTime.String())

		isArmed, ok := live[s.BuildingID]

		switch {
		case !ok:
			logger.Warn(buildingCtx, "Scheduled building not reported by the live system")
		case isArmed:
			logger.Info(buildingCtx, "Panel armed at check time, no alert sent")
		case c.alreadyAlerted(s.BuildingID, minute):
			logger.Debug(buildingCtx, "Alert already sent this minute")
		default:
			logger.Warn(buildingCtx, "Panel disarmed at check time, sending alert")

			err := c.sender.SendDisarmedAlert(buildingCtx, panel.Alert{
				BuildingID: s.BuildingID,
				CheckTime:  s.CheckTime.String(),
				ObservedAt: observed,
			})
			c.metrics.AlertSent(err)

			if err != nil {
				errs = append(errs, fmt.Errorf("alert building %d: %w", s.BuildingID, err))

				continue
			}

			c.markAlerted(s.BuildingID, minute)
		}
	}

	return errors.Join(errs...)
}

func (c *AlertChecker) alreadyAlerted(building panel.BuildingID, minute time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.alerted[building]

	return ok && last.Equal(minute)
}

func (c *AlertChecker) markAlerted(building panel.BuildingID, minute time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alerted[building] = minute
}
