package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
)

// Sender delivers a disarmed alert to one destination.
type Sender interface {
	SendDisarmedAlert(ctx context.Context, alert panel.Alert) error
}

// LogSender only logs alerts. It is used when no sink is configured.
type LogSender struct{}

// SendDisarmedAlert implements Sender.
func (LogSender) SendDisarmedAlert(ctx context.Context, alert panel.Alert) error {
	logger.WarnKV(ctx, "Building disarmed at check time",
		"building_id", alert.BuildingID,
		"check_time", alert.CheckTime,
		"observed_at", alert.ObservedAt,
	)

	return nil
}

// Multi sends every alert to all sinks, even when some of them fail.
// Sending the same alert again only retries the sinks that have not delivered it.
type Multi struct {
	sinks []Sender

	mu        sync.Mutex
	delivered map[deliveryKey]map[int]struct{}
}

// deliveryKey identifies one alert: a building at one check minute.
type deliveryKey struct {
	building panel.BuildingID
	minute   int64
}

// NewMulti fans alerts out to sinks in order.
func NewMulti(sinks ...Sender) *Multi {
	return &Multi{
		sinks:     sinks,
		delivered: make(map[deliveryKey]map[int]struct{}),
	}
}

// Sinks returns the configured sinks.
func (m *Multi) Sinks() []Sender {
	return slices.Clone(m.sinks)
}

// SendDisarmedAlert implements Sender. The returned error joins every failure.
func (m *Multi) SendDisarmedAlert(ctx context.Context, alert panel.Alert) error {
	key := deliveryKey{
		building: alert.BuildingID,
		minute:   alert.ObservedAt.Truncate(time.Minute).Unix(),
	}

	var errs []error

	for i, s := range m.sinks {
		if m.isDelivered(key, i) {
			continue
		}

		if err := s.SendDisarmedAlert(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("sink %d (%T): %w", i, s, err))

			continue
		}

		m.markDelivered(key, i)
	}

	return errors.Join(errs...)
}

func (m *Multi) isDelivered(key deliveryKey, sink int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.delivered[key][sink]

	return ok
}

func (m *Multi) markDelivered(key deliveryKey, sink int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Alerts of earlier minutes are never retried.
	for k := range m.delivered {
		if k.minute < key.minute {
			delete(m.delivered, k)
		}
	}

	if m.delivered[key] == nil {
		m.delivered[key] = make(map[int]struct{})
	}

	m.delivered[key][sink] = struct{}{}
}
