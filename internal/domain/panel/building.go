package panel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCheckTime is returned when a check time cannot be parsed.
var ErrInvalidCheckTime = errors.New("check time must be in HH:MM format")

// DefaultCheckTime is used for buildings that have no stored schedule.
//
//nolint:gochecknoglobals // Immutable value shared by listing and alert checks.
var DefaultCheckTime = CheckTime{Hour: 20, Minute: 0}

// CheckTime is a wall-clock time of day at minute resolution.
type CheckTime struct {
	// Hour is in range 0-23.
	Hour int
	// Minute is in range 0-59.
	Minute int
}

// ParseCheckTime parses "HH:MM". A trailing ":SS" part is validated and dropped.
// Every field must be exactly two digits.
func ParseCheckTime(s string) (CheckTime, error) {
	s = strings.TrimSpace(s)

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return CheckTime{}, fmt.Errorf("%w: %q", ErrInvalidCheckTime, s)
	}

	hour, ok := twoDigits(parts[0])
	if !ok || hour > 23 {
		return CheckTime{}, fmt.Errorf("%w: %q", ErrInvalidCheckTime, s)
	}

	minute, ok := twoDigits(parts[1])
	if !ok || minute > 59 {
		return CheckTime{}, fmt.Errorf("%w: %q", ErrInvalidCheckTime, s)
	}

	if len(parts) == 3 {
		if second, ok := twoDigits(parts[2]); !ok || second > 59 {
			return CheckTime{}, fmt.Errorf("%w: %q", ErrInvalidCheckTime, s)
		}
	}

	return CheckTime{Hour: hour, Minute: minute}, nil
}

// twoDigits parses a field of exactly two ASCII digits.
func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}

	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// String renders the time as "HH:MM".
func (c CheckTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Matches reports whether t falls within this minute of the day.
// The caller is responsible for converting t to the configured location.
func (c CheckTime) Matches(t time.Time) bool {
	return t.Hour() == c.Hour && t.Minute() == c.Minute
}

// Building is a site with one security panel.
type Building struct {
	ID        BuildingID
	Name      string
	CheckTime CheckTime
}

// Schedule is the per-building configuration maintained by operators.
type Schedule struct {
	// BuildingID is the building the schedule belongs to.
	BuildingID BuildingID
	// CheckTime is when the panel must already be armed.
	CheckTime CheckTime
}
