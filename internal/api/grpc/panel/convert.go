package panel

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/panel-sentinel/internal/domain/panel"
)

// Field names used in Struct messages.
const (
	FieldBuildingID = "building_id"
	FieldDeviceID   = "device_id"
	FieldStartTime  = "start_time"
	FieldOutcome    = "outcome"
	FieldUpdated    = "updated"
	FieldItems      = "items"
	FieldIgnore     = "ignore"
	FieldSaved      = "saved"
	FieldBuildings  = "buildings"
	FieldDevices    = "devices"
	FieldSearch     = "search"
	FieldLimit      = "limit"
	FieldOffset     = "offset"
	FieldID         = "id"
	FieldName       = "name"
	FieldState      = "state"
	FieldIsIgnored  = "is_ignored"
)

var (
	// errFieldMissing is returned when a required field is absent.
	errFieldMissing = errors.New("field is required")
	// errFieldType is returned when a field has an unexpected kind.
	errFieldType = errors.New("field has wrong type")
	// errNotInteger is returned when a number field has a fractional part.
	errNotInteger = errors.New("field must be an integer")
	// errNotPositive is returned when an id is zero or negative.
	errNotPositive = errors.New("id must be positive")
)

// int64Field reads an integer field. A missing optional field yields zero.
func int64Field(s *structpb.Struct, key string, required bool) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok || v.GetKind() == nil {
		if required {
			return 0, fmt.Errorf("%s: %w", key, errFieldMissing)
		}

		return 0, nil
	}

	number, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, errFieldType)
	}

	if number.NumberValue != math.Trunc(number.NumberValue) ||
		math.Abs(number.NumberValue) > math.MaxInt64 {
		return 0, fmt.Errorf("%s: %w", key, errNotInteger)
	}

	return int64(number.NumberValue), nil
}

// stringField reads a string field. A missing optional field yields "".
func stringField(s *structpb.Struct, key string, required bool) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok || v.GetKind() == nil {
		if required {
			return "", fmt.Errorf("%s: %w", key, errFieldMissing)
		}

		return "", nil
	}

	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s: %w", key, errFieldType)
	}

	return str.StringValue, nil
}

// boolField reads a required boolean field.
func boolField(s *structpb.Struct, key string) (bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return false, fmt.Errorf("%s: %w", key, errFieldMissing)
	}

	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%s: %w", key, errFieldType)
	}

	return b.BoolValue, nil
}

func toBuildingID(raw int64) (domain.BuildingID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("building %d: %w", raw, errNotPositive)
	}

	return domain.BuildingID(raw), nil
}

// toSchedule parses {building_id, start_time}.
func toSchedule(s *structpb.Struct) (domain.Schedule, error) {
	rawID, err := int64Field(s, FieldBuildingID, true)
	if err != nil {
		return domain.Schedule{}, err
	}

	building, err := toBuildingID(rawID)
	if err != nil {
		return domain.Schedule{}, err
	}

	raw, err := stringField(s, FieldStartTime, true)
	if err != nil {
		return domain.Schedule{}, err
	}

	checkTime, err := domain.ParseCheckTime(raw)
	if err != nil {
		return domain.Schedule{}, err
	}

	return domain.Schedule{BuildingID: building, CheckTime: checkTime}, nil
}

// toIgnoreEntries parses {items: [{device_id, building_id, ignore}]}.
func toIgnoreEntries(s *structpb.Struct) ([]domain.IgnoreEntry, error) {
	v, ok := s.GetFields()[FieldItems]
	if !ok {
		return nil, fmt.Errorf("%s: %w", FieldItems, errFieldMissing)
	}

	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s: %w", FieldItems, errFieldType)
	}

	values := list.ListValue.GetValues()
	entries := make([]domain.IgnoreEntry, 0, len(values))

	for i, item := range values {
		entry, err := toIgnoreEntry(item.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func toIgnoreEntry(s *structpb.Struct) (domain.IgnoreEntry, error) {
	if s == nil {
		return domain.IgnoreEntry{}, errFieldType
	}

	device, err := int64Field(s, FieldDeviceID, true)
	if err != nil {
		return domain.IgnoreEntry{}, err
	}

	if device <= 0 {
		return domain.IgnoreEntry{}, fmt.Errorf("device %d: %w", device, errNotPositive)
	}

	rawBuilding, err := int64Field(s, FieldBuildingID, true)
	if err != nil {
		return domain.IgnoreEntry{}, err
	}

	building, err := toBuildingID(rawBuilding)
	if err != nil {
		return domain.IgnoreEntry{}, err
	}

	ignore, err := boolField(s, FieldIgnore)
	if err != nil {
		return domain.IgnoreEntry{}, err
	}

	return domain.IgnoreEntry{
		DeviceID:       domain.DeviceID(device),
		BuildingID:     building,
		IgnoreOnDisarm: ignore,
	}, nil
}

// deviceQuery is a parsed ListDevices request.
type deviceQuery struct {
	building      domain.BuildingID
	search        string
	limit, offset int
}

func toDeviceQuery(s *structpb.Struct) (deviceQuery, error) {
	rawID, err := int64Field(s, FieldBuildingID, true)
	if err != nil {
		return deviceQuery{}, err
	}

	building, err := toBuildingID(rawID)
	if err != nil {
		return deviceQuery{}, err
	}

	search, err := stringField(s, FieldSearch, false)
	if err != nil {
		return deviceQuery{}, err
	}

	limit, err := int64Field(s, FieldLimit, false)
	if err != nil {
		return deviceQuery{}, err
	}

	offset, err := int64Field(s, FieldOffset, false)
	if err != nil {
		return deviceQuery{}, err
	}

	return deviceQuery{
		building: building,
		search:   search,
		limit:    int(limit),
		offset:   int(offset),
	}, nil
}

// scheduleStruct renders a schedule; a nil schedule has a null start_time.
func scheduleStruct(building domain.BuildingID, schedule *domain.Schedule) (*structpb.Struct, error) {
	var startTime any
	if schedule != nil {
		startTime = schedule.CheckTime.String()
	}

	return structpb.NewStruct(map[string]any{
		FieldBuildingID: int64(building),
		FieldStartTime:  startTime,
	})
}

func buildingsStruct(buildings []domain.Building) (*structpb.Struct, error) {
	items := make([]any, 0, len(buildings))

	for _, b := range buildings {
		items = append(items, map[string]any{
			FieldID:        int64(b.ID),
			FieldName:      b.Name,
			FieldStartTime: b.CheckTime.String(),
		})
	}

	return structpb.NewStruct(map[string]any{FieldBuildings: items})
}

func devicesStruct(devices []domain.DeviceInfo) (*structpb.Struct, error) {
	items := make([]any, 0, len(devices))

	for _, d := range devices {
		items = append(items, map[string]any{
			FieldID:         int64(d.ID),
			FieldBuildingID: int64(d.BuildingID),
			FieldName:       d.Name,
			FieldState:      d.State.String(),
			FieldIsIgnored:  d.IsIgnored,
		})
	}

	return structpb.NewStruct(map[string]any{FieldDevices: items})
}
