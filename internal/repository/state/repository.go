package state

import (
	"context"
	"errors"
	"slices"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
)

// Repository defines persistence operations for the alarm state.
// Writes are visible to subsequent reads as soon as the call returns.
type Repository interface {
	GetArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	GetAlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	// GetSensors returns copies of all sensors ordered by identity.
	GetSensors(ctx context.Context) ([]*domain.Sensor, error)
	// AddSensor stores the sensor; adding an existing identity replaces it.
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	// RemoveSensor deletes the sensor by identity; unknown sensors are ignored.
	RemoveSensor(ctx context.Context, sensor *domain.Sensor) error
	// UpdateSensor writes the sensor's active flag back, inserting it if missing.
	UpdateSensor(ctx context.Context, sensor *domain.Sensor) error
}

var (
	// ErrNotFound is returned when no persisted state exists yet.
	ErrNotFound = errors.New("state not found")
	// errNilSensor is returned when a nil sensor is passed to a write operation.
	errNilSensor = errors.New("sensor is nil")
)

// Snapshot is the full persisted state in serializable form.
type Snapshot struct {
	// ArmingStatus is the current arming mode.
	ArmingStatus domain.ArmingStatus `json:"arming_status"`
	// AlarmStatus is the current alarm severity.
	AlarmStatus domain.AlarmStatus `json:"alarm_status"`
	// Sensors is the registered sensor set ordered by identity.
	Sensors []*domain.Sensor `json:"sensors"`
}

// sortSensors orders sensors by identity in place.
func sortSensors(sensors []*domain.Sensor) {
	slices.SortFunc(sensors, func(a, b *domain.Sensor) int {
		switch {
		case a.Key().Less(b.Key()):
			return -1
		case b.Key().Less(a.Key()):
			return 1
		default:
			return 0
		}
	})
}
