package state

import (
	"context"
	"sync"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
)

// MemoryRepository keeps the state in process memory.
type MemoryRepository struct {
	// armingStatus is the current arming mode.
	armingStatus domain.ArmingStatus
	// alarmStatus is the current alarm severity.
	alarmStatus domain.AlarmStatus
	// sensors holds the registered sensors by identity.
	sensors map[domain.SensorKey]*domain.Sensor
	// mu protects all fields above.
	mu sync.RWMutex
}

// NewMemoryRepository returns an empty, disarmed repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sensors: make(map[domain.SensorKey]*domain.Sensor),
	}
}

// NewMemoryRepositoryFromSnapshot returns a repository preloaded with the snapshot contents.
func NewMemoryRepositoryFromSnapshot(snapshot *Snapshot) *MemoryRepository {
	r := NewMemoryRepository()
	if snapshot != nil {
		r.restore(snapshot)
	}

	return r
}

// GetArmingStatus returns the current arming mode.
func (r *MemoryRepository) GetArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.armingStatus, nil
}

// SetArmingStatus stores the arming mode.
func (r *MemoryRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.armingStatus = status

	return nil
}

// GetAlarmStatus returns the current alarm severity.
func (r *MemoryRepository) GetAlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.alarmStatus, nil
}

// SetAlarmStatus stores the alarm severity.
func (r *MemoryRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alarmStatus = status

	return nil
}

// GetSensors returns copies of all sensors ordered by identity.
func (r *MemoryRepository) GetSensors(context.Context) ([]*domain.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sensorList(), nil
}

// AddSensor stores a copy of the sensor.
func (r *MemoryRepository) AddSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return errNilSensor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sensors[sensor.Key()] = sensor.Clone()

	return nil
}

// RemoveSensor deletes the sensor with the same identity.
func (r *MemoryRepository) RemoveSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return errNilSensor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sensors, sensor.Key())

	return nil
}

// UpdateSensor writes a copy of the sensor, inserting it if missing.
func (r *MemoryRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	return r.AddSensor(ctx, sensor)
}

// Snapshot returns a deep copy of the current state.
func (r *MemoryRepository) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Snapshot{
		ArmingStatus: r.armingStatus,
		AlarmStatus:  r.alarmStatus,
		Sensors:      r.sensorList(),
	}
}

// restore replaces the whole state with the snapshot contents.
func (r *MemoryRepository) restore(snapshot *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.armingStatus = snapshot.ArmingStatus
	r.alarmStatus = snapshot.AlarmStatus
	r.sensors = make(map[domain.SensorKey]*domain.Sensor, len(snapshot.Sensors))

	for _, sensor := range snapshot.Sensors {
		if sensor != nil {
			r.sensors[sensor.Key()] = sensor.Clone()
		}
	}
}

// sensorList copies the sensor set into an ordered slice. Callers hold mu.
func (r *MemoryRepository) sensorList() []*domain.Sensor {
	sensors := make([]*domain.Sensor, 0, len(r.sensors))
	for _, sensor := range r.sensors {
		sensors = append(sensors, sensor.Clone())
	}

	sortSensors(sensors)

	return sensors
}
