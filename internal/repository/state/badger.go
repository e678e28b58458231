package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
)

// Key layout:
//   - status:arming        -> ArmingStatus name
//   - status:alarm         -> AlarmStatus name
//   - sensor:<TYPE>/<name> -> Sensor (protobuf JSON struct)
const (
	armingStatusKey = "status:arming"
	alarmStatusKey  = "status:alarm"
	sensorKeyPrefix = "sensor:"
)

// BadgerRepository persists the state in an embedded badger database.
type BadgerRepository struct {
	db *badger.DB
}

// OpenBadgerRepository opens (or creates) the database in dir.
// An empty dir opens an in-memory database.
func OpenBadgerRepository(dir string) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &BadgerRepository{db: db}, nil
}

// Close releases the database.
func (r *BadgerRepository) Close() error {
	return r.db.Close()
}

// GetArmingStatus returns the stored arming mode, Disarmed when none is stored.
func (r *BadgerRepository) GetArmingStatus(context.Context) (domain.ArmingStatus, error) {
	var status domain.ArmingStatus

	if err := r.getText(armingStatusKey, &status); err != nil {
		return domain.Disarmed, fmt.Errorf("get arming status: %w", err)
	}

	return status, nil
}

// SetArmingStatus stores the arming mode.
func (r *BadgerRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	if err := r.setText(armingStatusKey, status); err != nil {
		return fmt.Errorf("set arming status: %w", err)
	}

	return nil
}

// GetAlarmStatus returns the stored alarm severity, NoAlarm when none is stored.
func (r *BadgerRepository) GetAlarmStatus(context.Context) (domain.AlarmStatus, error) {
	var status domain.AlarmStatus

	if err := r.getText(alarmStatusKey, &status); err != nil {
		return domain.NoAlarm, fmt.Errorf("get alarm status: %w", err)
	}

	return status, nil
}

// SetAlarmStatus stores the alarm severity.
func (r *BadgerRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	if err := r.setText(alarmStatusKey, status); err != nil {
		return fmt.Errorf("set alarm status: %w", err)
	}

	return nil
}

// GetSensors returns all sensors ordered by identity.
func (r *BadgerRepository) GetSensors(context.Context) ([]*domain.Sensor, error) {
	var sensors []*domain.Sensor

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sensorKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var sensor *domain.Sensor

			if err := it.Item().Value(func(val []byte) error {
				decoded, err := unmarshalSensor(val)
				sensor = decoded

				return err
			}); err != nil {
				return fmt.Errorf("decode sensor %s: %w", it.Item().Key(), err)
			}

			sensors = append(sensors, sensor)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}

	sortSensors(sensors)

	return sensors, nil
}

// AddSensor stores the sensor.
func (r *BadgerRepository) AddSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return errNilSensor
	}

	buf, err := marshalSensor(sensor)
	if err != nil {
		return fmt.Errorf("encode sensor: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sensorKey(sensor), buf)
	})
	if err != nil {
		return fmt.Errorf("put sensor: %w", err)
	}

	return nil
}

// RemoveSensor deletes the sensor with the same identity.
func (r *BadgerRepository) RemoveSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return errNilSensor
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sensorKey(sensor))
	})
	if err != nil {
		return fmt.Errorf("delete sensor: %w", err)
	}

	return nil
}

// UpdateSensor writes the sensor, inserting it if missing.
func (r *BadgerRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	return r.AddSensor(ctx, sensor)
}

// getText decodes a text value into out, leaving out untouched when the key is absent.
func (r *BadgerRepository) getText(key string, out interface{ UnmarshalText([]byte) error }) error {
	return r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}

		if err != nil {
			return err
		}

		return item.Value(out.UnmarshalText)
	})
}

// setText stores a text marshaled value under key.
func (r *BadgerRepository) setText(key string, value interface{ MarshalText() ([]byte, error) }) error {
	buf, err := value.MarshalText()
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	})
}

// sensorKey builds the badger key for a sensor identity.
func sensorKey(sensor *domain.Sensor) []byte {
	return []byte(sensorKeyPrefix + sensor.Key().String())
}
