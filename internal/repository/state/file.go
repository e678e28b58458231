package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/oshokin/home-alarm/internal/config"
	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
)

// FileRepository persists the whole state as a JSON snapshot on disk.
// Reads are served from memory; every write rewrites the file atomically.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// memory holds the state mirrored on disk.
	memory *MemoryRepository
	// mu serializes writes so the file always matches memory.
	mu sync.Mutex
}

// OpenFileRepository loads the snapshot at path, starting empty when the file does not exist yet.
func OpenFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{
		path:   filepath.Clean(path),
		memory: NewMemoryRepository(),
	}

	snapshot, err := LoadSnapshot(r.path)
	switch {
	case err == nil:
		r.memory.restore(snapshot)
	case errors.Is(err, ErrNotFound):
		// Keep default state.
	default:
		return nil, err
	}

	return r, nil
}

// LoadSnapshot reads and decodes a snapshot file written in protobuf JSON.
func LoadSnapshot(path string) (*Snapshot, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	snapshot, err := unmarshalSnapshot(contents)
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return snapshot, nil
}

// GetArmingStatus returns the current arming mode.
func (r *FileRepository) GetArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	return r.memory.GetArmingStatus(ctx)
}

// SetArmingStatus stores the arming mode.
func (r *FileRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	return r.write(func() error {
		return r.memory.SetArmingStatus(ctx, status)
	})
}

// GetAlarmStatus returns the current alarm severity.
func (r *FileRepository) GetAlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	return r.memory.GetAlarmStatus(ctx)
}

// SetAlarmStatus stores the alarm severity.
func (r *FileRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	return r.write(func() error {
		return r.memory.SetAlarmStatus(ctx, status)
	})
}

// GetSensors returns copies of all sensors ordered by identity.
func (r *FileRepository) GetSensors(ctx context.Context) ([]*domain.Sensor, error) {
	return r.memory.GetSensors(ctx)
}

// AddSensor stores a copy of the sensor.
func (r *FileRepository) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	return r.write(func() error {
		return r.memory.AddSensor(ctx, sensor)
	})
}

// RemoveSensor deletes the sensor with the same identity.
func (r *FileRepository) RemoveSensor(ctx context.Context, sensor *domain.Sensor) error {
	return r.write(func() error {
		return r.memory.RemoveSensor(ctx, sensor)
	})
}

// UpdateSensor writes a copy of the sensor, inserting it if missing.
func (r *FileRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	return r.write(func() error {
		return r.memory.UpdateSensor(ctx, sensor)
	})
}

// write applies mutate to memory and flushes the result to disk.
// When the flush fails memory is rolled back so reads never see unsaved data.
func (r *FileRepository) write(mutate func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.memory.Snapshot()

	if err := mutate(); err != nil {
		return err
	}

	if err := r.flush(r.memory.Snapshot()); err != nil {
		r.memory.restore(previous)

		return err
	}

	return nil
}

// flush encodes the snapshot and atomically replaces the state file.
func (r *FileRepository) flush(snapshot *Snapshot) error {
	data, err := marshalSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = renameio.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}
