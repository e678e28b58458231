package alarm

import (
	"errors"
	"fmt"
	"strings"
)

// SensorType is the kind of device a sensor is attached to.
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver, the rest do not.
type SensorType int

const (
	// Door is a door contact.
	Door SensorType = iota
	// Window is a window contact.
	Window
	// Motion is a motion detector.
	Motion
)

var (
	// ErrUnknownSensorType is returned when a sensor type name cannot be parsed.
	ErrUnknownSensorType = errors.New("unknown sensor type")
	// ErrSensorNameRequired is returned when a sensor has an empty name.
	ErrSensorNameRequired = errors.New("sensor name is required")
)

//nolint:gochecknoglobals // Lookup table for enum names.
var sensorTypeNames = map[SensorType]string{
	Door:   "DOOR",
	Window: "WINDOW",
	Motion: "MOTION",
}

// String returns the canonical upper-case name of the type.
func (t SensorType) String() string {
	if name, ok := sensorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("SensorType(%d)", int(t))
}

// Valid reports whether t is one of the declared sensor types.
func (t SensorType) Valid() bool {
	_, ok := sensorTypeNames[t]

	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (t SensorType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSensorType, int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SensorType) UnmarshalText(text []byte) error {
	parsed, err := ParseSensorType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// ParseSensorType converts a case-insensitive name into a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	name := normalizeName(s)
	for sensorType, typeName := range sensorTypeNames {
		if typeName == name {
			return sensorType, nil
		}
	}

	return Door, fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
}

// SensorKey is the identity of a sensor. Two sensors with the same key
// are the same entity regardless of their active flag.
type SensorKey struct {
	// Name is the human readable sensor name.
	Name string
	// Type is the kind of device.
	Type SensorType
}

// String renders the key as "TYPE/name".
func (k SensorKey) String() string {
	return k.Type.String() + "/" + k.Name
}

// Less orders keys by type first, then by name.
func (k SensorKey) Less(other SensorKey) bool {
	if k.Type != other.Type {
		return k.Type < other.Type
	}

	return k.Name < other.Name
}

// Sensor is a binary-state input device contributing evidence of intrusion.
type Sensor struct {
	// Name is the human readable sensor name, e.g. "front door".
	Name string `json:"name" yaml:"name"`
	// Type is the kind of device.
	Type SensorType `json:"type" yaml:"type"`
	// Active is true while the sensor reports an open door, window or motion.
	Active bool `json:"active" yaml:"active"`
}

// NewSensor returns an inactive sensor with the given identity.
func NewSensor(name string, sensorType SensorType) *Sensor {
	return &Sensor{
		Name: name,
		Type: sensorType,
	}
}

// Key returns the identity of the sensor.
func (s *Sensor) Key() SensorKey {
	return SensorKey{
		Name: s.Name,
		Type: s.Type,
	}
}

// Validate checks that the sensor has a name and a known type.
func (s *Sensor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrSensorNameRequired
	}

	if !s.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownSensorType, int(s.Type))
	}

	return nil
}

// Clone returns a copy of the sensor.
func (s *Sensor) Clone() *Sensor {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}
