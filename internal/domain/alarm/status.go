package alarm

import (
	"errors"
	"fmt"
	"strings"
)

// AlarmStatus is the severity of the current alarm condition.
// Values are ordered: NoAlarm < PendingAlarm < Alarm.
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver, the rest do not.
type AlarmStatus int

const (
	// NoAlarm is the rest state of the system.
	NoAlarm AlarmStatus = iota
	// PendingAlarm means some evidence of intrusion was observed.
	PendingAlarm
	// Alarm is the maximal severity.
	Alarm
)

// ArmingStatus tells whether and how the system is armed.
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver, the rest do not.
type ArmingStatus int

const (
	// Disarmed means nobody expects intrusions.
	Disarmed ArmingStatus = iota
	// ArmedHome means people are at home and the perimeter is watched.
	ArmedHome
	// ArmedAway means the house is empty.
	ArmedAway
)

var (
	// ErrUnknownAlarmStatus is returned when an alarm status name cannot be parsed.
	ErrUnknownAlarmStatus = errors.New("unknown alarm status")
	// ErrUnknownArmingStatus is returned when an arming status name cannot be parsed.
	ErrUnknownArmingStatus = errors.New("unknown arming status")
)

//nolint:gochecknoglobals // Lookup tables for enum names.
var (
	alarmStatusNames = map[AlarmStatus]string{
		NoAlarm:      "NO_ALARM",
		PendingAlarm: "PENDING_ALARM",
		Alarm:        "ALARM",
	}
	armingStatusNames = map[ArmingStatus]string{
		Disarmed:  "DISARMED",
		ArmedHome: "ARMED_HOME",
		ArmedAway: "ARMED_AWAY",
	}
)

// String returns the canonical upper-case name of the status.
func (s AlarmStatus) String() string {
	if name, ok := alarmStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("AlarmStatus(%d)", int(s))
}

// Valid reports whether s is one of the declared statuses.
func (s AlarmStatus) Valid() bool {
	_, ok := alarmStatusNames[s]

	return ok
}

// Escalate returns the next, more severe status. Alarm is a ceiling.
func (s AlarmStatus) Escalate() AlarmStatus {
	if s >= Alarm {
		return Alarm
	}

	return s + 1
}

// Deescalate returns the previous, less severe status. NoAlarm is a floor.
func (s AlarmStatus) Deescalate() AlarmStatus {
	if s <= NoAlarm {
		return NoAlarm
	}

	return s - 1
}

// MarshalText implements encoding.TextMarshaler.
func (s AlarmStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlarmStatus, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AlarmStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAlarmStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseAlarmStatus converts a case-insensitive name into an AlarmStatus.
func ParseAlarmStatus(s string) (AlarmStatus, error) {
	name := normalizeName(s)
	for status, statusName := range alarmStatusNames {
		if statusName == name {
			return status, nil
		}
	}

	return NoAlarm, fmt.Errorf("%w: %q", ErrUnknownAlarmStatus, s)
}

// String returns the canonical upper-case name of the status.
func (s ArmingStatus) String() string {
	if name, ok := armingStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("ArmingStatus(%d)", int(s))
}

// Valid reports whether s is one of the declared statuses.
func (s ArmingStatus) Valid() bool {
	_, ok := armingStatusNames[s]

	return ok
}

// IsArmed reports whether the system watches for intrusions.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmedHome || s == ArmedAway
}

// MarshalText implements encoding.TextMarshaler.
func (s ArmingStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownArmingStatus, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ArmingStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseArmingStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseArmingStatus converts a case-insensitive name into an ArmingStatus.
// Both "armed_home" and "armed-home" are accepted.
func ParseArmingStatus(s string) (ArmingStatus, error) {
	name := normalizeName(s)
	for status, statusName := range armingStatusNames {
		if statusName == name {
			return status, nil
		}
	}

	return Disarmed, fmt.Errorf("%w: %q", ErrUnknownArmingStatus, s)
}

// normalizeName upper-cases the input and maps dashes to underscores.
func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}
