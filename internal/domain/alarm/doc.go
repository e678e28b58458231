// Package alarm contains core domain types for the home alarm.
//
// It defines the three status enums (AlarmStatus, ArmingStatus, SensorType)
// and the Sensor value entity with a Clone helper to avoid leaking internal
// references out of repositories.
package alarm
