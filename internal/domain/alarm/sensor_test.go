package alarm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSensorIdentity verifies that identity ignores the active flag.
func TestSensorIdentity(t *testing.T) {
	t.Parallel()

	a := NewSensor("front", Door)
	b := &Sensor{Name: "front", Type: Door, Active: true}
	c := NewSensor("front", Window)

	require.Equal(t, a.Key(), b.Key())
	require.NotEqual(t, a.Key(), c.Key())
	require.Equal(t, "DOOR/front", a.Key().String())
	require.True(t, a.Key().Less(c.Key()))
}

// TestSensorClone verifies that Clone returns a copy and handles nil safely.
func TestSensorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Sensor)(nil).Clone())

	s := &Sensor{Name: "hall", Type: Motion, Active: true}
	c := s.Clone()

	require.Equal(t, s, c)
	require.NotSame(t, s, c)

	c.Active = false
	require.True(t, s.Active)
}

// TestSensorValidate checks the name and type requirements.
func TestSensorValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewSensor("kitchen", Window).Validate())
	require.ErrorIs(t, NewSensor(" ", Window).Validate(), ErrSensorNameRequired)
	require.ErrorIs(t, NewSensor("kitchen", SensorType(9)).Validate(), ErrUnknownSensorType)
}

// TestSensorJSON ensures the sensor type travels by name.
func TestSensorJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(&Sensor{Name: "hall", Type: Motion, Active: true})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"hall","type":"MOTION","active":true}`, string(data))

	var decoded Sensor
	require.NoError(t, json.Unmarshal([]byte(`{"name":"back","type":"window"}`), &decoded))
	require.Equal(t, Window, decoded.Type)
	require.False(t, decoded.Active)
}
