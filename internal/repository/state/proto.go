package state

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
)

// Snapshot document fields.
const (
	fieldArmingStatus = "arming_status"
	fieldAlarmStatus  = "alarm_status"
	fieldSensors      = "sensors"
	fieldName         = "name"
	fieldType         = "type"
	fieldActive       = "active"
)

// errMalformedSnapshot is returned when a decoded document lacks a required field.
var errMalformedSnapshot = errors.New("malformed snapshot")

//nolint:gochecknoglobals // Shared encoder settings.
var snapshotMarshalOptions = protojson.MarshalOptions{
	Multiline:       true,
	Indent:          "  ",
	EmitUnpopulated: true,
}

// marshalSnapshot encodes the snapshot as a protobuf JSON document.
func marshalSnapshot(snapshot *Snapshot) ([]byte, error) {
	protoSnapshot, err := snapshotToProto(snapshot)
	if err != nil {
		return nil, err
	}

	data, err := snapshotMarshalOptions.Marshal(protoSnapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	return data, nil
}

// unmarshalSnapshot decodes a protobuf JSON document into a snapshot.
func unmarshalSnapshot(data []byte) (*Snapshot, error) {
	var protoSnapshot structpb.Struct
	if err := protojson.Unmarshal(data, &protoSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return snapshotFromProto(&protoSnapshot)
}

// marshalSensor encodes a single sensor document.
func marshalSensor(sensor *domain.Sensor) ([]byte, error) {
	protoSensor, err := structpb.NewStruct(sensorFields(sensor))
	if err != nil {
		return nil, fmt.Errorf("convert sensor: %w", err)
	}

	data, err := protojson.Marshal(protoSensor)
	if err != nil {
		return nil, fmt.Errorf("marshal sensor: %w", err)
	}

	return data, nil
}

// unmarshalSensor decodes a single sensor document.
func unmarshalSensor(data []byte) (*domain.Sensor, error) {
	var protoSensor structpb.Struct
	if err := protojson.Unmarshal(data, &protoSensor); err != nil {
		return nil, fmt.Errorf("unmarshal sensor: %w", err)
	}

	return sensorFromProto(&protoSensor)
}

func snapshotToProto(snapshot *Snapshot) (*structpb.Struct, error) {
	sensors := make([]any, 0, len(snapshot.Sensors))
	for _, sensor := range snapshot.Sensors {
		sensors = append(sensors, sensorFields(sensor))
	}

	protoSnapshot, err := structpb.NewStruct(map[string]any{
		fieldArmingStatus: snapshot.ArmingStatus.String(),
		fieldAlarmStatus:  snapshot.AlarmStatus.String(),
		fieldSensors:      sensors,
	})
	if err != nil {
		return nil, fmt.Errorf("convert snapshot: %w", err)
	}

	return protoSnapshot, nil
}

func snapshotFromProto(protoSnapshot *structpb.Struct) (*Snapshot, error) {
	fields := protoSnapshot.GetFields()

	armingStatus, err := domain.ParseArmingStatus(fields[fieldArmingStatus].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedSnapshot, err)
	}

	alarmStatus, err := domain.ParseAlarmStatus(fields[fieldAlarmStatus].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedSnapshot, err)
	}

	snapshot := &Snapshot{
		ArmingStatus: armingStatus,
		AlarmStatus:  alarmStatus,
	}

	for _, value := range fields[fieldSensors].GetListValue().GetValues() {
		sensor, sensorErr := sensorFromProto(value.GetStructValue())
		if sensorErr != nil {
			return nil, sensorErr
		}

		snapshot.Sensors = append(snapshot.Sensors, sensor)
	}

	return snapshot, nil
}

func sensorFields(sensor *domain.Sensor) map[string]any {
	return map[string]any{
		fieldName:   sensor.Name,
		fieldType:   sensor.Type.String(),
		fieldActive: sensor.Active,
	}
}

func sensorFromProto(protoSensor *structpb.Struct) (*domain.Sensor, error) {
	fields := protoSensor.GetFields()

	sensorType, err := domain.ParseSensorType(fields[fieldType].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedSnapshot, err)
	}

	sensor := &domain.Sensor{
		Name:   fields[fieldName].GetStringValue(),
		Type:   sensorType,
		Active: fields[fieldActive].GetBoolValue(),
	}

	if err = sensor.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedSnapshot, err)
	}

	return sensor, nil
}
