package security

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
	svc "github.com/oshokin/home-alarm/internal/service/security"
)

// Actor identifies who issued a request, for audit logging.
type Actor struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

// GetStatusRequest asks for the current status.
type GetStatusRequest struct{}

// StatusResponse describes the service state after a call.
type StatusResponse struct {
	AlarmStatus  domain.AlarmStatus  `json:"alarm_status"`
	ArmingStatus domain.ArmingStatus `json:"arming_status"`
	CatDetected  bool                `json:"cat_detected"`
	Sensors      []*domain.Sensor    `json:"sensors"`
}

// SetArmingStatusRequest changes the arming mode.
type SetArmingStatusRequest struct {
	ArmingStatus domain.ArmingStatus `json:"arming_status"`
	Actor        *Actor              `json:"actor,omitempty"`
}

// SensorRequest adds or removes a sensor.
type SensorRequest struct {
	Sensor *domain.Sensor `json:"sensor"`
}

// ChangeSensorActivationRequest reports a sensor (de)activation.
type ChangeSensorActivationRequest struct {
	Name   string            `json:"name"`
	Type   domain.SensorType `json:"type"`
	Active bool              `json:"active"`
}

// ProcessImageRequest carries one camera frame.
type ProcessImageRequest struct {
	Image []byte `json:"image"`
}

// WatchEventsRequest opens an event stream.
type WatchEventsRequest struct{}

// EventMessage is one engine event on the WatchEvents stream.
type EventMessage struct {
	ID                  string                 `json:"id"`
	Kind                string                 `json:"kind"`
	Time                *timestamppb.Timestamp `json:"time"`
	AlarmStatus         domain.AlarmStatus     `json:"alarm_status"`
	PreviousAlarmStatus domain.AlarmStatus     `json:"previous_alarm_status"`
	CatDetected         bool                   `json:"cat_detected"`
	Sensor              *domain.Sensor         `json:"sensor,omitempty"`
}

// eventToMessage converts an engine event into its wire form.
func eventToMessage(event *svc.Event) *EventMessage {
	message := &EventMessage{
		ID:                  event.ID,
		Kind:                string(event.Kind),
		AlarmStatus:         event.AlarmStatus,
		PreviousAlarmStatus: event.PreviousAlarmStatus,
		CatDetected:         event.CatDetected,
		Sensor:              event.Sensor,
	}

	if !event.Time.IsZero() {
		message.Time = timestamppb.New(event.Time)
	}

	return message
}

// eventFromMessage converts a wire event back into an engine event.
func eventFromMessage(message *EventMessage) *svc.Event {
	event := &svc.Event{
		ID:                  message.ID,
		Kind:                svc.EventKind(message.Kind),
		AlarmStatus:         message.AlarmStatus,
		PreviousAlarmStatus: message.PreviousAlarmStatus,
		CatDetected:         message.CatDetected,
		Sensor:              message.Sensor,
	}

	if message.Time.IsValid() {
		event.Time = message.Time.AsTime()
	}

	return event
}
