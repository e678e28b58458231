package security

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
)

// EventKind tells what an Event is about. Listeners must ignore kinds they do not know.
type EventKind string

const (
	// EventAlarmStatusChanged is sent after every alarm status transition.
	EventAlarmStatusChanged EventKind = "alarm_status_changed"
	// EventCatDetected is sent after every processed camera frame.
	EventCatDetected EventKind = "cat_detected"
	// EventSensorsChanged is sent when the sensor set or a sensor flag changes.
	EventSensorsChanged EventKind = "sensors_changed"
)

// Event is a notification fanned out to status listeners.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`
	// Kind tells which fields are meaningful.
	Kind EventKind `json:"kind"`
	// Time is when the engine produced the event.
	Time time.Time `json:"time"`
	// AlarmStatus is the alarm status after the change. Always set.
	AlarmStatus domain.AlarmStatus `json:"alarm_status"`
	// PreviousAlarmStatus is the status before the change (alarm_status_changed only).
	PreviousAlarmStatus domain.AlarmStatus `json:"previous_alarm_status"`
	// CatDetected is the classifier verdict (cat_detected only).
	CatDetected bool `json:"cat_detected"`
	// Sensor is the affected sensor (sensors_changed only, nil for bulk changes).
	Sensor *domain.Sensor `json:"sensor,omitempty"`
}

// StatusListener is notified of engine events. Notify runs while the engine
// lock is held, so it must return quickly and must not call back into the engine.
// Implementations must be comparable (pointers are): the registry is a set keyed
// by listener value. Use StatusListenerFunc.Listener to register a plain function.
type StatusListener interface {
	Notify(ctx context.Context, event Event)
}

// ChannelListener forwards events to a buffered channel.
// Events are dropped when the buffer is full.
type ChannelListener struct {
	// events receives the forwarded events.
	events chan Event
	// dropped counts events lost to a full buffer.
	dropped atomic.Int64
}

// NewChannelListener returns a listener with the given buffer size.
func NewChannelListener(buffer int) *ChannelListener {
	if buffer < 1 {
		buffer = 1
	}

	return &ChannelListener{
		events: make(chan Event, buffer),
	}
}

// Notify enqueues the event without blocking.
func (l *ChannelListener) Notify(_ context.Context, event Event) {
	select {
	case l.events <- event:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to a full buffer.
func (l *ChannelListener) Dropped() int64 {
	return l.dropped.Load()
}

// Events returns the receive side of the buffer.
func (l *ChannelListener) Events() <-chan Event {
	return l.events
}

// StatusListenerFunc adapts a function to the StatusListener contract.
// Func values cannot be registered directly; wrap them with Listener.
type StatusListenerFunc func(ctx context.Context, event Event)

// Notify calls f.
func (f StatusListenerFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

// Listener returns a registrable listener calling f. Each call returns a
// distinct listener.
func (f StatusListenerFunc) Listener() StatusListener {
	return &funcListener{notify: f}
}

// funcListener gives a function a pointer identity for the registry.
type funcListener struct {
	notify StatusListenerFunc
}

// Notify calls the wrapped function.
func (l *funcListener) Notify(ctx context.Context, event Event) {
	l.notify(ctx, event)
}

// comparableListener reports whether listener can be used as a registry key.
func comparableListener(listener StatusListener) bool {
	if listener == nil {
		return false
	}

	return reflect.ValueOf(listener).Comparable()
}

// listenerRegistry is a set of listeners. It is not safe for concurrent use;
// the engine guards it with its own lock.
type listenerRegistry map[StatusListener]struct{}

// add registers the listener. Adding twice keeps a single entry.
func (r listenerRegistry) add(listener StatusListener) {
	r[listener] = struct{}{}
}

// remove deregisters the listener. Removing an unknown listener is a no-op.
func (r listenerRegistry) remove(listener StatusListener) {
	delete(r, listener)
}

// has reports membership.
func (r listenerRegistry) has(listener StatusListener) bool {
	_, ok := r[listener]

	return ok
}

// notify fans the event out to every registered listener.
func (r listenerRegistry) notify(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	for listener := range r {
		listener.Notify(ctx, event)
	}
}
