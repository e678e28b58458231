package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/home-alarm/internal/config"
	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
	"github.com/oshokin/home-alarm/internal/logger"
	"github.com/oshokin/home-alarm/internal/repository/state"
)

// Classifier decides whether a camera frame shows a cat.
type Classifier interface {
	ImageContainsCat(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error)
}

// DefaultConfidenceThreshold is the classifier threshold, in percent, used when none is configured.
const DefaultConfidenceThreshold = config.DefaultConfidenceThreshold

var (
	// ErrUnavailable wraps every Repository or Classifier failure.
	ErrUnavailable = errors.New("collaborator unavailable")
	// ErrInvalidArgument is returned for nil or malformed inputs.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Engine owns alarm status transitions. All methods are safe for concurrent
// use: one mutex serializes every operation, the listener registry and the
// remembered classifier verdict.
type Engine struct {
	// repo is the single source of truth for sensors and statuses.
	repo state.Repository
	// classifier analyses camera frames.
	classifier Classifier
	// policies resolve the cases the alarm rules leave open.
	policies Policies
	// threshold is passed to the classifier with every frame.
	threshold float32
	// now returns the current time for event timestamps.
	now func() time.Time
	// listeners are notified of every event.
	listeners listenerRegistry
	// catDetected is the verdict of the last processed frame.
	catDetected bool
	// mu serializes all engine operations.
	mu sync.Mutex
}

// Option configures the engine.
type Option func(*Engine)

// WithPolicies sets the open-decision policies.
func WithPolicies(policies Policies) Option {
	return func(e *Engine) {
		e.policies = policies
	}
}

// WithConfidenceThreshold sets the classifier threshold; non-positive values are ignored.
func WithConfidenceThreshold(threshold float32) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine with an empty listener registry and no remembered cat.
func NewEngine(repo state.Repository, classifier Classifier, opts ...Option) *Engine {
	e := &Engine{
		repo:       repo,
		classifier: classifier,
		threshold:  DefaultConfidenceThreshold,
		now:        time.Now,
		listeners:  make(listenerRegistry),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ChangeSensorActivationStatus sets the sensor's active flag and applies the
// escalation rules. A call that does not change the flag does nothing, except
// that activating an already active sensor raises a pending alarm unless
// RepeatedActivationIgnore is configured.
func (e *Engine) ChangeSensorActivationStatus(ctx context.Context, sensor *domain.Sensor, active bool) error {
	if sensor == nil {
		return fmt.Errorf("%w: sensor is nil", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.changeActivation(ctx, sensor, active)
}

// ChangeSensorActivation resolves the registered sensor by identity and applies
// ChangeSensorActivationStatus to it under the same lock. It returns an error
// wrapping state.ErrNotFound for an unknown sensor.
func (e *Engine) ChangeSensorActivation(ctx context.Context, key domain.SensorKey, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sensors, err := e.repo.GetSensors(ctx)
	if err != nil {
		return unavailable("get sensors", err)
	}

	for _, sensor := range sensors {
		if sensor.Key() == key {
			return e.changeActivation(ctx, sensor, active)
		}
	}

	return fmt.Errorf("sensor %s: %w", key, state.ErrNotFound)
}

// changeActivation implements the activation rules. Callers hold mu.
func (e *Engine) changeActivation(ctx context.Context, sensor *domain.Sensor, active bool) error {
	if sensor.Active == active {
		if active && e.policies.RepeatedActivation == RepeatedActivationEscalate {
			return e.handleRepeatedActivation(ctx)
		}

		return nil
	}

	current, err := e.repo.GetAlarmStatus(ctx)
	if err != nil {
		return unavailable("get alarm status", err)
	}

	sensor.Active = active

	if err = e.repo.UpdateSensor(ctx, sensor); err != nil {
		sensor.Active = !active

		return unavailable("update sensor", err)
	}

	e.notify(ctx, Event{
		Kind:        EventSensorsChanged,
		AlarmStatus: current,
		Sensor:      sensor.Clone(),
	})

	if active {
		return e.handleSensorActivated(ctx, current)
	}

	return e.handleSensorDeactivated(ctx, current)
}

// handleSensorActivated escalates one level. Alarm is a ceiling.
func (e *Engine) handleSensorActivated(ctx context.Context, current domain.AlarmStatus) error {
	switch current {
	case domain.Alarm:
		return nil
	case domain.PendingAlarm:
		return e.transition(ctx, current, domain.Alarm, "sensor activated while pending")
	case domain.NoAlarm:
		if e.policies.DisarmedActivation == DisarmedActivationIgnore {
			armingStatus, err := e.repo.GetArmingStatus(ctx)
			if err != nil {
				return unavailable("get arming status", err)
			}

			if armingStatus == domain.Disarmed {
				return nil
			}
		}

		return e.transition(ctx, current, domain.PendingAlarm, "sensor activated")
	default:
		return nil
	}
}

// handleRepeatedActivation raises a pending alarm when an active sensor reports activity again.
func (e *Engine) handleRepeatedActivation(ctx context.Context) error {
	current, err := e.repo.GetAlarmStatus(ctx)
	if err != nil {
		return unavailable("get alarm status", err)
	}

	if current != domain.PendingAlarm {
		return nil
	}

	return e.transition(ctx, current, domain.Alarm, "active sensor activated again while pending")
}

// handleSensorDeactivated de-escalates one level. Pending only drops to
// NoAlarm once no sensor is active any more.
func (e *Engine) handleSensorDeactivated(ctx context.Context, current domain.AlarmStatus) error {
	switch current {
	case domain.Alarm:
		return e.transition(ctx, current, domain.PendingAlarm, "sensor deactivated while alarm")
	case domain.PendingAlarm:
		anyActive, err := e.anySensorActive(ctx)
		if err != nil {
			return err
		}

		if anyActive {
			return nil
		}

		return e.transition(ctx, current, domain.NoAlarm, "last active sensor deactivated")
	default:
		return nil
	}
}

// ProcessImage classifies the frame, remembers the verdict and applies the camera rules.
func (e *Engine) ProcessImage(ctx context.Context, image []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cat, err := e.classifier.ImageContainsCat(ctx, image, e.threshold)
	if err != nil {
		return unavailable("classify image", err)
	}

	e.catDetected = cat

	current, err := e.repo.GetAlarmStatus(ctx)
	if err != nil {
		return unavailable("get alarm status", err)
	}

	e.notify(ctx, Event{
		Kind:        EventCatDetected,
		AlarmStatus: current,
		CatDetected: cat,
	})

	if cat {
		armingStatus, err := e.repo.GetArmingStatus(ctx)
		if err != nil {
			return unavailable("get arming status", err)
		}

		if !e.catRaisesAlarm(armingStatus) {
			return nil
		}

		return e.transition(ctx, current, domain.Alarm, "cat detected while "+armingStatus.String())
	}

	anyActive, err := e.anySensorActive(ctx)
	if err != nil {
		return err
	}

	if anyActive {
		return nil
	}

	return e.transition(ctx, current, domain.NoAlarm, "no cat and no active sensors")
}

// SetArmingStatus persists the arming mode. Disarming clears the alarm, arming
// deactivates every sensor and then raises the alarm if a cat was already seen.
func (e *Engine) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidArgument, domain.ErrUnknownArmingStatus, int(status))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.SetArmingStatus(ctx, status); err != nil {
		return unavailable("set arming status", err)
	}

	logger.InfoKV(ctx, "Arming status changed", "arming_status", status)

	current, err := e.repo.GetAlarmStatus(ctx)
	if err != nil {
		return unavailable("get alarm status", err)
	}

	// Disarming always writes NoAlarm; the event is only sent on a change.
	if status == domain.Disarmed {
		return e.writeStatus(ctx, current, domain.NoAlarm, "disarmed")
	}

	// Sensors are reset first so the alarm override below survives.
	if err = e.resetSensors(ctx, current); err != nil {
		return err
	}

	if e.catDetected && e.catRaisesAlarm(status) {
		return e.transition(ctx, current, domain.Alarm, "armed while cat detected")
	}

	return nil
}

// AddSensor registers the sensor in the repository.
func (e *Engine) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return fmt.Errorf("%w: sensor is nil", ErrInvalidArgument)
	}

	if err := sensor.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.AddSensor(ctx, sensor); err != nil {
		return unavailable("add sensor", err)
	}

	e.notifySensors(ctx, sensor)

	return nil
}

// RemoveSensor deletes the sensor from the repository.
func (e *Engine) RemoveSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return fmt.Errorf("%w: sensor is nil", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.RemoveSensor(ctx, sensor); err != nil {
		return unavailable("remove sensor", err)
	}

	e.notifySensors(ctx, sensor)

	return nil
}

// AddStatusListener registers the listener. Registering twice is a no-op.
// Nil listeners and listeners whose value cannot be compared, such as func
// types, are rejected with ErrInvalidArgument.
func (e *Engine) AddStatusListener(listener StatusListener) error {
	if listener == nil {
		return fmt.Errorf("%w: listener is nil", ErrInvalidArgument)
	}

	if !comparableListener(listener) {
		return fmt.Errorf("%w: listener of type %T is not comparable", ErrInvalidArgument, listener)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners.add(listener)

	return nil
}

// RemoveStatusListener deregisters the listener. Unknown listeners are ignored.
func (e *Engine) RemoveStatusListener(listener StatusListener) {
	if !comparableListener(listener) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners.remove(listener)
}

// HasStatusListener reports whether the listener is registered.
func (e *Engine) HasStatusListener(listener StatusListener) bool {
	if !comparableListener(listener) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.listeners.has(listener)
}

// AlarmStatus returns the current alarm status.
func (e *Engine) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.repo.GetAlarmStatus(ctx)
	if err != nil {
		return domain.NoAlarm, unavailable("get alarm status", err)
	}

	return status, nil
}

// ArmingStatus returns the current arming mode.
func (e *Engine) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.repo.GetArmingStatus(ctx)
	if err != nil {
		return domain.Disarmed, unavailable("get arming status", err)
	}

	return status, nil
}

// Sensors returns copies of the registered sensors.
func (e *Engine) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sensors, err := e.repo.GetSensors(ctx)
	if err != nil {
		return nil, unavailable("get sensors", err)
	}

	return sensors, nil
}

// Sensor returns the registered sensor with the given identity.
func (e *Engine) Sensor(ctx context.Context, key domain.SensorKey) (*domain.Sensor, bool, error) {
	sensors, err := e.Sensors(ctx)
	if err != nil {
		return nil, false, err
	}

	for _, sensor := range sensors {
		if sensor.Key() == key {
			return sensor, true, nil
		}
	}

	return nil, false, nil
}

// CatDetected returns the verdict of the last processed frame.
func (e *Engine) CatDetected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.catDetected
}

// catRaisesAlarm reports whether a cat seen in the given arming mode means an alarm.
func (e *Engine) catRaisesAlarm(status domain.ArmingStatus) bool {
	switch status {
	case domain.ArmedHome:
		return true
	case domain.ArmedAway:
		return e.policies.AwayCat == AwayCatAlarm
	default:
		return false
	}
}

// anySensorActive reports whether any registered sensor is active.
func (e *Engine) anySensorActive(ctx context.Context) (bool, error) {
	sensors, err := e.repo.GetSensors(ctx)
	if err != nil {
		return false, unavailable("get sensors", err)
	}

	for _, sensor := range sensors {
		if sensor.Active {
			return true, nil
		}
	}

	return false, nil
}

// resetSensors deactivates every sensor without applying the activation rules.
func (e *Engine) resetSensors(ctx context.Context, current domain.AlarmStatus) error {
	sensors, err := e.repo.GetSensors(ctx)
	if err != nil {
		return unavailable("get sensors", err)
	}

	changed := false

	for _, sensor := range sensors {
		if !sensor.Active {
			continue
		}

		sensor.Active = false

		if err = e.repo.UpdateSensor(ctx, sensor); err != nil {
			return unavailable("update sensor", err)
		}

		changed = true
	}

	if changed {
		e.notify(ctx, Event{
			Kind:        EventSensorsChanged,
			AlarmStatus: current,
		})
	}

	return nil
}

// notifySensors sends a sensors_changed event for a single sensor.
// Errors reading the alarm status are logged, not returned.
func (e *Engine) notifySensors(ctx context.Context, sensor *domain.Sensor) {
	current, err := e.repo.GetAlarmStatus(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to read alarm status for sensor event", "error", err)
	}

	e.notify(ctx, Event{
		Kind:        EventSensorsChanged,
		AlarmStatus: current,
		Sensor:      sensor.Clone(),
	})
}

// transition moves the alarm status from one value to another.
// Writing the current status again is skipped.
func (e *Engine) transition(ctx context.Context, from, to domain.AlarmStatus, reason string) error {
	if from == to {
		return nil
	}

	return e.writeStatus(ctx, from, to, reason)
}

// writeStatus is the single alarm status write path: persist, then log and
// notify when the status actually changed.
func (e *Engine) writeStatus(ctx context.Context, from, to domain.AlarmStatus, reason string) error {
	if err := e.repo.SetAlarmStatus(ctx, to); err != nil {
		logger.ErrorKV(ctx, "Failed to persist alarm status", "to", to, "error", err)

		return unavailable("set alarm status", err)
	}

	if from == to {
		return nil
	}

	logger.InfoKV(ctx, "Alarm status changed", "from", from, "to", to, "reason", reason)

	e.notify(ctx, Event{
		Kind:                EventAlarmStatusChanged,
		AlarmStatus:         to,
		PreviousAlarmStatus: from,
	})

	return nil
}

// notify stamps the event and fans it out. Callers hold mu.
func (e *Engine) notify(ctx context.Context, event Event) {
	event.Time = e.now()
	e.listeners.notify(ctx, event)
}

// unavailable wraps a collaborator failure.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
