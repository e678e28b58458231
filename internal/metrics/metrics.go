package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
	"github.com/oshokin/home-alarm/internal/service/security"
)

const namespace = "home_alarm"

// Listener is a status listener that turns engine events into metrics.
type Listener struct {
	// transitions counts alarm status changes by edge.
	transitions *prometheus.CounterVec
	// status is 1 for the current alarm status and 0 for the others.
	status *prometheus.GaugeVec
	// frames counts processed camera frames by verdict.
	frames *prometheus.CounterVec
	// sensorChanges counts sensor set and flag changes.
	sensorChanges prometheus.Counter
	// dropped counts events lost by slow watch streams.
	dropped prometheus.Counter
}

// NewListener registers the alarm metrics on reg.
func NewListener(reg prometheus.Registerer) *Listener {
	factory := promauto.With(reg)

	return &Listener{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Total number of alarm status transitions",
		}, []string{"from", "to"}),
		status: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "Current alarm status (1 for the active status)",
		}, []string{"status"}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Total number of camera frames classified, by verdict",
		}, []string{"cat"}),
		sensorChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_changes_total",
			Help:      "Total number of sensor registrations, removals and flag changes",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_dropped_total",
			Help:      "Total number of events dropped by slow watchers",
		}),
	}
}

// Notify implements security.StatusListener.
func (l *Listener) Notify(_ context.Context, event security.Event) {
	switch event.Kind {
	case security.EventAlarmStatusChanged:
		l.transitions.WithLabelValues(event.PreviousAlarmStatus.String(), event.AlarmStatus.String()).Inc()
		l.SetStatus(event.AlarmStatus)
	case security.EventCatDetected:
		verdict := "false"
		if event.CatDetected {
			verdict = "true"
		}

		l.frames.WithLabelValues(verdict).Inc()
	case security.EventSensorsChanged:
		l.sensorChanges.Inc()
	}
}

// SetStatus sets the status gauge, e.g. from the persisted status at startup.
func (l *Listener) SetStatus(current domain.AlarmStatus) {
	for _, status := range []domain.AlarmStatus{domain.NoAlarm, domain.PendingAlarm, domain.Alarm} {
		value := 0.0
		if status == current {
			value = 1
		}

		l.status.WithLabelValues(status.String()).Set(value)
	}
}

// AddDropped records events lost by a watcher.
func (l *Listener) AddDropped(n int64) {
	if n > 0 {
		l.dropped.Add(float64(n))
	}
}
