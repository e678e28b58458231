package security

import (
	"context"
	"errors"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
	"github.com/oshokin/home-alarm/internal/logger"
	"github.com/oshokin/home-alarm/internal/repository/state"
	svc "github.com/oshokin/home-alarm/internal/service/security"
)

// Engine abstracts the alarm operations the transport layer depends on.
type Engine interface {
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	Sensors(ctx context.Context) ([]*domain.Sensor, error)
	CatDetected() bool
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor *domain.Sensor) error
	ChangeSensorActivation(ctx context.Context, key domain.SensorKey, active bool) error
	ProcessImage(ctx context.Context, image []byte) error
	AddStatusListener(listener svc.StatusListener) error
	RemoveStatusListener(listener svc.StatusListener)
}

// DefaultWatchBuffer is the per-stream event buffer size.
const DefaultWatchBuffer = 64

// Server implements SecurityServiceServer on top of an Engine.
type Server struct {
	// engine provides the alarm logic.
	engine Engine
	// watchBuffer is the event buffer size of each stream.
	watchBuffer int
	// onDropped is called with the number of events a closed stream dropped.
	onDropped func(n int64)
	// watchers is the number of open WatchEvents streams.
	watchers atomic.Int64
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithWatchBuffer sets the per-stream event buffer size.
func WithWatchBuffer(size int) ServerOption {
	return func(s *Server) {
		if size > 0 {
			s.watchBuffer = size
		}
	}
}

// WithDroppedReporter registers a callback for events lost by slow streams.
func WithDroppedReporter(report func(n int64)) ServerOption {
	return func(s *Server) {
		s.onDropped = report
	}
}

// NewServer wires the provided engine into a gRPC handler.
func NewServer(engine Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:      engine,
		watchBuffer: DefaultWatchBuffer,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetStatus returns the current statuses and sensors.
func (s *Server) GetStatus(ctx context.Context, _ *GetStatusRequest) (*StatusResponse, error) {
	return s.status(ctx)
}

// SetArmingStatus changes the arming mode on behalf of the actor.
func (s *Server) SetArmingStatus(ctx context.Context, req *SetArmingStatusRequest) (*StatusResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if req.Actor != nil {
		ctx = logger.WithFields(ctx, "hostname", req.Actor.Hostname, "username", req.Actor.Username)
	}

	if err := s.engine.SetArmingStatus(ctx, req.ArmingStatus); err != nil {
		return nil, toStatusError(ctx, "set arming status", err)
	}

	return s.status(ctx)
}

// AddSensor registers a sensor.
func (s *Server) AddSensor(ctx context.Context, req *SensorRequest) (*StatusResponse, error) {
	if req == nil || req.Sensor == nil {
		return nil, status.Error(codes.InvalidArgument, "sensor is required")
	}

	if err := s.engine.AddSensor(ctx, req.Sensor); err != nil {
		return nil, toStatusError(ctx, "add sensor", err)
	}

	return s.status(ctx)
}

// RemoveSensor deletes a sensor.
func (s *Server) RemoveSensor(ctx context.Context, req *SensorRequest) (*StatusResponse, error) {
	if req == nil || req.Sensor == nil {
		return nil, status.Error(codes.InvalidArgument, "sensor is required")
	}

	if err := s.engine.RemoveSensor(ctx, req.Sensor); err != nil {
		return nil, toStatusError(ctx, "remove sensor", err)
	}

	return s.status(ctx)
}

// ChangeSensorActivation applies a sensor report to the registered sensor with the same identity.
func (s *Server) ChangeSensorActivation(
	ctx context.Context,
	req *ChangeSensorActivationRequest,
) (*StatusResponse, error) {
	if req == nil || req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "sensor name is required")
	}

	key := domain.SensorKey{Name: req.Name, Type: req.Type}

	if err := s.engine.ChangeSensorActivation(ctx, key, req.Active); err != nil {
		return nil, toStatusError(ctx, "change sensor activation", err)
	}

	return s.status(ctx)
}

// ProcessImage classifies a camera frame.
func (s *Server) ProcessImage(ctx context.Context, req *ProcessImageRequest) (*StatusResponse, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image is required")
	}

	if err := s.engine.ProcessImage(ctx, req.Image); err != nil {
		return nil, toStatusError(ctx, "process image", err)
	}

	return s.status(ctx)
}

// WatchEvents forwards engine events to the stream until the client goes away.
func (s *Server) WatchEvents(_ *WatchEventsRequest, stream EventSender) error {
	ctx := stream.Context()

	listener := svc.NewChannelListener(s.watchBuffer)
	if err := s.engine.AddStatusListener(listener); err != nil {
		return toStatusError(ctx, "watch events", err)
	}

	s.watchers.Add(1)

	logger.Info(ctx, "Event watcher connected")

	defer func() {
		s.engine.RemoveStatusListener(listener)
		s.watchers.Add(-1)

		dropped := listener.Dropped()
		if dropped > 0 && s.onDropped != nil {
			s.onDropped(dropped)
		}

		logger.InfoKV(ctx, "Event watcher disconnected", "dropped", dropped)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-listener.Events():
			if err := stream.Send(&event); err != nil {
				return err
			}
		}
	}
}

// Watchers returns the number of open event streams.
func (s *Server) Watchers() int64 {
	return s.watchers.Load()
}

// status builds the response shared by every unary call.
func (s *Server) status(ctx context.Context) (*StatusResponse, error) {
	alarmStatus, err := s.engine.AlarmStatus(ctx)
	if err != nil {
		return nil, toStatusError(ctx, "get alarm status", err)
	}

	armingStatus, err := s.engine.ArmingStatus(ctx)
	if err != nil {
		return nil, toStatusError(ctx, "get arming status", err)
	}

	sensors, err := s.engine.Sensors(ctx)
	if err != nil {
		return nil, toStatusError(ctx, "get sensors", err)
	}

	return &StatusResponse{
		AlarmStatus:  alarmStatus,
		ArmingStatus: armingStatus,
		CatDetected:  s.engine.CatDetected(),
		Sensors:      sensors,
	}, nil
}

// toStatusError maps engine errors onto gRPC codes.
func toStatusError(ctx context.Context, op string, err error) error {
	code := codes.Internal

	switch {
	case errors.Is(err, svc.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, state.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, svc.ErrUnavailable):
		code = codes.Unavailable
	}

	if code != codes.InvalidArgument && code != codes.NotFound {
		logger.ErrorKV(ctx, "Request failed", "op", op, "error", err)
	}

	return status.Error(code, op+": "+err.Error())
}
