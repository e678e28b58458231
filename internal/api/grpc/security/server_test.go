package security

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oshokin/home-alarm/internal/classifier"
	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
	"github.com/oshokin/home-alarm/internal/repository/state"
	svc "github.com/oshokin/home-alarm/internal/service/security"
)

const bufSize = 1 << 20

// harness is a security service served over an in-memory listener.
type harness struct {
	engine *svc.Engine
	server *Server
	client *SecurityServiceClient
}

// newHarness starts a gRPC server on bufconn and returns a connected client.
func newHarness(t *testing.T, verdict bool) *harness {
	t.Helper()

	engine := svc.NewEngine(state.NewMemoryRepository(), classifier.Static{Verdict: verdict})
	server := NewServer(engine, WithWatchBuffer(8))

	listener := bufconn.Listen(bufSize)
	grpcServer := grpc.NewServer()
	RegisterSecurityServiceServer(grpcServer, server)

	go func() {
		_ = grpcServer.Serve(listener)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()

		grpcServer.Stop()
	})

	return &harness{
		engine: engine,
		server: server,
		client: NewSecurityServiceClient(conn),
	}
}

// TestServer_Roundtrip drives the alarm through the wire API.
func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, false)

	door := domain.NewSensor("front", domain.Door)

	response, err := h.client.AddSensor(ctx, &SensorRequest{Sensor: door})
	require.NoError(t, err)
	require.Len(t, response.Sensors, 1)

	response, err = h.client.SetArmingStatus(ctx, &SetArmingStatusRequest{
		ArmingStatus: domain.ArmedHome,
		Actor:        &Actor{Hostname: "test-hostname", Username: "test-user"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ArmedHome, response.ArmingStatus)

	response, err = h.client.ChangeSensorActivation(ctx, &ChangeSensorActivationRequest{
		Name:   door.Name,
		Type:   door.Type,
		Active: true,
	})
	require.NoError(t, err)
	require.Equal(t, domain.PendingAlarm, response.AlarmStatus)
	require.True(t, response.Sensors[0].Active)

	response, err = h.client.ChangeSensorActivation(ctx, &ChangeSensorActivationRequest{
		Name: door.Name,
		Type: door.Type,
	})
	require.NoError(t, err)
	require.Equal(t, domain.NoAlarm, response.AlarmStatus)

	response, err = h.client.ProcessImage(ctx, &ProcessImageRequest{Image: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.False(t, response.CatDetected)

	response, err = h.client.RemoveSensor(ctx, &SensorRequest{Sensor: door})
	require.NoError(t, err)
	require.Empty(t, response.Sensors)

	response, err = h.client.GetStatus(ctx, new(GetStatusRequest))
	require.NoError(t, err)
	require.Equal(t, domain.NoAlarm, response.AlarmStatus)
	require.Equal(t, domain.ArmedHome, response.ArmingStatus)
}

// TestServer_CatWhileArmedHome checks the classifier verdict is reported and raises the alarm.
func TestServer_CatWhileArmedHome(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, true)

	_, err := h.client.SetArmingStatus(ctx, &SetArmingStatusRequest{ArmingStatus: domain.ArmedHome})
	require.NoError(t, err)

	response, err := h.client.ProcessImage(ctx, &ProcessImageRequest{Image: []byte("frame")})
	require.NoError(t, err)
	require.True(t, response.CatDetected)
	require.Equal(t, domain.Alarm, response.AlarmStatus)
}

// TestServer_Validation ensures invalid requests map to the proper codes.
func TestServer_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, false)

	_, err := h.client.AddSensor(ctx, new(SensorRequest))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.AddSensor(ctx, &SensorRequest{Sensor: domain.NewSensor("", domain.Door)})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.ProcessImage(ctx, new(ProcessImageRequest))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.ChangeSensorActivation(ctx, &ChangeSensorActivationRequest{Name: "ghost", Active: true})
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.server.SetArmingStatus(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestServer_WatchEvents streams engine events to the client.
func TestServer_WatchEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, false)

	stream, err := h.client.WatchEvents(ctx, new(WatchEventsRequest))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.server.Watchers() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err = h.client.SetArmingStatus(ctx, &SetArmingStatusRequest{ArmingStatus: domain.ArmedAway})
	require.NoError(t, err)

	_, err = h.client.AddSensor(ctx, &SensorRequest{Sensor: domain.NewSensor("hall", domain.Motion)})
	require.NoError(t, err)

	_, err = h.client.ChangeSensorActivation(ctx, &ChangeSensorActivationRequest{
		Name:   "hall",
		Type:   domain.Motion,
		Active: true,
	})
	require.NoError(t, err)

	var kinds []svc.EventKind

	for len(kinds) < 3 {
		event, err := stream.Recv()
		require.NoError(t, err)

		kinds = append(kinds, event.Kind)

		if event.Kind == svc.EventAlarmStatusChanged {
			require.Equal(t, domain.PendingAlarm, event.AlarmStatus)
			require.Equal(t, domain.NoAlarm, event.PreviousAlarmStatus)
			require.NotEmpty(t, event.ID)
			require.False(t, event.Time.IsZero())
		}
	}

	require.Equal(t, []svc.EventKind{
		svc.EventSensorsChanged,
		svc.EventSensorsChanged,
		svc.EventAlarmStatusChanged,
	}, kinds)

	cancel()

	require.Eventually(t, func() bool { return h.server.Watchers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

// TestToStatusError maps engine errors onto gRPC codes.
func TestToStatusError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{err: svc.ErrInvalidArgument, code: codes.InvalidArgument},
		{err: svc.ErrUnavailable, code: codes.Unavailable},
		{err: errors.Join(svc.ErrUnavailable, state.ErrNotFound), code: codes.NotFound},
		{err: errors.New("boom"), code: codes.Internal},
	}

	for _, c := range cases {
		require.Equal(t, c.code, status.Code(toStatusError(ctx, "op", c.err)), c.err.Error())
	}
}

// TestClient_NilConnection reports a missing connection instead of panicking.
func TestClient_NilConnection(t *testing.T) {
	t.Parallel()

	_, err := NewSecurityServiceClient(nil).GetStatus(context.Background(), new(GetStatusRequest))
	require.Error(t, err)
}

// TestEventMessage_KeepsTime sends an event through the codec and checks the timestamp survives.
func TestEventMessage_KeepsTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.March, 1, 12, 30, 15, 250, time.UTC)
	event := &svc.Event{
		ID:                  "event-1",
		Kind:                svc.EventAlarmStatusChanged,
		Time:                at,
		AlarmStatus:         domain.Alarm,
		PreviousAlarmStatus: domain.PendingAlarm,
	}

	codec := jsonCodec{}

	data, err := codec.Marshal(eventToMessage(event))
	require.NoError(t, err)

	decoded := new(EventMessage)
	require.NoError(t, codec.Unmarshal(data, decoded))
	require.True(t, decoded.Time.IsValid())

	restored := eventFromMessage(decoded)
	require.True(t, at.Equal(restored.Time))
	require.Equal(t, event.ID, restored.ID)
	require.Equal(t, event.Kind, restored.Kind)
	require.Equal(t, domain.Alarm, restored.AlarmStatus)
	require.Equal(t, domain.PendingAlarm, restored.PreviousAlarmStatus)

	// A zero time stays zero.
	require.Nil(t, eventToMessage(&svc.Event{}).Time)
	require.True(t, eventFromMessage(&EventMessage{}).Time.IsZero())
}
