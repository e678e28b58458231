package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "github.com/oshokin/home-alarm/internal/api/grpc/security"
	"github.com/oshokin/home-alarm/internal/config"
	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
	"github.com/oshokin/home-alarm/internal/logger"
	"github.com/oshokin/home-alarm/internal/service/common"
	svc "github.com/oshokin/home-alarm/internal/service/security"
)

// Options configures how alarm-ctl reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Output receives human readable results, stdout when nil.
	Output io.Writer
}

// Session is a connection to the alarm server bound to an output.
type Session struct {
	// client is the connected gRPC client.
	client *common.Client
	// out receives the printed results.
	out io.Writer
}

// errEmptyImageFile is returned when the image file has no content.
var errEmptyImageFile = errors.New("image file is empty")

// Open loads settings and connects to the server.
func Open(ctx context.Context, opts *Options) (*Session, error) {
	ctx = logger.WithName(ctx, "alarm-ctl")

	var (
		timeout       = config.DefaultTimeout
		serverAddress = opts.ServerAddress
	)

	// The config file is optional when the address is given on the command line.
	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
		timeout = cfg.Timeout

		if serverAddress == "" {
			serverAddress = cfg.ServerAddress
		}
	case serverAddress == "":
		return nil, err
	default:
		logger.DebugKV(ctx, "Settings not loaded, using command line address", "error", err)
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(timeout))
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return &Session{client: client, out: out}, nil
}

// Close releases the connection.
func (s *Session) Close() error {
	return s.client.Close()
}

// Status prints the current status.
func (s *Session) Status(ctx context.Context) error {
	resp, err := s.client.GetStatus(ctx)
	if err != nil {
		return err
	}

	return s.printStatus(resp)
}

// Arm changes the arming mode, e.g. "armed_home".
func (s *Session) Arm(ctx context.Context, mode string) error {
	armingStatus, err := domain.ParseArmingStatus(mode)
	if err != nil {
		return err
	}

	// The actor is informational: a failure to detect it does not block arming.
	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	resp, err := s.client.SetArmingStatus(ctx, actor, armingStatus)
	if err != nil {
		return err
	}

	return s.printStatus(resp)
}

// AddSensor registers a new inactive sensor.
func (s *Session) AddSensor(ctx context.Context, name, sensorType string) error {
	sensor, err := parseSensor(name, sensorType)
	if err != nil {
		return err
	}

	resp, err := s.client.AddSensor(ctx, sensor)
	if err != nil {
		return err
	}

	return s.printStatus(resp)
}

// RemoveSensor deletes a sensor.
func (s *Session) RemoveSensor(ctx context.Context, name, sensorType string) error {
	sensor, err := parseSensor(name, sensorType)
	if err != nil {
		return err
	}

	resp, err := s.client.RemoveSensor(ctx, sensor)
	if err != nil {
		return err
	}

	return s.printStatus(resp)
}

// SetSensorActive reports a sensor activation or deactivation.
func (s *Session) SetSensorActive(ctx context.Context, name, sensorType string, active bool) error {
	sensor, err := parseSensor(name, sensorType)
	if err != nil {
		return err
	}

	resp, err := s.client.ChangeSensorActivation(ctx, sensor.Key(), active)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("sensor %s is not registered: %w", sensor.Key(), err)
		}

		return err
	}

	return s.printStatus(resp)
}

// SendImage uploads the frame stored at path.
func (s *Session) SendImage(ctx context.Context, path string) error {
	image, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	if len(image) == 0 {
		return fmt.Errorf("%w: %s", errEmptyImageFile, path)
	}

	resp, err := s.client.ProcessImage(ctx, image)
	if err != nil {
		return err
	}

	return s.printStatus(resp)
}

// Watch prints events until ctx is canceled or the server closes the stream.
func (s *Session) Watch(ctx context.Context) error {
	stream, err := s.client.WatchEvents(ctx)
	if err != nil {
		return err
	}

	for {
		event, err := stream.Recv()

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), ctx.Err() != nil, status.Code(err) == codes.Canceled:
			return nil
		default:
			return fmt.Errorf("receive event: %w", err)
		}

		if err = s.printEvent(event); err != nil {
			return err
		}
	}
}

// printStatus writes a status response in a stable, line oriented format.
func (s *Session) printStatus(resp *api.StatusResponse) error {
	var b strings.Builder

	fmt.Fprintf(&b, "alarm:  %s\n", resp.AlarmStatus)
	fmt.Fprintf(&b, "arming: %s\n", resp.ArmingStatus)
	fmt.Fprintf(&b, "cat:    %t\n", resp.CatDetected)

	if len(resp.Sensors) == 0 {
		b.WriteString("sensors: none\n")
	} else {
		b.WriteString("sensors:\n")

		for _, sensor := range resp.Sensors {
			state := "inactive"
			if sensor.Active {
				state = "active"
			}

			fmt.Fprintf(&b, "  %s %s\n", sensor.Key(), state)
		}
	}

	_, err := io.WriteString(s.out, b.String())

	return err
}

// printEvent writes one event per line.
func (s *Session) printEvent(event *svc.Event) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s alarm=%s", event.Time.Format(time.RFC3339), event.Kind, event.AlarmStatus)

	switch event.Kind {
	case svc.EventAlarmStatusChanged:
		fmt.Fprintf(&b, " previous=%s", event.PreviousAlarmStatus)
	case svc.EventCatDetected:
		fmt.Fprintf(&b, " cat=%t", event.CatDetected)
	case svc.EventSensorsChanged:
		if event.Sensor != nil {
			fmt.Fprintf(&b, " sensor=%s active=%t", event.Sensor.Key(), event.Sensor.Active)
		}
	}

	b.WriteString("\n")

	_, err := io.WriteString(s.out, b.String())

	return err
}

// parseSensor builds a sensor from command line arguments.
func parseSensor(name, sensorType string) (*domain.Sensor, error) {
	parsedType, err := domain.ParseSensorType(sensorType)
	if err != nil {
		return nil, err
	}

	sensor := domain.NewSensor(name, parsedType)
	if err = sensor.Validate(); err != nil {
		return nil, err
	}

	return sensor, nil
}
