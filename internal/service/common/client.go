//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/home-alarm/internal/api/grpc/security"
	"github.com/oshokin/home-alarm/internal/config"
	domain "github.com/oshokin/home-alarm/internal/domain/alarm"
)

// Client wraps the SecurityService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alarm server.
	conn *grpc.ClientConn
	// api is the typed SecurityService client.
	api *api.SecurityServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errSensorRequired is returned when a sensor is not provided but is required for the operation.
	errSensorRequired = errors.New("sensor must be provided")
	// errNotConnected is returned when a call is made on a client without a connection.
	errNotConnected = errors.New("client is not connected")
)

// Dial establishes a gRPC connection to the alarm server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewSecurityServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the current alarm status.
func (c *Client) GetStatus(ctx context.Context) (*api.StatusResponse, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, new(api.GetStatusRequest))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return resp, nil
}

// SetArmingStatus changes the remote arming mode. The actor may be nil.
func (c *Client) SetArmingStatus(
	ctx context.Context,
	actor *api.Actor,
	status domain.ArmingStatus,
) (*api.StatusResponse, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := &api.SetArmingStatusRequest{
		ArmingStatus: status,
		Actor:        actor,
	}

	resp, err := c.api.SetArmingStatus(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("set arming status: %w", err)
	}

	return resp, nil
}

// AddSensor registers a sensor on the server.
func (c *Client) AddSensor(ctx context.Context, sensor *domain.Sensor) (*api.StatusResponse, error) {
	if sensor == nil {
		return nil, errSensorRequired
	}

	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.AddSensor(callCtx, &api.SensorRequest{Sensor: sensor})
	if err != nil {
		return nil, fmt.Errorf("add sensor: %w", err)
	}

	return resp, nil
}

// RemoveSensor deletes a sensor on the server.
func (c *Client) RemoveSensor(ctx context.Context, sensor *domain.Sensor) (*api.StatusResponse, error) {
	if sensor == nil {
		return nil, errSensorRequired
	}

	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.RemoveSensor(callCtx, &api.SensorRequest{Sensor: sensor})
	if err != nil {
		return nil, fmt.Errorf("remove sensor: %w", err)
	}

	return resp, nil
}

// ChangeSensorActivation reports a sensor (de)activation.
func (c *Client) ChangeSensorActivation(
	ctx context.Context,
	key domain.SensorKey,
	active bool,
) (*api.StatusResponse, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := &api.ChangeSensorActivationRequest{
		Name:   key.Name,
		Type:   key.Type,
		Active: active,
	}

	resp, err := c.api.ChangeSensorActivation(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("change sensor activation: %w", err)
	}

	return resp, nil
}

// ProcessImage sends a camera frame to the classifier.
func (c *Client) ProcessImage(ctx context.Context, image []byte) (*api.StatusResponse, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ProcessImage(callCtx, &api.ProcessImageRequest{Image: image})
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}

	return resp, nil
}

// WatchEvents opens the event stream. The stream lives until ctx is canceled,
// so no call timeout applies.
func (c *Client) WatchEvents(ctx context.Context) (api.EventReceiver, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	stream, err := c.api.WatchEvents(ctx, new(api.WatchEventsRequest))
	if err != nil {
		return nil, fmt.Errorf("watch events: %w", err)
	}

	return stream, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
