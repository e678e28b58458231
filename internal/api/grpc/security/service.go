package security

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	svc "github.com/oshokin/home-alarm/internal/service/security"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarm.v1.SecurityService"

// Method names.
const (
	MethodGetStatus              = "GetStatus"
	MethodSetArmingStatus        = "SetArmingStatus"
	MethodAddSensor              = "AddSensor"
	MethodRemoveSensor           = "RemoveSensor"
	MethodChangeSensorActivation = "ChangeSensorActivation"
	MethodProcessImage           = "ProcessImage"
	MethodWatchEvents            = "WatchEvents"
)

// SecurityServiceServer is the server API of the security service.
type SecurityServiceServer interface {
	GetStatus(ctx context.Context, req *GetStatusRequest) (*StatusResponse, error)
	SetArmingStatus(ctx context.Context, req *SetArmingStatusRequest) (*StatusResponse, error)
	AddSensor(ctx context.Context, req *SensorRequest) (*StatusResponse, error)
	RemoveSensor(ctx context.Context, req *SensorRequest) (*StatusResponse, error)
	ChangeSensorActivation(ctx context.Context, req *ChangeSensorActivationRequest) (*StatusResponse, error)
	ProcessImage(ctx context.Context, req *ProcessImageRequest) (*StatusResponse, error)
	WatchEvents(req *WatchEventsRequest, stream EventSender) error
}

// EventSender is the server side of a WatchEvents stream.
type EventSender interface {
	Send(event *svc.Event) error
	Context() context.Context
}

// EventReceiver is the client side of a WatchEvents stream.
type EventReceiver interface {
	Recv() (*svc.Event, error)
}

// ServiceDesc describes the security service for grpc.Server registration.
//
//nolint:gochecknoglobals // Service descriptors are package level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodGetStatus, Handler: unaryHandler(MethodGetStatus, SecurityServiceServer.GetStatus)},
		{MethodName: MethodSetArmingStatus, Handler: unaryHandler(MethodSetArmingStatus, SecurityServiceServer.SetArmingStatus)},
		{MethodName: MethodAddSensor, Handler: unaryHandler(MethodAddSensor, SecurityServiceServer.AddSensor)},
		{MethodName: MethodRemoveSensor, Handler: unaryHandler(MethodRemoveSensor, SecurityServiceServer.RemoveSensor)},
		{
			MethodName: MethodChangeSensorActivation,
			Handler:    unaryHandler(MethodChangeSensorActivation, SecurityServiceServer.ChangeSensorActivation),
		},
		{MethodName: MethodProcessImage, Handler: unaryHandler(MethodProcessImage, SecurityServiceServer.ProcessImage)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchEvents,
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "alarm/v1/security.proto",
}

// RegisterSecurityServiceServer registers srv on the gRPC server.
func RegisterSecurityServiceServer(registrar grpc.ServiceRegistrar, srv SecurityServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the full gRPC method name, e.g. for interceptors.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](
	method string,
	call func(SecurityServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(SecurityServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// watchEventsHandler reads the single request and hands the stream to the server.
func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(SecurityServiceServer)

	return server.WatchEvents(in, &eventSender{stream})
}

// eventSender implements EventSender over a grpc.ServerStream.
type eventSender struct {
	grpc.ServerStream
}

// Send writes one event to the stream.
func (s *eventSender) Send(event *svc.Event) error {
	return s.SendMsg(eventToMessage(event))
}

// SecurityServiceClient is a typed client of the security service.
type SecurityServiceClient struct {
	// cc is the connection calls are made on.
	cc grpc.ClientConnInterface
}

// NewSecurityServiceClient returns a client calling the service over cc with the JSON codec.
func NewSecurityServiceClient(cc grpc.ClientConnInterface) *SecurityServiceClient {
	return &SecurityServiceClient{cc: cc}
}

// GetStatus calls SecurityService.GetStatus.
func (c *SecurityServiceClient) GetStatus(
	ctx context.Context,
	req *GetStatusRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodGetStatus, req, opts)
}

// SetArmingStatus calls SecurityService.SetArmingStatus.
func (c *SecurityServiceClient) SetArmingStatus(
	ctx context.Context,
	req *SetArmingStatusRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodSetArmingStatus, req, opts)
}

// AddSensor calls SecurityService.AddSensor.
func (c *SecurityServiceClient) AddSensor(
	ctx context.Context,
	req *SensorRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodAddSensor, req, opts)
}

// RemoveSensor calls SecurityService.RemoveSensor.
func (c *SecurityServiceClient) RemoveSensor(
	ctx context.Context,
	req *SensorRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodRemoveSensor, req, opts)
}

// ChangeSensorActivation calls SecurityService.ChangeSensorActivation.
func (c *SecurityServiceClient) ChangeSensorActivation(
	ctx context.Context,
	req *ChangeSensorActivationRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodChangeSensorActivation, req, opts)
}

// ProcessImage calls SecurityService.ProcessImage.
func (c *SecurityServiceClient) ProcessImage(
	ctx context.Context,
	req *ProcessImageRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodProcessImage, req, opts)
}

// WatchEvents opens the SecurityService.WatchEvents stream.
func (c *SecurityServiceClient) WatchEvents(
	ctx context.Context,
	req *WatchEventsRequest,
	opts ...grpc.CallOption,
) (EventReceiver, error) {
	opts = append(opts, CallOption())

	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod(MethodWatchEvents), opts...)
	if err != nil {
		return nil, err
	}

	if err = stream.SendMsg(req); err != nil {
		return nil, err
	}

	if err = stream.CloseSend(); err != nil {
		return nil, err
	}

	return &eventReceiver{stream}, nil
}

// eventReceiver implements EventReceiver over a grpc.ClientStream.
type eventReceiver struct {
	grpc.ClientStream
}

// Recv reads the next event.
func (r *eventReceiver) Recv() (*svc.Event, error) {
	message := new(EventMessage)
	if err := r.RecvMsg(message); err != nil {
		return nil, err
	}

	return eventFromMessage(message), nil
}

// invoke performs a unary call with the JSON codec.
func invoke[Resp any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	req any,
	opts []grpc.CallOption,
) (*Resp, error) {
	if cc == nil {
		return nil, fmt.Errorf("%s: connection is not set", method)
	}

	out := new(Resp)

	opts = append(opts, CallOption())
	if err := cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
