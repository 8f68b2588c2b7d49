package medtrailv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "medtrail.v1.Records"

const (
	MethodCreatePatient = "/" + ServiceName + "/CreatePatient"
	MethodGetPatient    = "/" + ServiceName + "/GetPatient"
	MethodListPatients  = "/" + ServiceName + "/ListPatients"
	MethodDeletePatient = "/" + ServiceName + "/DeletePatient"
	MethodAddEvent      = "/" + ServiceName + "/AddEvent"
	MethodListEvents    = "/" + ServiceName + "/ListEvents"
)

// RecordsServer is the server API for medtrail.v1.Records.
type RecordsServer interface {
	CreatePatient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPatient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPatients(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeletePatient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddEvent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(RecordsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordsServer), ctx, req.(*structpb.Struct))
		})
	}
}

// RecordsServiceDesc is the grpc.ServiceDesc for medtrail.v1.Records.
var RecordsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreatePatient", Handler: unaryHandler(MethodCreatePatient, RecordsServer.CreatePatient)},
		{MethodName: "GetPatient", Handler: unaryHandler(MethodGetPatient, RecordsServer.GetPatient)},
		{MethodName: "ListPatients", Handler: unaryHandler(MethodListPatients, RecordsServer.ListPatients)},
		{MethodName: "DeletePatient", Handler: unaryHandler(MethodDeletePatient, RecordsServer.DeletePatient)},
		{MethodName: "AddEvent", Handler: unaryHandler(MethodAddEvent, RecordsServer.AddEvent)},
		{MethodName: "ListEvents", Handler: unaryHandler(MethodListEvents, RecordsServer.ListEvents)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterRecordsServer registers srv on s.
func RegisterRecordsServer(s grpc.ServiceRegistrar, srv RecordsServer) {
	s.RegisterService(&RecordsServiceDesc, srv)
}

// RecordsClient calls medtrail.v1.Records with typed wire values.
type RecordsClient struct {
	cc grpc.ClientConnInterface
}

// NewRecordsClient wraps cc.
func NewRecordsClient(cc grpc.ClientConnInterface) *RecordsClient {
	return &RecordsClient{cc: cc}
}

// Call invokes method with in encoded as a Struct and decodes the reply into out.
func (c *RecordsClient) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := ToStruct(in)
	if err != nil {
		return err
	}
	res := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, res, opts...); err != nil {
		return err
	}
	return FromStruct(res, out)
}

func (c *RecordsClient) CreatePatient(ctx context.Context, in CreatePatientRequest) (Patient, error) {
	var out Patient
	err := c.Call(ctx, MethodCreatePatient, in, &out)
	return out, err
}

func (c *RecordsClient) GetPatient(ctx context.Context, patientID string) (Patient, error) {
	var out Patient
	err := c.Call(ctx, MethodGetPatient, PatientRef{ID: patientID}, &out)
	return out, err
}

func (c *RecordsClient) ListPatients(ctx context.Context, in ListPatientsRequest) (ListPatientsResponse, error) {
	var out ListPatientsResponse
	err := c.Call(ctx, MethodListPatients, in, &out)
	return out, err
}

func (c *RecordsClient) DeletePatient(ctx context.Context, in DeletePatientRequest) (DeletePatientResponse, error) {
	var out DeletePatientResponse
	err := c.Call(ctx, MethodDeletePatient, in, &out)
	return out, err
}

func (c *RecordsClient) AddEvent(ctx context.Context, in AddEventRequest) (Event, error) {
	var out Event
	err := c.Call(ctx, MethodAddEvent, in, &out)
	return out, err
}

func (c *RecordsClient) ListEvents(ctx context.Context, in ListEventsRequest) (ListEventsResponse, error) {
	var out ListEventsResponse
	err := c.Call(ctx, MethodListEvents, in, &out)
	return out, err
}
