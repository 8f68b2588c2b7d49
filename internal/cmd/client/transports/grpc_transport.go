package transports

import (
	"context"

	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
	"google.golang.org/grpc"
)

// GrpcTransport implements RecordsTransport over gRPC.
type GrpcTransport struct {
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

// NewGrpcTransport constructs a new GrpcTransport using the provided dialer.
func NewGrpcTransport(dial func(ctx context.Context) (*grpc.ClientConn, error)) *GrpcTransport {
	return &GrpcTransport{dial: dial}
}

func (t *GrpcTransport) withClient(ctx context.Context, fn func(cli *medtrailv1.RecordsClient) error) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(medtrailv1.NewRecordsClient(conn))
}

// CreatePatient creates or replaces a patient via gRPC.
func (t *GrpcTransport) CreatePatient(ctx context.Context, req medtrailv1.CreatePatientRequest) (medtrailv1.Patient, error) {
	var out medtrailv1.Patient
	err := t.withClient(ctx, func(cli *medtrailv1.RecordsClient) error {
		var err error
		out, err = cli.CreatePatient(ctx, req)
		return err
	})
	return out, err
}

// GetPatient fetches one patient via gRPC.
func (t *GrpcTransport) GetPatient(ctx context.Context, id string) (medtrailv1.Patient, error) {
	var out medtrailv1.Patient
	err := t.withClient(ctx, func(cli *medtrailv1.RecordsClient) error {
		var err error
		out, err = cli.GetPatient(ctx, id)
		return err
	})
	return out, err
}

// ListPatients lists patients via gRPC.
func (t *GrpcTransport) ListPatients(ctx context.Context, limit int) (medtrailv1.ListPatientsResponse, error) {
	var out medtrailv1.ListPatientsResponse
	err := t.withClient(ctx, func(cli *medtrailv1.RecordsClient) error {
		var err error
		out, err = cli.ListPatients(ctx, medtrailv1.ListPatientsRequest{Limit: limit})
		return err
	})
	return out, err
}

// DeletePatient removes a patient via gRPC.
func (t *GrpcTransport) DeletePatient(ctx context.Context, id string, cascade bool) (medtrailv1.DeletePatientResponse, error) {
	var out medtrailv1.DeletePatientResponse
	err := t.withClient(ctx, func(cli *medtrailv1.RecordsClient) error {
		var err error
		out, err = cli.DeletePatient(ctx, medtrailv1.DeletePatientRequest{ID: id, Cascade: cascade})
		return err
	})
	return out, err
}

// AddEvent appends an event via gRPC.
func (t *GrpcTransport) AddEvent(ctx context.Context, req medtrailv1.AddEventRequest) (medtrailv1.Event, error) {
	var out medtrailv1.Event
	err := t.withClient(ctx, func(cli *medtrailv1.RecordsClient) error {
		var err error
		out, err = cli.AddEvent(ctx, req)
		return err
	})
	return out, err
}

// ListEvents lists a patient's events via gRPC.
func (t *GrpcTransport) ListEvents(ctx context.Context, req medtrailv1.ListEventsRequest) (medtrailv1.ListEventsResponse, error) {
	var out medtrailv1.ListEventsResponse
	err := t.withClient(ctx, func(cli *medtrailv1.RecordsClient) error {
		var err error
		out, err = cli.ListEvents(ctx, req)
		return err
	})
	return out, err
}
