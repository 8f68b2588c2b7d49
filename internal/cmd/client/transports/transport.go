// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"context"

	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
)

// RecordsTransport abstracts how the CLI reaches a medtrail server.
type RecordsTransport interface {
	CreatePatient(ctx context.Context, req medtrailv1.CreatePatientRequest) (medtrailv1.Patient, error)
	GetPatient(ctx context.Context, id string) (medtrailv1.Patient, error)
	ListPatients(ctx context.Context, limit int) (medtrailv1.ListPatientsResponse, error)
	DeletePatient(ctx context.Context, id string, cascade bool) (medtrailv1.DeletePatientResponse, error)
	AddEvent(ctx context.Context, req medtrailv1.AddEventRequest) (medtrailv1.Event, error)
	ListEvents(ctx context.Context, req medtrailv1.ListEventsRequest) (medtrailv1.ListEventsResponse, error)
}
