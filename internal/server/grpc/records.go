package grpcserver

import (
	"context"

	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
	"github.com/rzbill/medtrail/internal/server/wire"
	"github.com/rzbill/medtrail/internal/services/records"
	"github.com/rzbill/medtrail/internal/storeerr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type recordsSvc struct {
	svc               *records.Service
	defaultWindowDays int
}

func decode(in *structpb.Struct, v any) error {
	if err := medtrailv1.FromStruct(in, v); err != nil {
		return storeerr.InvalidArgument("%v", err)
	}
	return nil
}

func reply(v any) (*structpb.Struct, error) {
	out, err := medtrailv1.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *recordsSvc) CreatePatient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req medtrailv1.CreatePatientRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(err)
	}
	draft, err := wire.RootDraft(req)
	if err != nil {
		return nil, toStatus(err)
	}
	root, err := s.svc.CreateRoot(ctx, draft)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(wire.Patient(root))
}

func (s *recordsSvc) GetPatient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req medtrailv1.PatientRef
	if err := decode(in, &req); err != nil {
		return nil, toStatus(err)
	}
	rid, err := wire.ParsePatientID(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	root, ok, err := s.svc.GetRoot(ctx, rid)
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return nil, status.Errorf(codes.NotFound, "patient %s not found", rid)
	}
	return reply(wire.Patient(root))
}

func (s *recordsSvc) ListPatients(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req medtrailv1.ListPatientsRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(err)
	}
	roots, err := s.svc.ListRoots(ctx, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(wire.Patients(roots))
}

func (s *recordsSvc) DeletePatient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req medtrailv1.DeletePatientRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(err)
	}
	rid, err := wire.ParsePatientID(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.svc.DeleteRoot(ctx, rid, req.Cascade)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(medtrailv1.DeletePatientResponse{EventsRemoved: res.EventsRemoved})
}

func (s *recordsSvc) AddEvent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req medtrailv1.AddEventRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(err)
	}
	rid, err := wire.ParsePatientID(req.PatientID)
	if err != nil {
		return nil, toStatus(err)
	}
	draft, err := wire.EventDraft(req)
	if err != nil {
		return nil, toStatus(err)
	}
	view, err := s.svc.AddEvent(ctx, rid, draft)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(wire.Event(view))
}

func (s *recordsSvc) ListEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req medtrailv1.ListEventsRequest
	if err := decode(in, &req); err != nil {
		return nil, toStatus(err)
	}
	rid, err := wire.ParsePatientID(req.PatientID)
	if err != nil {
		return nil, toStatus(err)
	}
	opts := wire.ListOptions(req, s.defaultWindowDays)
	if !wire.Paged(req) {
		events, err := s.svc.ListEvents(ctx, rid, opts.WindowDays)
		if err != nil {
			return nil, toStatus(err)
		}
		return reply(wire.Events(events, ""))
	}
	page, err := s.svc.ListEventsPage(ctx, rid, opts)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(wire.Events(page.Events, page.NextPageToken))
}
