// Package wire converts between the medtrail.v1 wire types and the records
// service types. Both transports decode requests and encode replies here.
package wire

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
	"github.com/rzbill/medtrail/internal/services/records"
	"github.com/rzbill/medtrail/internal/storeerr"
	"github.com/rzbill/medtrail/pkg/id"
)

// TimeLayout is the timestamp format on the wire.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ParsePatientID parses a patient id, reporting malformed input as an invalid key.
func ParsePatientID(s string) (uuid.UUID, error) {
	rid, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, storeerr.InvalidKey("malformed patient id %q", s)
	}
	return rid, nil
}

// ParseTimestamp accepts RFC3339 or unix milliseconds. "" yields the zero time.
func ParseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t, nil
	}
	return time.Time{}, storeerr.InvalidArgument("timestamp must be RFC3339 or unix millis")
}

// RootDraft maps a create request onto the service draft.
func RootDraft(req medtrailv1.CreatePatientRequest) (records.RootDraft, error) {
	d := records.RootDraft{Name: req.Name, DateOfBirth: req.DateOfBirth, Attributes: req.Attributes}
	if req.ID != "" {
		rid, err := ParsePatientID(req.ID)
		if err != nil {
			return records.RootDraft{}, err
		}
		d.ID = rid
	}
	return d, nil
}

// EventDraft maps an add-event request onto the service draft.
func EventDraft(req medtrailv1.AddEventRequest) (records.EventDraft, error) {
	d := records.EventDraft{
		EventType:   req.EventType,
		Description: req.Description,
		Codes:       req.Codes,
		CreatedBy:   req.CreatedBy,
	}
	if req.EventID != "" {
		eid, err := id.Parse(req.EventID)
		if err != nil {
			return records.EventDraft{}, storeerr.InvalidKey("malformed event id %q", req.EventID)
		}
		d.EventID = eid
	}
	ts, err := ParseTimestamp(req.Timestamp)
	if err != nil {
		return records.EventDraft{}, err
	}
	d.Timestamp = ts
	return d, nil
}

// ListOptions maps a list request onto the service options, applying
// defaultDays when the request leaves the window unset.
func ListOptions(req medtrailv1.ListEventsRequest, defaultDays int) records.ListOptions {
	days := defaultDays
	if req.WindowDays != nil {
		days = *req.WindowDays
	}
	return records.ListOptions{WindowDays: days, Limit: req.Limit, PageToken: req.PageToken, Filter: req.Filter}
}

// Paged reports whether a list request needs the paged path.
func Paged(req medtrailv1.ListEventsRequest) bool {
	return req.Limit != 0 || req.PageToken != "" || req.Filter != ""
}

// Patient encodes a root.
func Patient(r records.Root) medtrailv1.Patient {
	return medtrailv1.Patient{
		ID:          r.ID.String(),
		Name:        r.Name,
		DateOfBirth: r.DateOfBirth,
		Attributes:  r.Attributes,
		UpdatedAtMs: r.UpdatedAtMs,
	}
}

// Patients encodes a root listing.
func Patients(rs []records.Root) medtrailv1.ListPatientsResponse {
	out := medtrailv1.ListPatientsResponse{Patients: make([]medtrailv1.Patient, 0, len(rs))}
	for _, r := range rs {
		out.Patients = append(out.Patients, Patient(r))
	}
	return out
}

// Event encodes an event view.
func Event(v records.EventView) medtrailv1.Event {
	return medtrailv1.Event{
		PatientID:   v.RootID.String(),
		EventID:     v.EventID.String(),
		Timestamp:   v.Timestamp.UTC().Format(TimeLayout),
		EventType:   v.EventType,
		Description: v.Description,
		Codes:       v.Codes,
		CreatedBy:   v.CreatedBy,
		Urgent:      v.Urgent,
	}
}

// Events encodes a page of event views.
func Events(vs []records.EventView, next string) medtrailv1.ListEventsResponse {
	out := medtrailv1.ListEventsResponse{Events: make([]medtrailv1.Event, 0, len(vs)), NextPageToken: next}
	for _, v := range vs {
		out.Events = append(out.Events, Event(v))
	}
	return out
}
