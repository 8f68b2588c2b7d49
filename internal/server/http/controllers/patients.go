package controllers

import (
	"net/http"

	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
	"github.com/rzbill/medtrail/internal/runtime"
	"github.com/rzbill/medtrail/internal/server/wire"
	"github.com/rzbill/medtrail/internal/services/records"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

// PatientsController exposes patients and their events.
type PatientsController struct {
	svc               *records.Service
	defaultWindowDays int
	logger            logpkg.Logger
}

// NewPatientsController creates a controller over rt's records service.
func NewPatientsController(rt *runtime.Runtime, logger logpkg.Logger) *PatientsController {
	return &PatientsController{
		svc:               rt.Records(),
		defaultWindowDays: rt.Config().Events.DefaultWindowDays,
		logger:            logger,
	}
}

// RegisterRoutes registers the patient and event endpoints:
//   - POST   /v1/patients
//   - GET    /v1/patients?limit=
//   - GET    /v1/patients/{id}
//   - DELETE /v1/patients/{id}?cascade=true
//   - POST   /v1/patients/{id}/events
//   - GET    /v1/patients/{id}/events?window_days=&limit=&page_token=&filter=
func (c *PatientsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/patients", c.handleCreate)
	mux.HandleFunc("GET /v1/patients", c.handleList)
	mux.HandleFunc("GET /v1/patients/{id}", c.handleGet)
	mux.HandleFunc("DELETE /v1/patients/{id}", c.handleDelete)
	mux.HandleFunc("POST /v1/patients/{id}/events", c.handleAddEvent)
	mux.HandleFunc("GET /v1/patients/{id}/events", c.handleListEvents)
}

func (c *PatientsController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		c.logger.WithContext(r.Context()).Error("request failed",
			logpkg.Str("path", r.URL.Path), logpkg.Int("status", status), logpkg.Err(err))
	}
	writeError(w, status, err.Error())
}

func (c *PatientsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req medtrailv1.CreatePatientRequest
	if err := decodeBody(w, r, &req); err != nil {
		c.fail(w, r, err)
		return
	}
	draft, err := wire.RootDraft(req)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	root, err := c.svc.CreateRoot(r.Context(), draft)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeCreated(w, wire.Patient(root))
}

func (c *PatientsController) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 100)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	roots, err := c.svc.ListRoots(r.Context(), limit)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, wire.Patients(roots))
}

func (c *PatientsController) handleGet(w http.ResponseWriter, r *http.Request) {
	rid, err := wire.ParsePatientID(r.PathValue("id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	root, ok, err := c.svc.GetRoot(r.Context(), rid)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	writeJSON(w, wire.Patient(root))
}

func (c *PatientsController) handleDelete(w http.ResponseWriter, r *http.Request) {
	rid, err := wire.ParsePatientID(r.PathValue("id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	res, err := c.svc.DeleteRoot(r.Context(), rid, parseBool(r.URL.Query().Get("cascade")))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, medtrailv1.DeletePatientResponse{EventsRemoved: res.EventsRemoved})
}

func (c *PatientsController) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	rid, err := wire.ParsePatientID(r.PathValue("id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	var req medtrailv1.AddEventRequest
	if err := decodeBody(w, r, &req); err != nil {
		c.fail(w, r, err)
		return
	}
	draft, err := wire.EventDraft(req)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	view, err := c.svc.AddEvent(r.Context(), rid, draft)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeCreated(w, wire.Event(view))
}

func (c *PatientsController) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := medtrailv1.ListEventsRequest{
		PatientID: r.PathValue("id"),
		PageToken: q.Get("page_token"),
		Filter:    q.Get("filter"),
	}
	if q.Has("window_days") {
		days, err := parseIntParam(r, "window_days", 0)
		if err != nil {
			c.fail(w, r, err)
			return
		}
		req.WindowDays = &days
	}
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	req.Limit = limit

	rid, err := wire.ParsePatientID(req.PatientID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	opts := wire.ListOptions(req, c.defaultWindowDays)
	if !wire.Paged(req) {
		events, err := c.svc.ListEvents(r.Context(), rid, opts.WindowDays)
		if err != nil {
			c.fail(w, r, err)
			return
		}
		writeJSON(w, wire.Events(events, ""))
		return
	}
	page, err := c.svc.ListEventsPage(r.Context(), rid, opts)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, wire.Events(page.Events, page.NextPageToken))
}
