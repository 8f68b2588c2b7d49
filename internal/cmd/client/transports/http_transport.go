package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
)

// HTTPError carries a non-2xx response from the HTTP API.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// HTTPTransport implements RecordsTransport against the JSON HTTP API.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport constructs an HTTPTransport. A nil client uses http.DefaultClient.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &HTTPError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func patientPath(id string) string {
	return "/v1/patients/" + url.PathEscape(id)
}

// CreatePatient posts a patient.
func (t *HTTPTransport) CreatePatient(ctx context.Context, req medtrailv1.CreatePatientRequest) (medtrailv1.Patient, error) {
	var out medtrailv1.Patient
	err := t.do(ctx, http.MethodPost, "/v1/patients", nil, req, &out)
	return out, err
}

// GetPatient fetches one patient.
func (t *HTTPTransport) GetPatient(ctx context.Context, id string) (medtrailv1.Patient, error) {
	var out medtrailv1.Patient
	err := t.do(ctx, http.MethodGet, patientPath(id), nil, nil, &out)
	return out, err
}

// ListPatients lists patients.
func (t *HTTPTransport) ListPatients(ctx context.Context, limit int) (medtrailv1.ListPatientsResponse, error) {
	var out medtrailv1.ListPatientsResponse
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	err := t.do(ctx, http.MethodGet, "/v1/patients", q, nil, &out)
	return out, err
}

// DeletePatient removes a patient.
func (t *HTTPTransport) DeletePatient(ctx context.Context, id string, cascade bool) (medtrailv1.DeletePatientResponse, error) {
	var out medtrailv1.DeletePatientResponse
	q := url.Values{}
	if cascade {
		q.Set("cascade", "true")
	}
	err := t.do(ctx, http.MethodDelete, patientPath(id), q, nil, &out)
	return out, err
}

// AddEvent posts an event to the request's patient.
func (t *HTTPTransport) AddEvent(ctx context.Context, req medtrailv1.AddEventRequest) (medtrailv1.Event, error) {
	var out medtrailv1.Event
	err := t.do(ctx, http.MethodPost, patientPath(req.PatientID)+"/events", nil, req, &out)
	return out, err
}

// ListEvents lists a patient's events.
func (t *HTTPTransport) ListEvents(ctx context.Context, req medtrailv1.ListEventsRequest) (medtrailv1.ListEventsResponse, error) {
	var out medtrailv1.ListEventsResponse
	q := url.Values{}
	if req.WindowDays != nil {
		q.Set("window_days", strconv.Itoa(*req.WindowDays))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.PageToken != "" {
		q.Set("page_token", req.PageToken)
	}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	err := t.do(ctx, http.MethodGet, patientPath(req.PatientID)+"/events", q, nil, &out)
	return out, err
}

var (
	_ RecordsTransport = (*HTTPTransport)(nil)
	_ RecordsTransport = (*GrpcTransport)(nil)
)
