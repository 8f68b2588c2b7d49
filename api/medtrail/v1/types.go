package medtrailv1

// CreatePatientRequest creates or, when ID names an existing patient,
// replaces a patient.
type CreatePatientRequest struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	DateOfBirth string            `json:"dateOfBirth,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// PatientRef addresses one patient.
type PatientRef struct {
	ID string `json:"id"`
}

// DeletePatientRequest removes a patient; Cascade also drops its events.
type DeletePatientRequest struct {
	ID      string `json:"id"`
	Cascade bool   `json:"cascade,omitempty"`
}

// DeletePatientResponse reports how many events a cascade removed.
type DeletePatientResponse struct {
	EventsRemoved int `json:"eventsRemoved"`
}

// ListPatientsRequest pages over patients.
type ListPatientsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Patient is the patient wire form.
type Patient struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DateOfBirth string            `json:"dateOfBirth,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	UpdatedAtMs int64             `json:"updatedAtMs"`
}

// ListPatientsResponse wraps a patient listing.
type ListPatientsResponse struct {
	Patients []Patient `json:"patients"`
}

// AddEventRequest appends an event. EventID (32 hex chars) and Timestamp
// (RFC3339 or unix millis) are generated when empty.
type AddEventRequest struct {
	PatientID   string   `json:"patientId,omitempty"`
	EventID     string   `json:"eventId,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	EventType   string   `json:"eventType"`
	Description string   `json:"description,omitempty"`
	Codes       []string `json:"codes,omitempty"`
	CreatedBy   string   `json:"createdBy,omitempty"`
}

// ListEventsRequest lists a patient's events newest first. A nil WindowDays
// selects the server default.
type ListEventsRequest struct {
	PatientID  string `json:"patientId"`
	WindowDays *int   `json:"windowDays,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	PageToken  string `json:"pageToken,omitempty"`
	Filter     string `json:"filter,omitempty"`
}

// Event is the event wire form; Urgent is derived per read.
type Event struct {
	PatientID   string   `json:"patientId"`
	EventID     string   `json:"eventId"`
	Timestamp   string   `json:"timestamp"`
	EventType   string   `json:"eventType"`
	Description string   `json:"description"`
	Codes       []string `json:"codes"`
	CreatedBy   string   `json:"createdBy"`
	Urgent      bool     `json:"urgent"`
}

// ListEventsResponse is one page of events.
type ListEventsResponse struct {
	Events        []Event `json:"events"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// HealthResponse reports serving status.
type HealthResponse struct {
	Status string `json:"status"`
}
