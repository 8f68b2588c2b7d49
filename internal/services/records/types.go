package records

import (
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/eventlog"
	"github.com/rzbill/medtrail/internal/registry"
	"github.com/rzbill/medtrail/pkg/id"
)

// RootDraft is the attribute payload for CreateRoot. A zero ID asks for a
// fresh one; a set ID replaces any existing root with that id.
type RootDraft struct {
	ID          uuid.UUID
	Name        string
	DateOfBirth string
	Attributes  map[string]string
}

// EventDraft is the payload for AddEvent. EventID and Timestamp are filled
// in when zero.
type EventDraft struct {
	EventID     id.ID
	Timestamp   time.Time
	EventType   string
	Description string
	Codes       []string
	CreatedBy   string
}

// EventView is an event as returned to callers. Urgent is derived on every
// read and never stored.
type EventView struct {
	RootID      uuid.UUID `json:"rootId"`
	EventID     id.ID     `json:"eventId"`
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"eventType"`
	Description string    `json:"description"`
	Codes       []string  `json:"codes"`
	CreatedBy   string    `json:"createdBy"`
	Urgent      bool      `json:"urgent"`
}

// ListOptions drives ListEventsPage.
type ListOptions struct {
	WindowDays int
	// Limit caps the page. 0 selects the configured maximum page size and
	// larger values are silently clamped to it; negative values are rejected.
	Limit     int
	PageToken string
	// Filter is an optional CEL boolean expression over the event fields.
	Filter string
}

// Page is one slice of a listing. NextPageToken is empty on the last page.
type Page struct {
	Events        []EventView `json:"events"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// DeleteResult reports what DeleteRoot removed.
type DeleteResult struct {
	EventsRemoved int `json:"eventsRemoved"`
}

// Root is re-exported so transports need only this package.
type Root = registry.Root

func viewOf(ev eventlog.StoredEvent, urgent bool) EventView {
	codes := ev.Codes
	if codes == nil {
		codes = []string{}
	}
	return EventView{
		RootID:      ev.RootID,
		EventID:     ev.EventID,
		Timestamp:   ev.Timestamp.UTC(),
		EventType:   ev.EventType,
		Description: ev.Description,
		Codes:       codes,
		CreatedBy:   ev.CreatedBy,
		Urgent:      urgent,
	}
}
