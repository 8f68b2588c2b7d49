package records

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/eventlog"
	"github.com/rzbill/medtrail/internal/registry"
	"github.com/rzbill/medtrail/internal/storeerr"
	"github.com/rzbill/medtrail/pkg/id"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

// EventStore is the subset of the event log the service depends on.
type EventStore interface {
	Append(ctx context.Context, ev eventlog.StoredEvent) error
	RangeScan(ctx context.Context, root uuid.UUID, lower, upper time.Time) iter.Seq2[eventlog.StoredEvent, error]
	Snapshot() (*eventlog.Snapshot, error)
	ExistsAny(ctx context.Context, root uuid.UUID) (bool, error)
	DropPartition(ctx context.Context, root uuid.UUID) (int, error)
}

// IDSource hands out time-biased event ids.
type IDSource interface {
	Next() id.ID
}

// Deps are the collaborators of Service. Registry, Events and Urgency are
// required; the rest default.
type Deps struct {
	Registry registry.Registry
	Events   EventStore
	Urgency  *UrgencyRule
	Clock    func() time.Time
	IDs      IDSource
	Logger   logpkg.Logger
	// MaxWindowDays rejects wider windows when > 0.
	MaxWindowDays int
	// MaxPageSize caps ListEventsPage; defaults to 500.
	MaxPageSize int
}

const (
	defaultMaxPageSize = 500
	rootLockStripes    = 64
)

// Service composes the root registry and the event log into the
// patient-facing operations.
type Service struct {
	registry      registry.Registry
	events        EventStore
	urgency       *UrgencyRule
	now           func() time.Time
	ids           IDSource
	logger        logpkg.Logger
	maxWindowDays int
	maxPageSize   int

	// rootLocks order AddEvent against DeleteRoot for the same root, so an
	// event is never committed under a root that has just been removed.
	rootLocks [rootLockStripes]sync.Mutex
}

// New builds a Service from explicit dependencies.
func New(d Deps) (*Service, error) {
	if d.Registry == nil || d.Events == nil {
		return nil, errors.New("records: registry and event store are required")
	}
	if d.Urgency == nil {
		u, err := NewUrgencyRule("", d.Logger)
		if err != nil {
			return nil, err
		}
		d.Urgency = u
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.IDs == nil {
		d.IDs = id.NewGenerator()
	}
	if d.Logger == nil {
		d.Logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	if d.MaxPageSize <= 0 {
		d.MaxPageSize = defaultMaxPageSize
	}
	return &Service{
		registry:      d.Registry,
		events:        d.Events,
		urgency:       d.Urgency,
		now:           d.Clock,
		ids:           d.IDs,
		logger:        d.Logger.With(logpkg.Component("records")),
		maxWindowDays: d.MaxWindowDays,
		maxPageSize:   d.MaxPageSize,
	}, nil
}

// CreateRoot stores a patient, assigning an id when the draft has none.
// An explicit id that already exists is replaced wholesale.
func (s *Service) CreateRoot(ctx context.Context, d RootDraft) (Root, error) {
	root, err := s.registry.Put(ctx, registry.Root{
		ID:          d.ID,
		Name:        d.Name,
		DateOfBirth: d.DateOfBirth,
		Attributes:  d.Attributes,
	})
	if err != nil {
		return Root{}, err
	}
	s.logger.WithContext(ctx).Info("root stored", logpkg.Str("root_id", root.ID.String()))
	return root, nil
}

// GetRoot returns the patient with id, if any.
func (s *Service) GetRoot(ctx context.Context, rootID uuid.UUID) (Root, bool, error) {
	return s.registry.Get(ctx, rootID)
}

// ListRoots returns up to limit patients.
func (s *Service) ListRoots(ctx context.Context, limit int) ([]Root, error) {
	return s.registry.List(ctx, limit)
}

func (s *Service) lockRoot(rootID uuid.UUID) func() {
	h := fnv.New32a()
	_, _ = h.Write(rootID[:])
	mu := &s.rootLocks[h.Sum32()%rootLockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) requireRoot(ctx context.Context, rootID uuid.UUID) error {
	ok, err := s.registry.Exists(ctx, rootID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("root %s: %w", rootID, storeerr.ErrNotFound)
	}
	return nil
}

// AddEvent appends an event to an existing root. The existence check
// completes before the append is attempted; an unknown root yields
// storeerr.ErrNotFound and nothing is written. The root cannot be deleted
// between the check and the append.
func (s *Service) AddEvent(ctx context.Context, rootID uuid.UUID, d EventDraft) (EventView, error) {
	if rootID == uuid.Nil {
		return EventView{}, storeerr.InvalidKey("root id is required")
	}
	if strings.TrimSpace(d.EventType) == "" {
		return EventView{}, storeerr.InvalidArgument("eventType is required")
	}
	defer s.lockRoot(rootID)()
	if err := s.requireRoot(ctx, rootID); err != nil {
		return EventView{}, err
	}
	if d.EventID.IsZero() {
		d.EventID = s.ids.Next()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = s.now()
	}
	codes := append([]string{}, d.Codes...)
	ev := eventlog.StoredEvent{
		RootID:      rootID,
		Timestamp:   d.Timestamp.Truncate(time.Millisecond).UTC(),
		EventID:     d.EventID,
		EventType:   d.EventType,
		Description: d.Description,
		Codes:       codes,
		CreatedBy:   d.CreatedBy,
	}
	if err := s.events.Append(ctx, ev); err != nil {
		return EventView{}, err
	}
	s.logger.WithContext(ctx).Debug("event added",
		logpkg.Str("root_id", rootID.String()),
		logpkg.Str("event_id", ev.EventID.String()),
		logpkg.Str("event_type", ev.EventType))
	return s.view(ev), nil
}

func (s *Service) view(ev eventlog.StoredEvent) EventView {
	return viewOf(ev, s.urgency.Urgent(ev.EventType, ev.Description, ev.Codes))
}

func (s *Service) window(days int) (time.Time, time.Time, error) {
	if s.maxWindowDays > 0 && days > s.maxWindowDays {
		return time.Time{}, time.Time{}, storeerr.InvalidArgument("windowDays %d exceeds maximum %d", days, s.maxWindowDays)
	}
	return WindowBounds(s.now(), days)
}

// ListEvents returns the root's events from the last windowDays days,
// newest first, with urgency recomputed.
func (s *Service) ListEvents(ctx context.Context, rootID uuid.UUID, windowDays int) ([]EventView, error) {
	lower, upper, err := s.window(windowDays)
	if err != nil {
		return nil, err
	}
	if err := s.requireRoot(ctx, rootID); err != nil {
		return nil, err
	}
	out := []EventView{}
	for ev, err := range s.events.RangeScan(ctx, rootID, lower, upper) {
		if err != nil {
			return nil, err
		}
		out = append(out, s.view(ev))
	}
	return out, nil
}

// ListEventsPage is the paged, optionally filtered form of ListEvents.
// Pages are filled up to the limit with matching events; the token resumes
// after the last event examined. All batches behind one page are read from
// a single snapshot.
func (s *Service) ListEventsPage(ctx context.Context, rootID uuid.UUID, opts ListOptions) (Page, error) {
	limit := opts.Limit
	if limit < 0 {
		return Page{}, storeerr.InvalidArgument("limit must be >= 0")
	}
	if limit == 0 || limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	lower, upper, err := s.window(opts.WindowDays)
	if err != nil {
		return Page{}, err
	}
	after, err := eventlog.ParseToken(opts.PageToken)
	if err != nil {
		return Page{}, err
	}
	filter, err := newEventFilter(opts.Filter)
	if err != nil {
		return Page{}, err
	}
	if err := s.requireRoot(ctx, rootID); err != nil {
		return Page{}, err
	}

	snap, err := s.events.Snapshot()
	if err != nil {
		return Page{}, err
	}
	defer snap.Close()

	page := Page{Events: []EventView{}}
	for {
		batch, next, err := snap.Scan(ctx, rootID, eventlog.ScanOptions{
			Lower: lower, Upper: upper, Limit: limit - len(page.Events), After: after,
		})
		if err != nil {
			return Page{}, err
		}
		for _, ev := range batch {
			if v := s.view(ev); filter.Match(v) {
				page.Events = append(page.Events, v)
			}
		}
		if next.IsZero() {
			return page, nil
		}
		if len(page.Events) == limit {
			page.NextPageToken = next.String()
			return page, nil
		}
		after = next
	}
}

// DeleteRoot removes a patient. A root that still has events is only
// removed with cascade, which drops its whole partition first.
func (s *Service) DeleteRoot(ctx context.Context, rootID uuid.UUID, cascade bool) (DeleteResult, error) {
	defer s.lockRoot(rootID)()
	if err := s.requireRoot(ctx, rootID); err != nil {
		return DeleteResult{}, err
	}
	var res DeleteResult
	if cascade {
		n, err := s.events.DropPartition(ctx, rootID)
		if err != nil {
			return DeleteResult{}, err
		}
		res.EventsRemoved = n
	} else {
		has, err := s.events.ExistsAny(ctx, rootID)
		if err != nil {
			return DeleteResult{}, err
		}
		if has {
			return DeleteResult{}, fmt.Errorf("root %s still has events; delete with cascade: %w", rootID, storeerr.ErrFailedPrecondition)
		}
	}
	if err := s.registry.Delete(ctx, rootID); err != nil {
		return DeleteResult{}, err
	}
	s.logger.WithContext(ctx).Info("root deleted",
		logpkg.Str("root_id", rootID.String()),
		logpkg.Int("events_removed", res.EventsRemoved))
	return res, nil
}
