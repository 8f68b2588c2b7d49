package records

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/eventlog"
	"github.com/rzbill/medtrail/internal/registry"
	"github.com/rzbill/medtrail/internal/storeerr"
	pebblestore "github.com/rzbill/medtrail/internal/storage/pebble"
	"github.com/rzbill/medtrail/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	events *eventlog.Store
}

func newFixture(t *testing.T, mutate ...func(*Deps)) fixture {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	events := eventlog.Open(db, nil)
	deps := Deps{
		Registry: registry.NewPebble(db, nil),
		Events:   events,
		Clock:    func() time.Time { return now },
	}
	for _, m := range mutate {
		m(&deps)
	}
	svc, err := New(deps)
	require.NoError(t, err)
	return fixture{svc: svc, events: events}
}

func (f fixture) root(t *testing.T) uuid.UUID {
	t.Helper()
	r, err := f.svc.CreateRoot(context.Background(), RootDraft{Name: "Test Patient"})
	require.NoError(t, err)
	return r.ID
}

func eventTypes(views []EventView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.EventType)
	}
	return out
}

func TestListEventsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.root(t)
	ts := now.Add(-time.Hour)
	for _, d := range []EventDraft{
		{EventType: "LAB_RESULT", Timestamp: ts},
		{EventType: "ADMISSION", Timestamp: ts.Add(time.Minute)},
		{EventType: "DISCHARGE", Timestamp: ts.Add(2 * time.Minute)},
	} {
		_, err := f.svc.AddEvent(ctx, r, d)
		require.NoError(t, err)
	}
	got, err := f.svc.ListEvents(ctx, r, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"DISCHARGE", "ADMISSION", "LAB_RESULT"}, eventTypes(got))
}

func TestSameTimestampTieBreakIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.root(t)
	ts := now.Add(-time.Minute)
	hi, lo := id.ID{15: 9}, id.ID{15: 2}
	_, err := f.svc.AddEvent(ctx, r, EventDraft{EventID: hi, EventType: "SECOND", Timestamp: ts})
	require.NoError(t, err)
	_, err = f.svc.AddEvent(ctx, r, EventDraft{EventID: lo, EventType: "FIRST", Timestamp: ts})
	require.NoError(t, err)

	first, err := f.svc.ListEvents(ctx, r, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"FIRST", "SECOND"}, eventTypes(first))
	again, err := f.svc.ListEvents(ctx, r, 1)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestPartitionIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.root(t), f.root(t)
	_, err := f.svc.AddEvent(ctx, a, EventDraft{EventType: "ADMISSION", Timestamp: now.Add(-time.Hour)})
	require.NoError(t, err)

	got, err := f.svc.ListEvents(ctx, b, 30)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAddEventUnknownRootWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ghost := uuid.New()
	_, err := f.svc.AddEvent(ctx, ghost, EventDraft{EventType: "LAB_RESULT"})
	require.ErrorIs(t, err, storeerr.ErrNotFound)

	has, err := f.events.ExistsAny(ctx, ghost)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = f.svc.ListEvents(ctx, ghost, 30)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
}

func TestWindowLowerBoundInclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.root(t)
	edge := now.Add(-30 * day)
	_, err := f.svc.AddEvent(ctx, r, EventDraft{EventType: "ON_EDGE", Timestamp: edge})
	require.NoError(t, err)
	_, err = f.svc.AddEvent(ctx, r, EventDraft{EventType: "TOO_OLD", Timestamp: edge.Add(-time.Millisecond)})
	require.NoError(t, err)

	got, err := f.svc.ListEvents(ctx, r, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"ON_EDGE"}, eventTypes(got))
}

func TestListEventsZeroWindowOnFreshRoot(t *testing.T) {
	f := newFixture(t)
	r := f.root(t)
	got, err := f.svc.ListEvents(context.Background(), r, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestListEventsRejectsBadWindow(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.MaxWindowDays = 365 })
	r := f.root(t)
	_, err := f.svc.ListEvents(context.Background(), r, -1)
	assert.ErrorIs(t, err, storeerr.ErrInvalidArgument)
	_, err = f.svc.ListEvents(context.Background(), r, 366)
	assert.ErrorIs(t, err, storeerr.ErrInvalidArgument)
}

func TestAddEventFillsIDAndTimestamp(t *testing.T) {
	f := newFixture(t)
	r := f.root(t)
	v, err := f.svc.AddEvent(context.Background(), r, EventDraft{EventType: "LAB_RESULT", Codes: []string{"X", "X"}})
	require.NoError(t, err)
	assert.False(t, v.EventID.IsZero())
	assert.True(t, v.Timestamp.Equal(now))
	assert.Equal(t, []string{"X", "X"}, v.Codes)
	assert.Equal(t, r, v.RootID)
}

func TestAddEventRejectsMissingType(t *testing.T) {
	f := newFixture(t)
	r := f.root(t)
	_, err := f.svc.AddEvent(context.Background(), r, EventDraft{Description: "no type"})
	assert.ErrorIs(t, err, storeerr.ErrInvalidArgument)
}

func TestAddEventDuplicateKey(t *testing.T) {
	f := newFixture(t)
	r := f.root(t)
	d := EventDraft{EventID: id.ID{15: 1}, EventType: "LAB_RESULT", Timestamp: now.Add(-time.Second)}
	_, err := f.svc.AddEvent(context.Background(), r, d)
	require.NoError(t, err)
	_, err = f.svc.AddEvent(context.Background(), r, d)
	assert.ErrorIs(t, err, storeerr.ErrDuplicateKey)
}

func TestUrgentDerivedOnRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.root(t)
	ts := now.Add(-time.Hour)
	for i, d := range []EventDraft{
		{EventType: "LAB_RESULT", Description: "routine panel"},
		{EventType: "LAB_RESULT", Description: "URGENT: potassium high"},
		{EventType: "ADMISSION"},
	} {
		d.Timestamp = ts.Add(time.Duration(i) * time.Minute)
		_, err := f.svc.AddEvent(ctx, r, d)
		require.NoError(t, err)
	}
	got, err := f.svc.ListEvents(ctx, r, 30)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Urgent)
	assert.True(t, got[1].Urgent)
	assert.False(t, got[2].Urgent)
}

func TestListEventsPageWithFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.root(t)
	for i := 0; i < 7; i++ {
		typ := "LAB_RESULT"
		if i%2 == 0 {
			typ = "VITALS"
		}
		_, err := f.svc.AddEvent(ctx, r, EventDraft{EventType: typ, Timestamp: now.Add(-time.Duration(i+1) * time.Minute)})
		require.NoError(t, err)
	}

	var seen []string
	opts := ListOptions{WindowDays: 1, Limit: 2, Filter: `event_type == "VITALS"`}
	for i := 0; i < 10; i++ {
		page, err := f.svc.ListEventsPage(ctx, r, opts)
		require.NoError(t, err)
		seen = append(seen, eventTypes(page.Events)...)
		if page.NextPageToken == "" {
			break
		}
		opts.PageToken = page.NextPageToken
	}
	assert.Equal(t, []string{"VITALS", "VITALS", "VITALS", "VITALS"}, seen)

	_, err := f.svc.ListEventsPage(ctx, r, ListOptions{WindowDays: 1, Filter: `event_type +`})
	assert.ErrorIs(t, err, storeerr.ErrInvalidArgument)
	_, err = f.svc.ListEventsPage(ctx, r, ListOptions{WindowDays: 1, PageToken: "zz"})
	assert.ErrorIs(t, err, storeerr.ErrInvalidArgument)
}

func TestDeleteRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.root(t)
	_, err := f.svc.AddEvent(ctx, r, EventDraft{EventType: "LAB_RESULT"})
	require.NoError(t, err)

	_, err = f.svc.DeleteRoot(ctx, r, false)
	require.ErrorIs(t, err, storeerr.ErrFailedPrecondition)

	res, err := f.svc.DeleteRoot(ctx, r, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsRemoved)

	_, ok, err := f.svc.GetRoot(ctx, r)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = f.svc.DeleteRoot(ctx, r, true)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
}

func TestCreateRootExplicitIDUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rid := uuid.New()
	_, err := f.svc.CreateRoot(ctx, RootDraft{ID: rid, Name: "Before"})
	require.NoError(t, err)
	_, err = f.svc.CreateRoot(ctx, RootDraft{ID: rid, Name: "After"})
	require.NoError(t, err)
	got, ok, err := f.svc.GetRoot(ctx, rid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "After", got.Name)
}

// gatedEvents parks Append until release is closed so a concurrent delete
// can be interleaved after the root existence check.
type gatedEvents struct {
	*eventlog.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEvents) Append(ctx context.Context, ev eventlog.StoredEvent) error {
	close(g.entered)
	<-g.release
	return g.Store.Append(ctx, ev)
}

func TestDeleteRootWaitsForInFlightAppend(t *testing.T) {
	tests := []struct {
		name    string
		cascade bool
	}{
		{name: "cascade", cascade: true},
		{name: "no cascade", cascade: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := &gatedEvents{entered: make(chan struct{}), release: make(chan struct{})}
			f := newFixture(t, func(d *Deps) {
				gate.Store = d.Events.(*eventlog.Store)
				d.Events = gate
			})
			ctx := context.Background()
			r := f.root(t)

			addErr := make(chan error, 1)
			go func() {
				_, err := f.svc.AddEvent(ctx, r, EventDraft{EventType: "ADMISSION", Timestamp: now.Add(-time.Hour)})
				addErr <- err
			}()
			<-gate.entered

			delErr := make(chan error, 1)
			go func() {
				_, err := f.svc.DeleteRoot(ctx, r, tt.cascade)
				delErr <- err
			}()
			select {
			case err := <-delErr:
				t.Fatalf("delete returned while an append was in flight: %v", err)
			case <-time.After(50 * time.Millisecond):
			}

			close(gate.release)
			require.NoError(t, <-addErr)
			err := <-delErr

			_, present, gerr := f.svc.GetRoot(ctx, r)
			require.NoError(t, gerr)
			has, eerr := f.events.ExistsAny(ctx, r)
			require.NoError(t, eerr)
			if tt.cascade {
				require.NoError(t, err)
				assert.False(t, present)
				assert.False(t, has, "cascade must remove the event appended before it")
			} else {
				require.ErrorIs(t, err, storeerr.ErrFailedPrecondition)
				assert.True(t, present)
				assert.True(t, has)
			}
		})
	}
}

func TestListEventsPageLimit(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.MaxPageSize = 3 })
	ctx := context.Background()
	r := f.root(t)
	for i := 0; i < 5; i++ {
		_, err := f.svc.AddEvent(ctx, r, EventDraft{EventType: "VITALS", Timestamp: now.Add(-time.Duration(i+1) * time.Minute)})
		require.NoError(t, err)
	}

	page, err := f.svc.ListEventsPage(ctx, r, ListOptions{WindowDays: 1, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, page.Events, 3, "limit above the maximum is clamped")
	assert.NotEmpty(t, page.NextPageToken)

	page, err = f.svc.ListEventsPage(ctx, r, ListOptions{WindowDays: 1})
	require.NoError(t, err)
	assert.Len(t, page.Events, 3, "zero limit selects the maximum")

	// a negative limit is rejected before the root is looked up
	_, err = f.svc.ListEventsPage(ctx, uuid.New(), ListOptions{WindowDays: 1, Limit: -1})
	require.ErrorIs(t, err, storeerr.ErrInvalidArgument)
}
