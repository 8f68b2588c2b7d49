package eventlog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
	pebblestore "github.com/rzbill/medtrail/internal/storage/pebble"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, _ := newTestStoreDB(t)
	return s
}

func newTestStoreDB(t *testing.T) (*Store, *pebblestore.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return Open(db, nil), db
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mkEvent(root uuid.UUID, ts time.Time, idByte byte, typ string) StoredEvent {
	return StoredEvent{RootID: root, Timestamp: ts, EventID: eid(idByte), EventType: typ, Codes: []string{"A1", "A1", "B2"}, CreatedBy: "dr.x"}
}

func collect(t *testing.T, s *Store, root uuid.UUID, lo, hi time.Time) []StoredEvent {
	t.Helper()
	var out []StoredEvent
	for ev, err := range s.RangeScan(context.Background(), root, lo, hi) {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

func TestRangeScanNewestFirstRegardlessOfInsertOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := uuid.New()
	for _, ev := range []StoredEvent{
		mkEvent(root, base.Add(time.Minute), 2, "ADMISSION"),
		mkEvent(root, base, 1, "LAB_RESULT"),
		mkEvent(root, base.Add(2*time.Minute), 3, "DISCHARGE"),
	} {
		if err := s.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got := collect(t, s, root, base.Add(-time.Hour), base.Add(time.Hour))
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	want := []string{"DISCHARGE", "ADMISSION", "LAB_RESULT"}
	for i, ev := range got {
		if ev.EventType != want[i] {
			t.Fatalf("pos %d: want %s got %s", i, want[i], ev.EventType)
		}
	}
	if len(got[0].Codes) != 3 || got[0].Codes[0] != "A1" || got[0].Codes[2] != "B2" {
		t.Fatalf("codes not preserved: %v", got[0].Codes)
	}
	if !got[0].Timestamp.Equal(base.Add(2*time.Minute)) || got[0].RootID != root {
		t.Fatalf("key components not restored: %+v", got[0])
	}
}

func TestSameTimestampBothRetainedAndTieBrokenByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := uuid.New()
	if err := s.Append(ctx, mkEvent(root, base, 9, "B")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, mkEvent(root, base, 4, "A")); err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < 3; i++ {
		got := collect(t, s, root, base, base)
		if len(got) != 2 || got[0].EventType != "A" || got[1].EventType != "B" {
			t.Fatalf("scan %d: unexpected order %+v", i, got)
		}
	}
}

func TestAppendDuplicateRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := uuid.New()
	first := mkEvent(root, base, 1, "FIRST")
	if err := s.Append(ctx, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	dup := mkEvent(root, base, 1, "SECOND")
	if err := s.Append(ctx, dup); !errors.Is(err, storeerr.ErrDuplicateKey) {
		t.Fatalf("want ErrDuplicateKey, got %v", err)
	}
	got := collect(t, s, root, base, base)
	if len(got) != 1 || got[0].EventType != "FIRST" {
		t.Fatalf("duplicate must not overwrite: %+v", got)
	}
}

func TestConcurrentDuplicateExactlyOneWins(t *testing.T) {
	s := newTestStore(t)
	root := uuid.New()
	var wins, dups atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Append(context.Background(), mkEvent(root, base, 5, "RACE"))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, storeerr.ErrDuplicateKey):
				dups.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 || dups.Load() != 15 {
		t.Fatalf("wins=%d dups=%d", wins.Load(), dups.Load())
	}
}

func TestAppendInvalidKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cases := map[string]StoredEvent{
		"no root":  {Timestamp: base, EventID: eid(1)},
		"no id":    {RootID: uuid.New(), Timestamp: base},
		"no stamp": {RootID: uuid.New(), EventID: eid(1)},
	}
	for name, ev := range cases {
		if err := s.Append(ctx, ev); !errors.Is(err, storeerr.ErrInvalidKey) {
			t.Fatalf("%s: want ErrInvalidKey, got %v", name, err)
		}
	}
}

func TestPartitionIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	for i := byte(1); i <= 3; i++ {
		if err := s.Append(ctx, mkEvent(a, base.Add(time.Duration(i)*time.Second), i, "A")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append(ctx, mkEvent(b, base, 1, "B")); err != nil {
		t.Fatalf("append: %v", err)
	}
	for _, ev := range collect(t, s, b, time.UnixMilli(0), base.Add(time.Hour)) {
		if ev.RootID != b || ev.EventType != "B" {
			t.Fatalf("foreign event leaked into partition: %+v", ev)
		}
	}
}

func TestWindowBoundsInclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := uuid.New()
	lo, hi := base, base.Add(time.Hour)
	for i, ts := range []time.Time{lo.Add(-time.Millisecond), lo, hi, hi.Add(time.Millisecond)} {
		if err := s.Append(ctx, mkEvent(root, ts, byte(i+1), "E")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got := collect(t, s, root, lo, hi)
	if len(got) != 2 {
		t.Fatalf("want 2 events on the inclusive bounds, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(hi) || !got[1].Timestamp.Equal(lo) {
		t.Fatalf("unexpected events: %+v", got)
	}
	if n := len(collect(t, s, root, hi, lo)); n != 0 {
		t.Fatalf("inverted window should be empty, got %d", n)
	}
}

func TestRangeScanEarlyBreakAndRestart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := uuid.New()
	for i := byte(1); i <= 5; i++ {
		_ = s.Append(ctx, mkEvent(root, base.Add(time.Duration(i)*time.Minute), i, "E"))
	}
	seq := s.RangeScan(ctx, root, base, base.Add(time.Hour))
	n := 0
	for _, err := range seq {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		n++
		if n == 2 {
			break
		}
	}
	total := 0
	for range seq {
		total++
	}
	if total != 5 {
		t.Fatalf("restarted scan should yield all 5, got %d", total)
	}
}

func TestRangeScanCancelled(t *testing.T) {
	s := newTestStore(t)
	root := uuid.New()
	_ = s.Append(context.Background(), mkEvent(root, base, 1, "E"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range s.RangeScan(ctx, root, base, base) {
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	}
}

func TestExistsAny(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := uuid.New()
	ok, err := s.ExistsAny(ctx, root)
	if err != nil || ok {
		t.Fatalf("empty partition: %v %v", ok, err)
	}
	_ = s.Append(ctx, mkEvent(root, base, 1, "E"))
	ok, err = s.ExistsAny(ctx, root)
	if err != nil || !ok {
		t.Fatalf("after append: %v %v", ok, err)
	}
	if ok, _ := s.ExistsAny(ctx, uuid.New()); ok {
		t.Fatalf("other root must be empty")
	}
	if _, err := s.ExistsAny(ctx, uuid.Nil); !errors.Is(err, storeerr.ErrInvalidKey) {
		t.Fatalf("want ErrInvalidKey, got %v", err)
	}
}

func TestScanPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := uuid.New()
	for i := byte(1); i <= 5; i++ {
		_ = s.Append(ctx, mkEvent(root, base.Add(time.Duration(i)*time.Second), i, "E"))
	}
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	defer snap.Close()
	// appended after the snapshot; must not show up in any page
	_ = s.Append(ctx, mkEvent(root, base.Add(30*time.Second), 9, "LATE"))

	opts := ScanOptions{Lower: base, Upper: base.Add(time.Minute), Limit: 2}
	var seen []byte
	for page := 0; page < 5; page++ {
		items, next, err := snap.Scan(ctx, root, opts)
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		for _, it := range items {
			seen = append(seen, it.EventID[15])
		}
		if next.IsZero() {
			break
		}
		tok, err := ParseToken(next.String())
		if err != nil || tok != next {
			t.Fatalf("token round trip: %v", err)
		}
		opts.After = tok
	}
	if string(seen) != string([]byte{5, 4, 3, 2, 1}) {
		t.Fatalf("unexpected page order: %v", seen)
	}
	if _, err := ParseToken("nothex"); !errors.Is(err, storeerr.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestDropPartition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	for i := byte(1); i <= 3; i++ {
		_ = s.Append(ctx, mkEvent(a, base.Add(time.Duration(i)*time.Second), i, "A"))
	}
	_ = s.Append(ctx, mkEvent(b, base, 1, "B"))
	n, err := s.DropPartition(ctx, a)
	if err != nil || n != 3 {
		t.Fatalf("drop: n=%d err=%v", n, err)
	}
	if ok, _ := s.ExistsAny(ctx, a); ok {
		t.Fatalf("partition should be empty")
	}
	if ok, _ := s.ExistsAny(ctx, b); !ok {
		t.Fatalf("other partition must survive")
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	root := uuid.New()
	if err := Open(db, nil).Append(context.Background(), mkEvent(root, base, 1, "E")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	if got := collect(t, Open(db2, nil), root, base, base); len(got) != 1 {
		t.Fatalf("want 1 event after reopen, got %d", len(got))
	}
}

func TestCorruptValueSurfacesAsUnavailable(t *testing.T) {
	s, db := newTestStoreDB(t)
	ctx := context.Background()
	root := uuid.New()
	good := mkEvent(root, base, 1, "LAB_RESULT")
	bad := mkEvent(root, base.Add(time.Second), 2, "ADMISSION")
	for _, ev := range []StoredEvent{good, bad} {
		if err := s.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	key := KeyEvent(root, ClusteringKeyOf(bad))
	val, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	val[len(val)-6] ^= 0xFF
	if err := db.Set(key, val); err != nil {
		t.Fatalf("set: %v", err)
	}

	var scanErr error
	n := 0
	for _, err := range s.RangeScan(ctx, root, base.Add(-time.Hour), base.Add(time.Hour)) {
		if err != nil {
			scanErr = err
			break
		}
		n++
	}
	if !errors.Is(scanErr, storeerr.ErrStorageUnavailable) || !storeerr.Retryable(scanErr) {
		t.Fatalf("range scan: want ErrStorageUnavailable, got %v", scanErr)
	}
	if n != 0 {
		t.Fatalf("corrupt newest event must stop the scan before yielding, got %d", n)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	defer snap.Close()
	if _, _, err := snap.Scan(ctx, root, ScanOptions{Lower: base.Add(-time.Hour), Upper: base.Add(time.Hour)}); !errors.Is(err, storeerr.ErrStorageUnavailable) {
		t.Fatalf("scan: want ErrStorageUnavailable, got %v", err)
	}
	if _, err := decodeEvent(key, val); !errors.Is(err, errCorruptRecord) {
		t.Fatalf("decode: want checksum error, got %v", err)
	}

	// the older, intact event is still readable on its own
	got := collect(t, s, root, base, base)
	if len(got) != 1 || got[0].EventID != good.EventID {
		t.Fatalf("intact event lost: %+v", got)
	}
}

func TestClosedStoreIsRetryable(t *testing.T) {
	s, db := newTestStoreDB(t)
	ctx := context.Background()
	root := uuid.New()
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	err := s.Append(ctx, mkEvent(root, base, 1, "E"))
	if !errors.Is(err, storeerr.ErrStorageUnavailable) || !storeerr.Retryable(err) {
		t.Fatalf("append: want retryable ErrStorageUnavailable, got %v", err)
	}
	if _, err := s.ExistsAny(ctx, root); !storeerr.Retryable(err) {
		t.Fatalf("exists: want retryable, got %v", err)
	}
	for _, err := range s.RangeScan(ctx, root, base, base) {
		if !storeerr.Retryable(err) {
			t.Fatalf("range scan: want retryable, got %v", err)
		}
	}
	if _, err := s.Snapshot(); !storeerr.Retryable(err) {
		t.Fatalf("snapshot: want retryable, got %v", err)
	}
	if _, err := s.DropPartition(ctx, root); !storeerr.Retryable(err) {
		t.Fatalf("drop: want retryable, got %v", err)
	}
}
