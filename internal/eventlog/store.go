package eventlog

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
	pebblestore "github.com/rzbill/medtrail/internal/storage/pebble"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

const lockStripes = 64

// Store is the append-only, per-root ordered event log.
type Store struct {
	db     *pebblestore.DB
	logger logpkg.Logger

	// stripes serialize check-then-insert for keys of the same partition
	// hash. Roots hashing to different stripes never contend.
	stripes [lockStripes]sync.Mutex
}

// Open returns a Store backed by db.
func Open(db *pebblestore.DB, logger logpkg.Logger) *Store {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Store{db: db, logger: logger.With(logpkg.Component("eventlog"))}
}

func (s *Store) stripe(root uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(root[:])
	return &s.stripes[h.Sum32()%lockStripes]
}

// Append inserts ev. It fails with storeerr.ErrDuplicateKey when an event
// with the same (root, timestamp, event id) already exists; the existing
// event is left untouched.
func (s *Store) Append(ctx context.Context, ev StoredEvent) error {
	if err := validate(ev); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ck := ClusteringKeyOf(ev)
	key := KeyEvent(PartitionKeyOf(ev), ck)
	val, err := encodeEvent(ev)
	if err != nil {
		return storeerr.InvalidArgument("encode event: %v", err)
	}

	mu := s.stripe(ev.RootID)
	mu.Lock()
	defer mu.Unlock()

	exists, err := s.db.Has(key)
	if err != nil {
		return storeerr.Unavailable("append", err)
	}
	if exists {
		return storeerr.ErrDuplicateKey
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key, val, nil); err != nil {
		return storeerr.Unavailable("append", err)
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return storeerr.Unavailable("append", err)
	}
	s.logger.Debug("event appended",
		logpkg.Str("root_id", ev.RootID.String()),
		logpkg.Str("event_id", ev.EventID.String()),
		logpkg.Int64("ts_ms", ck.Millis))
	return nil
}

// ExistsAny reports whether root has at least one event. It positions a
// bounded iterator once and never reads values.
func (s *Store) ExistsAny(ctx context.Context, root uuid.UUID) (bool, error) {
	if root == uuid.Nil {
		return false, storeerr.InvalidKey("root id is required")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	it, err := s.db.NewIter(partitionBounds(root))
	if err != nil {
		return false, storeerr.Unavailable("exists", err)
	}
	found := it.First()
	if err := it.Error(); err != nil {
		_ = it.Close()
		return false, storeerr.Unavailable("exists", err)
	}
	if err := it.Close(); err != nil {
		return false, storeerr.Unavailable("exists", err)
	}
	return found, nil
}

// DropPartition removes every event of root with a single range tombstone
// and returns how many events were removed. Only used for explicit cascade
// deletes of a root.
func (s *Store) DropPartition(ctx context.Context, root uuid.UUID) (int, error) {
	if root == uuid.Nil {
		return 0, storeerr.InvalidKey("root id is required")
	}
	mu := s.stripe(root)
	mu.Lock()
	defer mu.Unlock()

	opts := partitionBounds(root)
	it, err := s.db.NewIter(opts)
	if err != nil {
		return 0, storeerr.Unavailable("drop partition", err)
	}
	n := 0
	for ok := it.First(); ok; ok = it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		_ = it.Close()
		return 0, storeerr.Unavailable("drop partition", err)
	}
	_ = it.Close()
	if n == 0 {
		return 0, nil
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(opts.LowerBound, opts.UpperBound, nil); err != nil {
		return 0, storeerr.Unavailable("drop partition", err)
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return 0, storeerr.Unavailable("drop partition", err)
	}
	s.logger.Info("partition dropped", logpkg.Str("root_id", root.String()), logpkg.Int("events", n))
	return n, nil
}
