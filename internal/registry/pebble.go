package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
	pebblestore "github.com/rzbill/medtrail/internal/storage/pebble"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

var (
	rootPrefix   = []byte("root/")
	markerPrefix = []byte("rootx/")
)

func rootKey(id uuid.UUID) []byte {
	k := make([]byte, 0, len(rootPrefix)+16)
	k = append(k, rootPrefix...)
	return append(k, id[:]...)
}

// markerKey is a value-less key written next to every root so Exists can
// answer from the key alone.
func markerKey(id uuid.UUID) []byte {
	k := make([]byte, 0, len(markerPrefix)+16)
	k = append(k, markerPrefix...)
	return append(k, id[:]...)
}

// prefixEnd returns the exclusive upper bound of a "name/" prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	end[len(end)-1]++
	return end
}

// PebbleRegistry stores roots in the shared Pebble instance.
type PebbleRegistry struct {
	db     *pebblestore.DB
	logger logpkg.Logger
	now    func() time.Time
}

// NewPebble returns a registry over db. The caller owns db.
func NewPebble(db *pebblestore.DB, logger logpkg.Logger) *PebbleRegistry {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &PebbleRegistry{db: db, logger: logger.With(logpkg.Component("registry")), now: time.Now}
}

func (r *PebbleRegistry) Put(ctx context.Context, root Root) (Root, error) {
	root, err := prepare(root, r.now())
	if err != nil {
		return Root{}, err
	}
	val, err := json.Marshal(root)
	if err != nil {
		return Root{}, storeerr.InvalidArgument("encode root: %v", err)
	}
	b := r.db.NewBatch()
	defer b.Close()
	if err := b.Set(rootKey(root.ID), val, nil); err != nil {
		return Root{}, storeerr.Unavailable("put root", err)
	}
	if err := b.Set(markerKey(root.ID), nil, nil); err != nil {
		return Root{}, storeerr.Unavailable("put root", err)
	}
	if err := r.db.CommitBatch(ctx, b); err != nil {
		if ctx.Err() != nil {
			return Root{}, err
		}
		return Root{}, storeerr.Unavailable("put root", err)
	}
	r.logger.Debug("root stored", logpkg.Str("root_id", root.ID.String()))
	return root, nil
}

func (r *PebbleRegistry) Get(ctx context.Context, id uuid.UUID) (Root, bool, error) {
	if id == uuid.Nil {
		return Root{}, false, storeerr.InvalidKey("root id is required")
	}
	if err := ctx.Err(); err != nil {
		return Root{}, false, err
	}
	val, err := r.db.Get(rootKey(id))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Root{}, false, nil
	}
	if err != nil {
		return Root{}, false, storeerr.Unavailable("get root", err)
	}
	var root Root
	if err := json.Unmarshal(val, &root); err != nil {
		return Root{}, false, storeerr.Unavailable("get root", err)
	}
	if root.Attributes == nil {
		root.Attributes = map[string]string{}
	}
	return root, true, nil
}

func (r *PebbleRegistry) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, storeerr.InvalidKey("root id is required")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := markerKey(id)
	it, err := r.db.NewIter(&pebble.IterOptions{LowerBound: k, UpperBound: append(append([]byte{}, k...), 0x00)})
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

func (r *PebbleRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return storeerr.InvalidKey("root id is required")
	}
	b := r.db.NewBatch()
	defer b.Close()
	if err := b.Delete(markerKey(id), nil); err != nil {
		return storeerr.Unavailable("delete root", err)
	}
	if err := b.Delete(rootKey(id), nil); err != nil {
		return storeerr.Unavailable("delete root", err)
	}
	if err := r.db.CommitBatch(ctx, b); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return storeerr.Unavailable("delete root", err)
	}
	return nil
}

func (r *PebbleRegistry) List(ctx context.Context, limit int) ([]Root, error) {
	it, err := r.db.NewIter(&pebble.IterOptions{LowerBound: rootPrefix, UpperBound: prefixEnd(rootPrefix)})
	if err != nil {
		return nil, storeerr.Unavailable("list roots", err)
	}
	defer func() { _ = it.Close() }()
	var out []Root
	for ok := it.First(); ok; ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(out) == limit {
			break
		}
		var root Root
		if err := json.Unmarshal(it.Value(), &root); err != nil {
			return nil, storeerr.Unavailable("list roots", err)
		}
		out = append(out, root)
	}
	if err := it.Error(); err != nil {
		return nil, storeerr.Unavailable("list roots", err)
	}
	return out, nil
}

// Close is a no-op; the Pebble instance belongs to the runtime.
func (r *PebbleRegistry) Close() error { return nil }
