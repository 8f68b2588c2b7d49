package eventlog

import (
	"bytes"
	"context"
	"encoding/hex"
	"iter"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
)

// Token is a resume position inside one partition: the encoded clustering
// key of the last event returned.
type Token [clusteringLen]byte

// IsZero reports whether t is the start-of-range token.
func (t Token) IsZero() bool { return t == Token{} }

// String returns the hex wire form; the zero token encodes as "".
func (t Token) String() string {
	if t.IsZero() {
		return ""
	}
	return hex.EncodeToString(t[:])
}

// ParseToken decodes a token produced by Token.String. "" yields the zero token.
func ParseToken(s string) (Token, error) {
	var t Token
	if s == "" {
		return t, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != clusteringLen {
		return t, storeerr.InvalidArgument("malformed page token")
	}
	copy(t[:], b)
	return t, nil
}

func tokenFor(ck ClusteringKey) Token {
	var t Token
	copy(t[:], appendClustering(nil, ck))
	return t
}

// ScanOptions bounds a partition scan. Lower and Upper are inclusive.
type ScanOptions struct {
	Lower time.Time
	Upper time.Time
	// Limit caps the page size; 0 means unlimited.
	Limit int
	// After resumes strictly after the event identified by the token.
	After Token
}

func partitionBounds(root uuid.UUID) *pebble.IterOptions {
	return &pebble.IterOptions{LowerBound: KeyPartitionPrefix(root), UpperBound: KeyPartitionEnd(root)}
}

// timeBounds maps an inclusive [lower, upper] time window onto key bounds.
// Newer times sort first, so upper selects the low key.
func timeBounds(root uuid.UUID, lower, upper time.Time) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: keyTimeFloor(root, upper.UnixMilli()),
		UpperBound: keyTimeCeilExclusive(root, lower.UnixMilli()),
	}
}

// RangeScan lazily yields root's events with lower <= timestamp <= upper,
// newest first, in storage order. Every call opens a fresh iterator, so the
// sequence can be ranged over more than once. An error ends the sequence.
func (s *Store) RangeScan(ctx context.Context, root uuid.UUID, lower, upper time.Time) iter.Seq2[StoredEvent, error] {
	return func(yield func(StoredEvent, error) bool) {
		if root == uuid.Nil {
			yield(StoredEvent{}, storeerr.InvalidKey("root id is required"))
			return
		}
		if lower.UnixMilli() > upper.UnixMilli() {
			return
		}
		it, err := s.db.NewIter(timeBounds(root, lower, upper))
		if err != nil {
			yield(StoredEvent{}, storeerr.Unavailable("range scan", err))
			return
		}
		defer it.Close()
		for ok := it.First(); ok; ok = it.Next() {
			if err := ctx.Err(); err != nil {
				yield(StoredEvent{}, err)
				return
			}
			ev, err := decodeEvent(it.Key(), it.Value())
			if err != nil {
				yield(StoredEvent{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(StoredEvent{}, storeerr.Unavailable("range scan", err))
		}
	}
}

// Snapshot is a point-in-time view of the log. Pages read through one
// Snapshot are mutually consistent regardless of concurrent appends.
type Snapshot struct {
	snap *pebble.Snapshot
}

// Snapshot pins the current state of the log. Callers must Close it.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap, err := s.db.NewSnapshot()
	if err != nil {
		return nil, storeerr.Unavailable("snapshot", err)
	}
	return &Snapshot{snap: snap}, nil
}

// Close releases the snapshot.
func (sn *Snapshot) Close() error { return sn.snap.Close() }

// Scan returns one page of root's events in [opts.Lower, opts.Upper],
// newest first, plus the token to resume from. The returned token is zero
// when the window is exhausted.
func (sn *Snapshot) Scan(ctx context.Context, root uuid.UUID, opts ScanOptions) ([]StoredEvent, Token, error) {
	var next Token
	if root == uuid.Nil {
		return nil, next, storeerr.InvalidKey("root id is required")
	}
	items := make([]StoredEvent, 0, max(1, opts.Limit))
	if opts.Lower.UnixMilli() > opts.Upper.UnixMilli() {
		return items, next, nil
	}
	it, err := sn.snap.NewIter(timeBounds(root, opts.Lower, opts.Upper))
	if err != nil {
		return nil, next, storeerr.Unavailable("scan", err)
	}
	defer it.Close()

	var ok bool
	if opts.After.IsZero() {
		ok = it.First()
	} else {
		after := append(KeyPartitionPrefix(root), opts.After[:]...)
		ok = it.SeekGE(after)
		if ok && bytes.Equal(it.Key(), after) {
			ok = it.Next()
		}
	}
	for ; ok; ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, Token{}, err
		}
		if opts.Limit > 0 && len(items) == opts.Limit {
			next = tokenFor(ClusteringKeyOf(items[len(items)-1]))
			break
		}
		ev, err := decodeEvent(it.Key(), it.Value())
		if err != nil {
			return nil, Token{}, err
		}
		items = append(items, ev)
	}
	if err := it.Error(); err != nil {
		return nil, Token{}, storeerr.Unavailable("scan", err)
	}
	return items, next, nil
}
