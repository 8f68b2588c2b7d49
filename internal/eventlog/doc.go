// Package eventlog implements medtrail's append-only, per-patient event log.
//
// # Overview
//
// Events are partitioned by root (patient) id and persisted in Pebble. Keys
// are lexicographically ordered so a partition is one contiguous range and
// its natural byte order is newest-first:
//   - ev/{root_16}/{ts_desc_be8}{event_id_16}
//
// ts_desc is the event time in Unix milliseconds, sign-flipped and bitwise
// inverted; event_id breaks timestamp ties in ascending byte order. This
// layout is the only contract external readers of the raw store may rely on.
//
// Values are stored as: varint headerLen | header | payload | crc32c(header|payload),
// where the payload is a JSON row.
//
// API surface (internal)
//
//	s := eventlog.Open(db, logger)
//	// Insert-only; a second append of the same (root, ts, id) fails with ErrDuplicateKey
//	_ = s.Append(ctx, ev)
//
//	// Lazy newest-first scan over an inclusive time window
//	for ev, err := range s.RangeScan(ctx, root, from, to) { ... }
//
//	// Paged scan with a resume token over a pinned snapshot
//	snap, _ := s.Snapshot()
//	defer snap.Close()
//	page, next, _ := snap.Scan(ctx, root, eventlog.ScanOptions{Lower: from, Upper: to, Limit: 50})
//
//	// Existence check; reads at most one key
//	ok, _ := s.ExistsAny(ctx, root)
//
// # Concurrency
//
// Appends to one partition are serialized by a striped mutex around the
// existence check and the commit, so of two racing appends with the same
// key exactly one succeeds. Reads take no locks; each event is a single
// key/value pair, so a scan never observes a partial event.
package eventlog
