// Package registry is the keyed store of root entities (patients).
//
// Two backends implement Registry: PebbleRegistry keeps roots in the same
// Pebble instance as the event log, SQLiteRegistry keeps them in a single
// SQLite table. Both use upsert semantics for Put and answer Exists without
// decoding the stored attributes.
package registry
