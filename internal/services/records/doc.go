// Package records is the query facade over the root registry and the event
// log. It enforces that a root exists before events are written or read,
// maps "last N days" requests onto inclusive scan bounds, and derives the
// transient urgent flag on every read.
//
// Construction is explicit:
//
//	svc, err := records.New(records.Deps{
//	    Registry: reg,
//	    Events:   eventlog.Open(db, logger),
//	    Logger:   logger,
//	})
package records
