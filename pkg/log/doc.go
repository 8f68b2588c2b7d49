// Package log provides medtrail's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that feeds the package's own
// formatter/output pipeline.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("records"))
//	l.Info("event appended", log.Str("root_id", id))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config: text or JSON
// formatting, console or null output, key redaction (patient names and
// birth dates are redacted by the server by default) and sampling.
//
// # Interop
//
// RedirectStdLog routes the standard library logger (Pebble writes there)
// through a Logger; ToStdLogger wraps a Logger for APIs expecting *log.Logger.
package log
