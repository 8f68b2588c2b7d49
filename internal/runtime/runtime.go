package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	cfgpkg "github.com/rzbill/medtrail/internal/config"
	"github.com/rzbill/medtrail/internal/eventlog"
	"github.com/rzbill/medtrail/internal/registry"
	"github.com/rzbill/medtrail/internal/services/records"
	pebblestore "github.com/rzbill/medtrail/internal/storage/pebble"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
}

// Runtime wires storage, config, and the records service for a single-node instance.
type Runtime struct {
	db       *pebblestore.DB
	registry registry.Registry
	events   *eventlog.Store
	records  *records.Service
	config   cfgpkg.Config
	logger   logpkg.Logger
}

// slowOpThreshold is the latency above which storage operations are logged.
const slowOpThreshold = 50 * time.Millisecond

// storageMetrics reports slow storage operations through the logger.
type storageMetrics struct{ logger logpkg.Logger }

func (m storageMetrics) ObserveWrite(elapsed time.Duration, bytes int) {
	if elapsed > slowOpThreshold {
		m.logger.Warn("slow write", logpkg.Duration("elapsed", elapsed), logpkg.Int("bytes", bytes))
	}
}

func (m storageMetrics) ObserveRead(elapsed time.Duration, bytes int) {
	if elapsed > slowOpThreshold {
		m.logger.Warn("slow read", logpkg.Duration("elapsed", elapsed), logpkg.Int("bytes", bytes))
	}
}

func (m storageMetrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	if elapsed > slowOpThreshold {
		m.logger.Warn("slow batch commit", logpkg.Duration("elapsed", elapsed), logpkg.Int("ops", numOps), logpkg.Int("bytes", bytes))
	}
}

// Open initializes storage, the configured registry backend and the records service.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
	if err != nil {
		return nil, err
	}
	dataDir := cfg.ResolvedDataDir()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       dataDir,
		Fsync:         fsync,
		FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
		Metrics:       storageMetrics{logger: logger.With(logpkg.Component("storage"))},
	})
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", dataDir, err)
	}

	var reg registry.Registry
	switch cfg.Registry.Backend {
	case cfgpkg.RegistrySQLite:
		sq, err := registry.OpenSQLite(cfg.ResolvedSQLitePath(), logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		reg = sq
	default:
		reg = registry.NewPebble(db, logger)
	}

	events := eventlog.Open(db, logger)
	urgency, err := records.NewUrgencyRule(cfg.UrgencyExpr, logger)
	if err != nil {
		_ = reg.Close()
		_ = db.Close()
		return nil, fmt.Errorf("urgency rule: %w", err)
	}
	svc, err := records.New(records.Deps{
		Registry:      reg,
		Events:        events,
		Urgency:       urgency,
		Logger:        logger,
		MaxWindowDays: cfg.Events.MaxWindowDays,
		MaxPageSize:   cfg.Events.MaxPageSize,
	})
	if err != nil {
		_ = reg.Close()
		_ = db.Close()
		return nil, err
	}
	logger.Info("runtime opened",
		logpkg.Str("data_dir", dataDir),
		logpkg.Str("fsync", cfg.Fsync),
		logpkg.Str("registry", cfg.Registry.Backend))
	return &Runtime{db: db, registry: reg, events: events, records: svc, config: cfg, logger: logger}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return errors.Join(r.registry.Close(), r.db.Close())
}

// CheckHealth verifies that storage and the registry answer.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	if _, err := r.registry.List(ctx, 1); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	return nil
}

// Records returns the records service.
func (r *Runtime) Records() *records.Service { return r.records }

// Events exposes the event log for maintenance tooling.
func (r *Runtime) Events() *eventlog.Store { return r.events }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
