package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cfgpkg "github.com/rzbill/medtrail/internal/config"
	"github.com/rzbill/medtrail/internal/runtime"
	grpcserver "github.com/rzbill/medtrail/internal/server/grpc"
	httpserver "github.com/rzbill/medtrail/internal/server/http"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

type Options struct {
	// ConfigPath names a YAML or JSON config file. Optional.
	ConfigPath string
	// Config replaces the file and defaults when non-nil.
	Config *cfgpkg.Config
	// Overrides is applied after the file and MEDTRAIL_* env, typically from CLI flags.
	Overrides func(*cfgpkg.Config)
}

// ResolveConfig layers defaults (or the file), environment and overrides, then validates.
func ResolveConfig(opts Options) (cfgpkg.Config, error) {
	var cfg cfgpkg.Config
	switch {
	case opts.Config != nil:
		cfg = *opts.Config
	case opts.ConfigPath != "":
		c, err := cfgpkg.Load(opts.ConfigPath)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		cfg = c
	default:
		cfg = cfgpkg.Default()
	}
	cfgpkg.FromEnv(&cfg)
	if opts.Overrides != nil {
		opts.Overrides(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return cfgpkg.Config{}, err
	}
	return cfg, nil
}

// Run starts gRPC and HTTP servers and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := ResolveConfig(opts)
	if err != nil {
		return err
	}
	procLogger, err := logpkg.ApplyConfig(&cfg.Log)
	if err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	// Pebble and net/http log through the standard library.
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: procLogger})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting medtrail server",
		logpkg.Str("grpc", cfg.GRPCAddr),
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("data_dir", cfg.ResolvedDataDir()),
		logpkg.Str("registry", cfg.Registry.Backend),
		logpkg.Str("fsync", cfg.Fsync),
		logpkg.Int("default_window_days", cfg.Events.DefaultWindowDays),
	)

	gsrv := grpcserver.New(rt, procLogger)
	hsrv := httpserver.New(rt, procLogger)

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gsrv.ListenAndServe(sctx, cfg.GRPCAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("grpc server stopped", logpkg.Err(err))
			errCh <- fmt.Errorf("grpc: %w", err)
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server stopped", logpkg.Err(err))
			errCh <- fmt.Errorf("http: %w", err)
			stop()
		}
	}()

	<-sctx.Done()
	// Servers stop before the runtime closes the DB.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	close(errCh)
	procLogger.Info("medtrail server stopped")
	return <-errCh
}
