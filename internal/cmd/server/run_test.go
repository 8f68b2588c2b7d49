package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/medtrail/internal/config"
)

func TestResolveConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "medtrail.yaml")
	data := []byte("httpAddr: 127.0.0.1:7000\ngrpcAddr: 127.0.0.1:7001\nevents:\n  defaultWindowDays: 10\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MEDTRAIL_DEFAULT_WINDOW_DAYS", "20")
	t.Setenv("MEDTRAIL_HTTP_ADDR", "")

	cfg, err := ResolveConfig(Options{
		ConfigPath: file,
		Overrides: func(c *cfgpkg.Config) {
			c.GRPCAddr = "127.0.0.1:7002"
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7000" {
		t.Errorf("file value lost: %s", cfg.HTTPAddr)
	}
	if cfg.Events.DefaultWindowDays != 20 {
		t.Errorf("env should override file, got %d", cfg.Events.DefaultWindowDays)
	}
	if cfg.GRPCAddr != "127.0.0.1:7002" {
		t.Errorf("overrides should win, got %s", cfg.GRPCAddr)
	}
}

func TestResolveConfigInvalid(t *testing.T) {
	if _, err := ResolveConfig(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
	_, err := ResolveConfig(Options{Overrides: func(c *cfgpkg.Config) { c.Registry.Backend = "mongo" }})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestResolveConfigExplicit(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.DataDir = "/custom/data"
	got, err := ResolveConfig(Options{Config: &cfg})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ResolvedDataDir() != "/custom/data" {
		t.Errorf("Expected DataDir /custom/data, got %s", got.ResolvedDataDir())
	}
}

// TestRunIntegration verifies Run starts both servers and returns cleanly on cancellation.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.Fsync = "never"
	cfg.Log.Output = "null"

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := Run(ctx, Options{Config: &cfg}); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestRunRejectsBadLogConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Log.Format = "xml"
	if err := Run(context.Background(), Options{Config: &cfg}); err == nil {
		t.Fatalf("expected log config error")
	}
}
