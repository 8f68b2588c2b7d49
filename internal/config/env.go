package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays MEDTRAIL_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("MEDTRAIL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MEDTRAIL_FSYNC"); v != "" {
		cfg.Fsync = strings.ToLower(v)
	}
	if v := os.Getenv("MEDTRAIL_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("MEDTRAIL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("MEDTRAIL_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("MEDTRAIL_REGISTRY_BACKEND"); v != "" {
		cfg.Registry.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("MEDTRAIL_REGISTRY_SQLITE_PATH"); v != "" {
		cfg.Registry.SQLitePath = v
	}
	if v := os.Getenv("MEDTRAIL_DEFAULT_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Events.DefaultWindowDays = n
		}
	}
	if v := os.Getenv("MEDTRAIL_MAX_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Events.MaxWindowDays = n
		}
	}
	if v := os.Getenv("MEDTRAIL_MAX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Events.MaxPageSize = n
		}
	}
	if v := os.Getenv("MEDTRAIL_URGENCY_EXPR"); v != "" {
		cfg.UrgencyExpr = v
	}
	if v := os.Getenv("MEDTRAIL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MEDTRAIL_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MEDTRAIL_LOG_REDACT"); v != "" {
		cfg.Log.Redact = nil
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.Log.Redact = append(cfg.Log.Redact, p)
			}
		}
	}
}
