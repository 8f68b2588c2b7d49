// Package config provides loading and environment overlay for medtrail
// configuration. It exposes a Default() baseline that files (JSON or YAML)
// and MEDTRAIL_* environment variables refine.
//
// Example:
//
//	cfg, err := config.Load("/etc/medtrail.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
