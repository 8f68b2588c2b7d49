package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rzbill/medtrail/internal/cmd/client"
	serverrun "github.com/rzbill/medtrail/internal/cmd/server"
	cfgpkg "github.com/rzbill/medtrail/internal/config"
	logpkg "github.com/rzbill/medtrail/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect MEDTRAIL_LOG_LEVEL for CLI output before any config is loaded
	level := os.Getenv("MEDTRAIL_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:           "medtrail",
		Short:         "medtrail patient event store",
		Long:          "medtrail is a single-binary store for patients and their time-ordered medical events.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start medtrail server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			flags := cmd.Flags()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			err := serverrun.Run(ctx, serverrun.Options{
				ConfigPath: configPath,
				Overrides: func(c *cfgpkg.Config) {
					if flags.Changed("data-dir") {
						c.DataDir, _ = flags.GetString("data-dir")
					}
					if flags.Changed("grpc") {
						c.GRPCAddr, _ = flags.GetString("grpc")
					}
					if flags.Changed("http") {
						c.HTTPAddr, _ = flags.GetString("http")
					}
					if flags.Changed("fsync") {
						c.Fsync, _ = flags.GetString("fsync")
					}
					if flags.Changed("fsync-interval-ms") {
						c.FsyncIntervalMs, _ = flags.GetInt("fsync-interval-ms")
					}
					if flags.Changed("registry") {
						c.Registry.Backend, _ = flags.GetString("registry")
					}
					if flags.Changed("log-level") {
						c.Log.Level, _ = flags.GetString("log-level")
					}
					if flags.Changed("log-format") {
						c.Log.Format, _ = flags.GetString("log-format")
					}
				},
			})
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("config", os.Getenv("MEDTRAIL_CONFIG"), "Config file (YAML or JSON)")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("grpc", ":9090", "gRPC listen address")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	serverStartCmd.Flags().String("registry", "pebble", "Patient registry backend: pebble|sqlite")
	serverStartCmd.Flags().String("log-level", "info", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "text", "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)

	// config print
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective server configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := serverrun.ResolveConfig(serverrun.Options{ConfigPath: configPath})
			if err != nil {
				return err
			}
			return cfgpkg.Write(cmd.OutOrStdout(), cfg)
		},
	}
	configCmd.Flags().String("config", os.Getenv("MEDTRAIL_CONFIG"), "Config file (YAML or JSON)")
	serverCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serverCmd)

	clientcmd.AddClientCommands(rootCmd, apiURL)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("MEDTRAIL_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
