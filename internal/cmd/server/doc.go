// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the medtrail runtime with gRPC and HTTP servers, handling lifecycle and shutdown.
//
// Example:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{ConfigPath: "/etc/medtrail.yaml"})
package serverrun
