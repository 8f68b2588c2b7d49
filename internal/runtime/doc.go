// Package runtime wires storage, config, and the records service into a
// single-node medtrail instance. It exposes Open/Close, basic health checks,
// and accessors used by the transports.
//
// Example:
//
//	cfg := config.Default()
//	cfg.DataDir = "./data"
//	rt, _ := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	root, _ := rt.Records().CreateRoot(ctx, records.RootDraft{Name: "Ada"})
package runtime
