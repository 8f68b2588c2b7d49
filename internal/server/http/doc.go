// Package httpserver provides the REST gateway for medtrail: JSON endpoints
// for patients and their events, plus a health check. Routes live in the
// controllers subpackage.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
