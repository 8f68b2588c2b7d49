// Package grpcserver serves medtrail.v1.Records and the standard gRPC health
// service. Records messages are google.protobuf.Struct values carrying the
// medtrailv1 wire types; errors map onto gRPC status codes.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":9090")
package grpcserver
