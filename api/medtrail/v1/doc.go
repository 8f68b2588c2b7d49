// Package medtrailv1 defines the medtrail.v1 wire surface shared by the
// HTTP gateway, the gRPC service and the CLI client.
//
// gRPC messages are google.protobuf.Struct values whose fields follow the
// JSON shape of the request and response types in this package, so the same
// payload travels over either transport.
package medtrailv1
