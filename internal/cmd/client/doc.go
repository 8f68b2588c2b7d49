// Package client provides the `medtrail` command-line client.
//
// The CLI talks to the medtrail gRPC (default) or HTTP endpoint to manage
// patients and their medical events from a terminal.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc; the standalone binary reads MEDTRAIL_HTTP and
// defaults to http://127.0.0.1:8080. The gRPC address is read from the
// MEDTRAIL_GRPC environment variable (default 127.0.0.1:9090). Select the
// transport with --transport grpc|http.
//
// Usage
//
//	medtrail patient create --name "Ada Lovelace" --dob 1815-12-10 --attr ward=3B
//	medtrail patient get 6f1c...
//	medtrail patient list --limit 20
//	medtrail patient delete 6f1c... --cascade
//
//	medtrail event add --patient 6f1c... --type ADMISSION --code I21.9 --by dr.who
//	medtrail event list --patient 6f1c... --window-days 7
//	medtrail event list --patient 6f1c... --limit 50 --filter 'urgent'
package client
