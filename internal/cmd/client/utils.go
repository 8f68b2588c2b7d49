package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	transports "github.com/rzbill/medtrail/internal/cmd/client/transports"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// grpcAddrFromEnv returns the gRPC server address from MEDTRAIL_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("MEDTRAIL_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:9090"
}

// dialGRPCContext dials the medtrail gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(_ context.Context) (*grpc.ClientConn, error) {
	return grpc.NewClient(grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// transportFor picks the transport named by the root --transport flag.
func transportFor(cmd *cobra.Command, baseURL BaseURLFunc) (transports.RecordsTransport, error) {
	name := "grpc"
	if f := cmd.Flag("transport"); f != nil {
		name = f.Value.String()
	}
	switch strings.ToLower(name) {
	case "grpc", "":
		return transports.NewGrpcTransport(dialGRPCContext), nil
	case "http":
		return transports.NewHTTPTransport(baseURL(), nil), nil
	default:
		return nil, fmt.Errorf("unknown transport %q; use grpc|http", name)
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAttrs turns repeated key=value flags into a map.
func parseAttrs(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid attribute %q; expected key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}
