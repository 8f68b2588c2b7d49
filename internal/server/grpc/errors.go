package grpcserver

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/medtrail/internal/storeerr"
	logpkg "github.com/rzbill/medtrail/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps the storeerr taxonomy onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var c codes.Code
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		c = codes.NotFound
	case errors.Is(err, storeerr.ErrInvalidKey), errors.Is(err, storeerr.ErrInvalidArgument):
		c = codes.InvalidArgument
	case errors.Is(err, storeerr.ErrDuplicateKey):
		c = codes.AlreadyExists
	case errors.Is(err, storeerr.ErrFailedPrecondition):
		c = codes.FailedPrecondition
	case errors.Is(err, storeerr.ErrStorageUnavailable):
		c = codes.Unavailable
	case errors.Is(err, context.Canceled):
		c = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		c = codes.DeadlineExceeded
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}

func loggingInterceptor(logger logpkg.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		res, err := handler(ctx, req)
		code := status.Code(err)
		l := logger.WithContext(ctx)
		fields := []logpkg.Field{
			logpkg.Str("method", info.FullMethod),
			logpkg.Str("code", code.String()),
			logpkg.Duration("elapsed", time.Since(start)),
		}
		switch code {
		case codes.Internal, codes.Unavailable:
			l.Error("grpc request failed", append(fields, logpkg.Err(err))...)
		default:
			l.Debug("grpc request", fields...)
		}
		return res, err
	}
}
