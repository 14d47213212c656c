// Package server exposes the catalog as the how.v1.Catalog gRPC service
package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nainya/howcatalog/internal/api"
	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/internal/metrics"
)

// NewGRPCServer builds a gRPC server serving svc. Handler panics become
// Internal, catalog errors are mapped to status codes, and every call is
// measured and logged.
func NewGRPCServer(svc CatalogServer, m *metrics.Metrics, log *logger.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		GrpcMetricsInterceptor(m, log),
		RecoveryInterceptor(log),
		StatusInterceptor(),
	))
	s := grpc.NewServer(opts...)
	RegisterCatalogServer(s, svc)
	return s
}

// StatusInterceptor converts handler errors into gRPC status errors
func StatusInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, ToStatus(err)
		}
		return resp, nil
	}
}

// RecoveryInterceptor turns a panicking handler into an Internal error
func RecoveryInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic").
					Str("method", info.FullMethod).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Send()
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// ToStatus maps an error onto a gRPC status error. Errors that already
// carry a status are returned unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	code := codes.Internal
	switch api.Classify(err) {
	case api.KindInvalid:
		code = codes.InvalidArgument
	case api.KindNotFound:
		code = codes.NotFound
	}
	st := status.New(code, err.Error())

	var partial *api.PartialWriteError
	if errors.As(err, &partial) {
		if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason:   PartialWriteReason,
			Domain:   ServiceName,
			Metadata: map[string]string{"hash": partial.Hash},
		}); derr == nil {
			st = detailed
		}
	}
	return st.Err()
}

// PartialWriteReason marks the ErrorInfo detail of a status whose entry
// was written before the failure
const PartialWriteReason = "PARTIAL_WRITE"

// PartialWriteHash returns the address of the entry written before err,
// if err carries one.
func PartialWriteHash(err error) (string, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetReason() == PartialWriteReason {
			return info.GetMetadata()["hash"], true
		}
	}
	return "", false
}
