package interceptors

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RecoveryInterceptor turns a handler panic into codes.Internal. It runs
// inside LoggingInterceptor so the panic is logged with the request id and
// the failed call is still logged and counted.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			span := trace.SpanFromContext(ctx)
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, "panic recovered")

			logger.Error("panic recovered",
				zap.String("method", info.FullMethod),
				zap.String("request_id", RequestIDFromContext(ctx)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			resp = nil
			err = status.Error(grpccodes.Internal, "internal server error")
		}()

		return handler(ctx, req)
	}
}
