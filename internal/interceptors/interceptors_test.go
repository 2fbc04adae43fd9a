package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/todokeeper/pkg/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const secret = "interceptor-secret"

var info = &grpc.UnaryServerInfo{FullMethod: "/todokeeper.v1.TaskService/ListActive"}

func withBearer(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func principalHandler(ctx context.Context, _ any) (any, error) {
	p, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return p.Subject, nil
}

func TestAuthInterceptor_ValidToken(t *testing.T) {
	token, err := auth.NewToken(secret, "owner", time.Hour)
	require.NoError(t, err)

	resp, err := AuthInterceptor(secret)(withBearer(token), nil, info, principalHandler)

	require.NoError(t, err)
	assert.Equal(t, "owner", resp)
}

func TestAuthInterceptor_Rejects(t *testing.T) {
	expired, err := auth.NewToken(secret, "owner", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name string
		ctx  context.Context
		msg  string
	}{
		{"no metadata", context.Background(), "missing metadata"},
		{"no header", metadata.NewIncomingContext(context.Background(), metadata.MD{}), "missing authorization header"},
		{"not bearer", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc")), "invalid authorization header format"},
		{"garbage", withBearer("garbage"), "invalid token"},
		{"expired", withBearer(expired), "token has expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AuthInterceptor(secret)(tt.ctx, nil, info, principalHandler)

			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, codes.Unauthenticated, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
}

func TestAuthInterceptor_PublicAndDisabled(t *testing.T) {
	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	resp, err := AuthInterceptor(secret)(context.Background(), nil, health, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	resp, err = AuthInterceptor("")(context.Background(), nil, info, principalHandler)
	require.NoError(t, err)
	assert.Equal(t, LocalSubject, resp)
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDKey, "req-123"))

	var seen string
	_, err := LoggingInterceptor(zap.New(core))(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "req-123", seen)
	entries := logs.FilterMessage("gRPC request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestLoggingInterceptor_LevelByCode(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	interceptor := LoggingInterceptor(zap.New(core))

	_, _ = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "task not found")
	})
	_, _ = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.Internal, "boom")
	})

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.NotEmpty(t, logs.All()[0].ContextMap()["request_id"])
}

func TestMetricsInterceptor(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	interceptor := m.UnaryInterceptor()

	_, _ = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	_, _ = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(info.FullMethod, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(info.FullMethod, "InvalidArgument")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRequests.WithLabelValues(info.FullMethod)))
}

func TestRecoveryInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	resp, err := RecoveryInterceptor(zap.New(core))(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("kaboom")
	})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRecoveryInterceptor_InsideLogging(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	logging := LoggingInterceptor(logger)
	recovery := RecoveryInterceptor(logger)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "req-7"))
	_, err := logging(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		return recovery(ctx, req, info, func(context.Context, any) (any, error) {
			panic("kaboom")
		})
	})
	require.Equal(t, codes.Internal, status.Code(err))

	panics := logs.FilterMessage("panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-7", panics[0].ContextMap()["request_id"])
	assert.Equal(t, info.FullMethod, panics[0].ContextMap()["method"])

	failed := logs.FilterMessage("gRPC request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "req-7", failed[0].ContextMap()["request_id"])
}
