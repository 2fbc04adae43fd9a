package interceptors

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics holds the per-method request collectors.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method", "code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grpc_request_duration_seconds",
				Help:    "Histogram of gRPC request durations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		activeRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "grpc_active_requests",
				Help: "Number of active gRPC requests",
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()

		m.activeRequests.WithLabelValues(info.FullMethod).Inc()
		defer m.activeRequests.WithLabelValues(info.FullMethod).Dec()

		resp, err = handler(ctx, req)

		m.requestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())

		code := "OK"
		if err != nil {
			st, _ := status.FromError(err)
			code = st.Code().String()
		}
		m.requestsTotal.WithLabelValues(info.FullMethod, code).Inc()

		return resp, err
	}
}
