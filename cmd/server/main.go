package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/todokeeper/internal/app"
	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/dmehra2102/todokeeper/internal/infrastructure/config"
	"github.com/dmehra2102/todokeeper/internal/infrastructure/notify"
	"github.com/dmehra2102/todokeeper/internal/infrastructure/postgres"
	"github.com/dmehra2102/todokeeper/internal/infrastructure/remote"
	"github.com/dmehra2102/todokeeper/internal/infrastructure/sqlite"
	"github.com/dmehra2102/todokeeper/internal/interceptors"
	"github.com/dmehra2102/todokeeper/internal/reminder"
	"github.com/dmehra2102/todokeeper/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

const (
	serviceName    = "todokeeper"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	obs := cfg.GetObservabilityConfig()
	logger := initLogger(cfg.Environment, obs.LogLevel, obs.LogFormat)
	defer logger.Sync()

	logger.Info("Starting todokeeper",
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.StoreDriver),
	)

	if obs.EnableTracing {
		shutdown, err := initTracer(obs.OTLPEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := initStore(ctx, cfg.GetDatabaseConfig())
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer closeStore()

	repo := repository.NewTaskRepository(store)

	notifier, closeNotifier, err := initNotifier(ctx, cfg.GetReminderConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize reminder delivery", zap.Error(err))
	}
	defer closeNotifier()

	reminders := reminder.NewService(repo, notifier, logger)

	var opts []app.Option
	if cfg.RemoteSyncURL != "" {
		client := remote.NewClient(cfg.RemoteSyncURL, cfg.RemoteSyncTimeout)
		opts = append(opts, app.WithMirror(remote.NewMirror(client, logger)))
		logger.Info("Remote mirror enabled", zap.String("url", cfg.RemoteSyncURL))
	}

	if cfg.GetReminderConfig().CheckOnStart {
		found, err := reminders.CheckNow(ctx)
		if err != nil {
			logger.Warn("Startup reminder check failed", zap.Error(err))
		}
		logger.Info("Startup reminder check done", zap.Int("reminders", len(found)))
	}

	srvCfg := cfg.GetServerConfig()

	metrics := interceptors.NewMetrics(prometheus.DefaultRegisterer)
	var metricsServer *http.Server
	if obs.EnableMetrics {
		metricsServer = startMetricsServer(srvCfg.MetricsPort, logger)
	}

	grpcServer := initGRPCServer(cfg, srvCfg, metrics, logger)

	taskServer := app.NewTaskServer(repo, reminders, logger, opts...)
	app.RegisterTaskServiceServer(grpcServer, taskServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(app.ServiceName, healthpb.HealthCheckResponse_SERVING)

	if srvCfg.EnableReflection {
		reflection.Register(grpcServer)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", srvCfg.Port))
	if err != nil {
		logger.Fatal("Failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("Server starting", zap.Int("port", srvCfg.Port))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("Failed to serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}
}

func initLogger(environment, level, format string) *zap.Logger {
	var zcfg zap.Config
	if environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = format

	logger, err := zcfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

func initTracer(endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func initStore(ctx context.Context, dbCfg config.DatabaseConfig) (domain.TaskStore, func(), error) {
	switch dbCfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, dbCfg.URL, postgres.PoolConfig{
			MaxOpenConns:    dbCfg.MaxOpenConns,
			MaxIdleConns:    dbCfg.MaxIdleConns,
			ConnMaxLifetime: dbCfg.ConnMaxLifetime,
			ConnMaxIdleTime: dbCfg.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(db, dbCfg.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewStore(db), func() { db.Close() }, nil

	default:
		db, err := sqlite.Open(dbCfg.SQLitePath, sqlite.Options{})
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(db), func() { _ = sqlite.Close(db) }, nil
	}
}

// initNotifier always logs reminders, publishes them to NATS when configured,
// and suppresses repeats through Redis when configured.
func initNotifier(ctx context.Context, rc config.ReminderConfig, logger *zap.Logger) (reminder.Notifier, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	sinks := notify.Multi{notify.NewLogNotifier(logger)}

	if rc.NATSURL != "" {
		nc, err := notify.ConnectNATS(rc.NATSURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = nc.Drain() })
		sinks = append(sinks, notify.NewNATSNotifier(nc, rc.Subject))
		logger.Info("Publishing reminders to NATS", zap.String("subject", rc.Subject))
	}

	var notifier reminder.Notifier = sinks

	if rc.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     rc.RedisAddr,
			Password: rc.RedisPassword,
			DB:       rc.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			client.Close()
			closeAll()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}

		closers = append(closers, func() { _ = client.Close() })
		notifier = notify.NewDedupNotifier(client, notifier, rc.DedupTTL, logger)
	}

	return notifier, closeAll, nil
}

func startMetricsServer(port int, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return srv
}

func initGRPCServer(cfg *config.Config, srvCfg config.ServerConfig, metrics *interceptors.Metrics, logger *zap.Logger) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     15 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  5 * time.Minute,
			Timeout:               1 * time.Minute,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             1 * time.Minute,
			PermitWithoutStream: true,
		}),

		grpc.MaxRecvMsgSize(4 * 1024 * 1024),
		grpc.MaxSendMsgSize(4 * 1024 * 1024),

		grpc.StatsHandler(otelgrpc.NewServerHandler()),

		grpc.ChainUnaryInterceptor(
			interceptors.LoggingInterceptor(logger),
			interceptors.RecoveryInterceptor(logger),
			metrics.UnaryInterceptor(),
			interceptors.AuthInterceptor(cfg.JWTSecret),
		),
	}

	if srvCfg.TLSEnabled {
		creds, err := credentials.NewServerTLSFromFile(srvCfg.TLSCertFile, srvCfg.TLSKeyFile)
		if err != nil {
			logger.Fatal("Failed to load TLS credentials", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}

	return grpc.NewServer(opts...)
}
