package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/visitbook/libs/auth"
	"github.com/md-rashed-zaman/visitbook/libs/config"
	"github.com/md-rashed-zaman/visitbook/libs/grpcx"
	"github.com/md-rashed-zaman/visitbook/libs/httpx"
	"github.com/md-rashed-zaman/visitbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/visitbook/libs/otel"
	"github.com/md-rashed-zaman/visitbook/libs/runtime"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/checklist"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/handlers"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/outbox"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC health endpoint and the outbox publisher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cmd)
		},
	}
}

func serve(ctx context.Context, cmd *cobra.Command) error {
	service := serviceName()
	logger := loggerFor(cmd)
	port, err := config.Port("PORT", "8084")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9094")
	if err != nil {
		return err
	}
	loc, err := config.Location("APP_TIMEZONE")
	if err != nil {
		return err
	}

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	store, err := openStore(ctx, cmd, logger)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer func() { _ = store.Close() }()
	if config.Bool("DB_AUTO_MIGRATE", false) {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	templates, err := checklist.LoadTemplates(config.String("CHECKLIST_TEMPLATES_PATH", ""))
	if err != nil {
		return err
	}
	svc := lifecycle.NewService(store, logger, lifecycle.Config{Location: loc, Templates: templates})

	checks := []runtime.ReadyCheck{{Name: "db", Check: store.Ping}}

	brokers := config.String("KAFKA_BROKERS", "")
	var writer outbox.MessageWriter
	if list := kafkax.SplitBrokers(brokers); len(list) > 0 {
		kw := kafkax.NewWriter(list)
		defer func() { _ = kw.Close() }()
		writer = kw
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox events stay unpublished")
	}
	pollEvery, err := config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return err
	}
	publisher := outbox.NewPublisher(store, writer, logger, outbox.PublisherConfig{PollEvery: pollEvery, BatchSize: 50})
	go publisher.Run(ctx)

	rateLimit, limiterCheck, err := rateLimiter(logger)
	if err != nil {
		return err
	}
	if limiterCheck != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Optional: true, Check: limiterCheck})
	}

	tenantAuth, err := tenantAuthFromEnv()
	if err != nil {
		return err
	}
	api := http.NewServeMux()
	handlers.New(svc).Register(api)

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/api/", httpx.Chain(api,
		rateLimit,
		tenantAuth.Middleware,
	))
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(handlers.CORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "appointment")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcx.NewServer(logger)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("servers stopped")
	return nil
}

// rateLimiter shares the limit across replicas through Redis when REDIS_ADDR is set and
// falls back to an in-process window otherwise.
func rateLimiter(logger *slog.Logger) (httpx.Middleware, func(context.Context) error, error) {
	limit, err := config.Int("RATE_LIMIT_PER_MINUTE", 600)
	if err != nil {
		return nil, nil, err
	}
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return httpx.NewRateLimiter(limit, time.Minute).Middleware(), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
	})
	limiter := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "appointment-rl")
	return limiter.Middleware(logger, true), limiter.ReadyCheck(), nil
}

func tenantAuthFromEnv() (handlers.TenantAuth, error) {
	a := handlers.TenantAuth{Secret: config.String("AUTH_JWT_SECRET", "")}
	if url := config.String("AUTH_JWKS_URL", ""); url != "" {
		ttl, err := config.Duration("AUTH_JWKS_CACHE_TTL", 5*time.Minute)
		if err != nil {
			return handlers.TenantAuth{}, err
		}
		a.JWKS = auth.NewJWKSClient(url, ttl)
	}
	return a, nil
}
