package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"chat-core/internal/config"
	"chat-core/internal/db"
	"chat-core/internal/events"
	"chat-core/internal/handlers"
	"chat-core/internal/identity"
	"chat-core/internal/logger"
	"chat-core/internal/middleware"
	"chat-core/internal/observability"
	"chat-core/internal/rabbitmq"
	"chat-core/internal/repositories"
	"chat-core/internal/rpc"
	"chat-core/internal/services"
	"chat-core/internal/store"
	"chat-core/internal/telemetry"
	"chat-core/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if err := logger.Init(cfg.LogLevel, cfg.Development()); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("chat-core stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Environment}); err != nil {
			logger.Warn("sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.InitTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	backend, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	gate, closeGate, err := newGate(cfg.Identity, backend)
	if err != nil {
		return err
	}
	defer closeGate()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoutingKey, cfg.Tracing.ServiceName, cfg.Environment)

	locks := store.NewLocks()
	inboxes := repositories.NewInboxRepo(backend, locks)
	groupRepo := repositories.NewGroupRepo(backend, locks)
	ids := repositories.NewSequenceAllocator(backend, store.CounterMessageID)

	chatService := services.NewChatService(inboxes, ids, gate)
	groupService := services.NewGroupService(groupRepo, inboxes, ids, gate, cfg.Groups.AutoCreateOnPost)

	hub := ws.NewHub()
	dispatcher := events.NewDispatcher(hub)

	chatHandler := handlers.NewChatHandler(chatService, dispatcher, audit)
	groupHandler := handlers.NewGroupHandler(groupService, chatService, dispatcher, audit)
	userWS := ws.NewUserSocketHandler(hub)
	groupWS := ws.NewGroupSocketHandler(hub, groupService)

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(cfg.Tracing.ServiceName), observability.HTTPMetricsMiddleware(), handlers.RequestID())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("", gzip.Gzip(gzip.DefaultCompression))
	handlers.RegisterAPIRoutes(api, gate, chatHandler, groupHandler)

	router.GET("/ws/user", middleware.RequireAuth(gate), userWS.Handle)
	router.GET("/ws/groups/:name", middleware.RequireAuth(gate), groupWS.Handle)
	handlers.RegisterDebugRoutes(router, audit, publisher, cfg.DebugRoutes)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	rpc.Register(grpcServer, rpc.NewServer(chatService, groupService, dispatcher))

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	httpServer := &http.Server{Addr: ":" + cfg.HTTP.Port, Handler: router}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	return err
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	switch cfg.Driver {
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("document store ready", zap.String("driver", cfg.Driver), zap.String("addr", cfg.RedisAddr))
		return store.NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		database, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("document store ready", zap.String("driver", cfg.Driver))
		return store.NewPostgresStore(database), nil
	}
}

func newGate(cfg config.IdentityConfig, docs store.DocumentStore) (identity.Gate, func(), error) {
	if cfg.Mode != config.IdentityModeGRPC {
		return identity.NewDocumentGate(docs), func() {}, nil
	}
	conn, err := grpc.NewClient(cfg.GRPCAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial identity service: %w", err)
	}
	logger.Info("identity gate uses account service", zap.String("addr", cfg.GRPCAddr))
	return identity.NewGRPCGate(conn), func() { _ = conn.Close() }, nil
}
