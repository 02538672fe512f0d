package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/weiawesome/majex-chat/internal/audit"
	"github.com/weiawesome/majex-chat/internal/cache"
	"github.com/weiawesome/majex-chat/internal/config"
	"github.com/weiawesome/majex-chat/internal/events"
	chatgrpc "github.com/weiawesome/majex-chat/internal/grpc"
	"github.com/weiawesome/majex-chat/internal/handler"
	"github.com/weiawesome/majex-chat/internal/hub"
	"github.com/weiawesome/majex-chat/internal/idgen"
	"github.com/weiawesome/majex-chat/internal/presence"
	"github.com/weiawesome/majex-chat/internal/repository"
	"github.com/weiawesome/majex-chat/internal/service"
	pkgconfig "github.com/weiawesome/majex-chat/pkg/config"
	"github.com/weiawesome/majex-chat/pkg/database"
	"github.com/weiawesome/majex-chat/pkg/log"
	"github.com/weiawesome/majex-chat/pkg/pubsub"
)

func main() {
	if err := pkgconfig.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := log.Init(cfg.Log)
	l := log.L()
	l.Info().Str("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).Msg("starting chat service")

	ids, err := idgen.New(cfg.ID.Generator)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create id generator")
	}

	// Message store
	repo, db, err := openRepository(cfg, ids)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to open message store")
	}
	if db != nil {
		defer database.Close(db)
	}

	// History cache
	var historyCache cache.HistoryCache = cache.NopCache{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisHistoryCache(cfg.Redis, cfg.Cache)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect history cache")
		}
		historyCache = redisCache
		l.Info().Str("address", cfg.Redis.Address).Msg("history cache connected")
	}
	defer historyCache.Close()

	// Event bus
	bus, err := pubsub.NewPublisher(pubsub.Config{
		Driver: cfg.Events.Driver,
		Redis: pubsub.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Kafka: cfg.Events.Kafka,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create event publisher")
	}
	publisher := events.NewMessagePublisher(bus, cfg.Events.Channel)
	defer publisher.Close()

	// Registry, presence and relay
	wsHub := hub.NewHub()
	presence.NewBroadcaster(wsHub)
	wsHub.AddListener(audit.MembershipLogger{})

	chatSvc := service.NewChatService(wsHub, repo, historyCache, publisher, cfg.Database.WriteTimeout)
	historySvc := service.NewHistoryService(repo, historyCache)

	// gRPC health
	var grpcServer *chatgrpc.Server
	if cfg.GRPC.Enabled {
		grpcAddr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		grpcServer, err = chatgrpc.StartGRPCServer(grpcAddr, logger)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to start grpc server")
		}
	}

	// HTTP
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(logger))
	router.Use(handler.CORS(cfg.WebSocket.AllowedOrigins))

	handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket).RegisterRoutes(router)
	handler.NewHTTPHandler(historySvc, chatSvc, healthCheck(db)).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		l.Info().Str("address", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down chat service")

	if grpcServer != nil {
		grpcServer.SetServing(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	closed := wsHub.CloseAll()
	l.Info().Int("sessions", closed).Msg("closed websocket sessions")

	if grpcServer != nil {
		grpcServer.Stop()
	}

	l.Info().Msg("chat service stopped")
}

func openRepository(cfg *config.Config, ids idgen.Generator) (repository.MessageRepository, *gorm.DB, error) {
	if cfg.Database.Driver == "memory" {
		return repository.NewMemoryMessageRepository(ids), nil, nil
	}

	db, err := database.New(&cfg.Database.Config)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewGormMessageRepository(db, ids)
	if cfg.Database.AutoMigrate {
		if err := repo.Migrate(); err != nil {
			database.Close(db)
			return nil, nil, err
		}
	}
	return repo, db, nil
}

func healthCheck(db *gorm.DB) handler.HealthCheck {
	if db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}
}
