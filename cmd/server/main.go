package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailflow/backend/internal/auth"
	jwtpkg "mailflow/backend/internal/auth/jwt"
	"mailflow/backend/internal/broker"
	"mailflow/backend/internal/cache"
	"mailflow/backend/internal/config"
	"mailflow/backend/internal/health"
	"mailflow/backend/internal/logger"
	"mailflow/backend/internal/monitoring"
	"mailflow/backend/internal/service"
	"mailflow/backend/internal/storage"
	"mailflow/backend/internal/storage/memory"
	"mailflow/backend/internal/storage/postgres"
	redisstore "mailflow/backend/internal/storage/redis"
	httptransport "mailflow/backend/internal/transport/http"
)

// main 启动 mailflow API 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if cfg.Log.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting mailflow server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 存储层：配置了数据库则使用关系型存储，否则内存存储（开发环境）
	var store storage.Store
	var pgClient *postgres.Client
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = newDatabaseStore(cfg)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))

		if cfg.Database.Type == "postgres" {
			pgClient, err = postgres.New(&cfg.Database, log)
			if err != nil {
				log.Warn("pgx liveness client unavailable", zap.Error(err))
			}
		}
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// 缓存服务不可用时降级为直接回源
	var kv cache.KV
	redisClient, err := redisstore.New(&cfg.Redis, log)
	if err != nil {
		log.Warn("redis unavailable, running without cache", zap.Error(err))
	} else {
		kv = redisClient
	}

	metrics := monitoring.NewMetrics()

	readCache := cache.New(kv, store, cfg.Cache.TTL, cfg.Inbox.PageSize, log)
	readCache.SetMetrics(metrics)

	notifyBroker := broker.New(&cfg.Broker, log)

	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authService := auth.NewService(store, jwtManager)

	inboxService := service.NewInboxService(store, readCache, cfg.Inbox, log)
	inboxService.SetMetrics(metrics)
	messageService := service.NewMessageService(store, readCache, notifyBroker, log)
	messageService.SetMetrics(metrics)

	healthChecker := health.NewChecker(store, log)
	if redisClient != nil {
		healthChecker.AddCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		})
	}
	healthChecker.AddCheck("broker", notifyBroker.Health)
	if pgClient != nil {
		healthChecker.AddCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pgClient.Ping(ctx)
		})
	}

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		InboxService:   inboxService,
		MessageService: messageService,
		AuthService:    authService,
		Subscriber:     notifyBroker,
		JWTManager:     jwtManager,
		Health:         healthChecker,
		Metrics:        metrics,
		Logger:         log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// 推送流是长连接，不设置整体读写超时
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if err := notifyBroker.Close(); err != nil {
			log.Warn("broker close warning", zap.Error(err))
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close warning", zap.Error(err))
			}
		}
		if pgClient != nil {
			pgClient.Close()
		}
		if err := store.Close(); err != nil {
			log.Warn("store close warning", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// newDatabaseStore 根据配置创建关系型存储
func newDatabaseStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Type {
	case "postgres":
		return postgres.NewStore(cfg.Database.DSN)
	case "mysql":
		return postgres.NewMySQLStore(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}
