package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailflow/backend/internal/auth"
	jwtpkg "mailflow/backend/internal/auth/jwt"
	"mailflow/backend/internal/broker"
	"mailflow/backend/internal/config"
	"mailflow/backend/internal/health"
	"mailflow/backend/internal/middleware"
	"mailflow/backend/internal/monitoring"
	"mailflow/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	InboxService   *service.InboxService
	MessageService *service.MessageService
	AuthService    *auth.Service
	Subscriber     broker.Subscriber
	JWTManager     *jwtpkg.Manager
	Health         *health.Checker
	Metrics        *monitoring.Metrics // 可为 nil
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024))
	router.Use(middleware.HTTPMetrics(deps.Metrics))

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时不能同时开启凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	rateLimiter := middleware.NewRateLimiter(50, 100)
	router.Use(rateLimiter.Handler())

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	inboxHandler := NewInboxHandler(deps.InboxService, deps.Config.Inbox)
	messageHandler := NewMessageHandler(deps.MessageService)
	streamHandler := NewStreamHandler(deps.Subscriber, deps.Logger, deps.Metrics)

	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)

	// 运维端点
	if deps.Health != nil {
		router.GET("/healthz", gin.WrapH(deps.Health.LiveHandler()))
		router.GET("/readyz", gin.WrapH(deps.Health.ReadyHandler()))
	} else {
		router.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	api := router.Group("/api")
	{
		// ========== Auth Routes ==========
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
		}

		// ========== Inbox Routes ==========
		inboxRoutes := api.Group("/inbox", jwtAuth.RequireAuth())
		{
			inboxRoutes.GET("", inboxHandler.List)
			inboxRoutes.POST("", inboxHandler.Create)
			inboxRoutes.GET("/:id", inboxHandler.Get)
			inboxRoutes.PUT("/:id", inboxHandler.Rename)
			inboxRoutes.DELETE("/:id", inboxHandler.Delete)
			inboxRoutes.POST("/:id/clean", inboxHandler.Clean)
		}

		// ========== Message Routes ==========
		messageRoutes := api.Group("/message", jwtAuth.RequireAuth())
		{
			// 推送流（SSE 与 WebSocket）
			messageRoutes.GET("/update", streamHandler.Stream)
			messageRoutes.GET("/updates/ws", streamHandler.StreamWS)

			messageRoutes.GET("/:id", messageHandler.Get)
			messageRoutes.DELETE("/:id", messageHandler.Delete)
		}

		// ========== Ingest（外部投递服务专用，凭证随请求体校验） ==========
		api.POST("/ingest", messageHandler.Ingest)
	}

	return router
}
