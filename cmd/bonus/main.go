package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/playvault/bonus-service/internal/promocodes"
	"github.com/playvault/bonus-service/pkg/boundedcache"
	"github.com/playvault/bonus-service/pkg/cache"
	"github.com/playvault/bonus-service/pkg/config"
	"github.com/playvault/bonus-service/pkg/database"
	"github.com/playvault/bonus-service/pkg/errors"
	"github.com/playvault/bonus-service/pkg/health"
	"github.com/playvault/bonus-service/pkg/logger"
	"github.com/playvault/bonus-service/pkg/middleware"
	"github.com/playvault/bonus-service/pkg/ratelimit"
	redisclient "github.com/playvault/bonus-service/pkg/redis"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load("bonus-service")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment, cfg.Server.ServiceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Error tracking
	if cfg.Sentry.Enabled {
		sentryConfig := &errors.SentryConfig{
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
			Release:     serviceVersion,
			ServerName:  cfg.Server.ServiceName,
		}
		if err := errors.InitSentry(sentryConfig); err != nil {
			logger.Warn("failed to initialize sentry, continuing without error tracking", zap.Error(err))
		} else {
			defer errors.Flush(2 * time.Second)
			logger.Info("sentry error tracking initialized")
		}
	}

	// PostgreSQL
	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("connected to postgres",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	if err := database.Migrate(&cfg.Database, "file://db/migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Wiring
	repo := promocodes.NewRepository(db)
	service := promocodes.NewService(repo)
	handler := promocodes.NewHandler(service)

	healthChecks := map[string]health.Checker{
		"database": health.PostgresChecker(db),
	}

	// Redis is optional: without it the service skips read caching and the
	// redemption throttle.
	var limiter *ratelimit.Limiter
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("failed to connect to redis, continuing without cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			service.SetCache(cache.NewManager(redisClient))
			limiter = ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
			healthChecks["redis"] = health.RedisChecker(redisClient.Client)
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.RedisAddr()))
		}
	}

	// In-process session claims cache, bounded so a token flood cannot grow
	// memory without limit.
	sessions := boundedcache.New[string, *middleware.Claims](
		boundedcache.WithMaxSize(cfg.Sessions.MaxSize),
		boundedcache.WithCleanupFraction(cfg.Sessions.CleanupFraction),
		boundedcache.WithLogger(logger.Get().Named("sessions")),
	)

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(cfg.Server.ServiceName))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.RequestTimeout(time.Duration(cfg.Server.TimeoutSeconds) * time.Second))
	router.Use(middleware.ErrorHandler())

	health.NewHandler(cfg.Server.ServiceName, serviceVersion, healthChecks).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		authenticated := api.Group("/promocodes")
		authenticated.Use(middleware.AuthMiddleware(cfg.JWT.Secret, sessions))
		{
			authenticated.POST("/redeem", middleware.RateLimit(limiter), handler.Redeem)
			authenticated.GET("/history", handler.GetHistory)
			authenticated.GET("/:code", handler.FindByCode)
		}

		admin := api.Group("/admin/promocodes")
		admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret, sessions))
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("", handler.CreatePromocode)
			admin.GET("", handler.ListPromocodes)
			admin.GET("/:id", handler.GetPromocode)
			admin.POST("/:id/deactivate", handler.DeactivatePromocode)
			admin.GET("/:id/stats", handler.GetUsageStats)
		}
	}

	addr := ":" + cfg.Server.Port
	logger.Info("bonus service starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
