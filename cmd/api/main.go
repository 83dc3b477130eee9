package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smartchef/internal/config"
	"smartchef/internal/db"
	apihttp "smartchef/internal/http"
	"smartchef/internal/llm"
	"smartchef/internal/oauth"
	"smartchef/internal/repository"
	"smartchef/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.RunMigrations(ctx, cfg); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	identitySvc := service.NewIdentityService(logger, userRepo, cfg.DefaultDailyLimit, cfg.DefaultWeeklyLimit)
	quotaSvc := service.NewQuotaService(logger, userRepo)
	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMAudioModel, logger)
	providers := oauth.NewRegistry(cfg)

	var stateStore service.StateStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			stateStore = service.NewRedisStateStore(redisClient)
		}
		cancel()
	}

	authHandler := apihttp.NewAuthHandler(logger, identitySvc, jwtSvc, providers, stateStore)
	userHandler := apihttp.NewUserHandler(logger, identitySvc, quotaSvc)
	chatHandler := apihttp.NewChatHandler(logger, quotaSvc, llmClient)

	healthz := func(c *gin.Context) {
		if err := db.Ping(c.Request.Context(), pool); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}

	router := apihttp.NewRouter(logger, cfg.ClientURL, jwtSvc, authHandler, userHandler, chatHandler, healthz)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
