package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/config"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/guard"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/handlers"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/middleware"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/platform"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/routes"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/services"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/storage"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/logger"
)

func main() {
	// 0. Load Config & Initialize Logger
	cfg, err := config.Load()
	if err != nil {
		panic("unable to load config: " + err.Error())
	}
	logger.Init(cfg.Env)

	logger.Info().Str("environment", cfg.Env).Msg("Starting share backend...")

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Connect Stores
	kv := storage.NewRedisKV(cfg)
	if err := kv.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")

	blob, err := storage.NewR2Blob(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to init R2 client")
	}

	// 2. Build Components
	store := services.NewShareStore(kv, blob, logger.Component("share_store"))
	index := services.NewUserIndex(kv)
	limiter := guard.NewRateLimiter(kv, logger.Component("rate_limiter"))
	recognizer := platform.NewRecognizer()
	shareHandler := handlers.NewShareHandler(store, index, limiter, recognizer, cfg)

	// 3. Setup Router
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg))
	r.Use(middleware.GeneralRateLimit())

	// Health check with store probe
	r.GET("/health", func(c *gin.Context) {
		redisStatus := "ok"
		if err := kv.Ping(c.Request.Context()); err != nil {
			redisStatus = "error"
		}

		status := "ok"
		if redisStatus != "ok" {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status": status,
			"checks": gin.H{"redis": redisStatus},
		})
	})

	// 4. Register Routes
	api := r.Group("/api")
	routes.RegisterShareRoutes(api, shareHandler, cfg.JWTSecret)

	// 5. Start Server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
