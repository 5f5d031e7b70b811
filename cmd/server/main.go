package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adventure-server/internal/ai"
	"adventure-server/internal/config"
	"adventure-server/internal/database"
	"adventure-server/internal/handler"
	"adventure-server/internal/imagegen"
	"adventure-server/internal/messaging"
	"adventure-server/internal/migration"
	"adventure-server/internal/service"
	"adventure-server/internal/taskmanager"
	"adventure-server/migrations"
	"adventure-server/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Configuration loaded", zap.String("env", cfg.Env))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- External connections ---
	pgPool, err := database.NewPool(ctx, cfg.GetDSN(), cfg.DBMaxConns)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	zap.L().Info("Connected to PostgreSQL")

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, pgPool, log)
	if err := migrator.Up(ctx); err != nil {
		zap.L().Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zap.L().Info("Connected to Redis")

	var publisher messaging.ScenePublisher = messaging.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		publisher, err = messaging.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.SceneUpdateQueue, log)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		zap.L().Info("Connected to RabbitMQ", zap.String("queue", cfg.SceneUpdateQueue))
	}
	defer publisher.Close()

	// --- Generators ---
	narrator, err := ai.New(ai.Config{
		APIKey:     cfg.AIAPIKey,
		BaseURL:    cfg.AIBaseURL,
		ModelName:  cfg.AIModel,
		Timeout:    cfg.AITimeout,
		MaxRetries: cfg.AIMaxRetries,
	})
	if err != nil {
		zap.L().Fatal("Failed to create narrative generator client", zap.Error(err))
	}

	images := imagegen.NewClient(imagegen.Config{
		APIKey:         cfg.ImageAPIKey,
		BaseURL:        cfg.ImageBaseURL,
		Model:          cfg.ImageModel,
		PlaceholderURL: cfg.ImagePlaceholderURL,
		StyleSuffix:    cfg.ImageStyleSuffix,
		CreateTimeout:  cfg.ImageCreateTimeout,
		PollInterval:   cfg.ImagePollInterval,
		PollAttempts:   cfg.ImagePollAttempts,
	}, log)

	// --- Dependency injection ---
	userRepo := database.NewPgUserRepository(pgPool, log)
	storyRepo := database.NewPgStoryRepository(pgPool, log)
	sceneRepo := database.NewPgSceneRepository(pgPool, log)
	sceneCache := database.NewRedisSceneCache(redisClient, cfg.SceneCacheTTL, log)

	ledger := service.NewCreditLedger(userRepo, log)
	sceneService := service.NewSceneService(service.SceneServiceDeps{
		Stories:   storyRepo,
		Users:     userRepo,
		Scenes:    sceneRepo,
		Cache:     sceneCache,
		Narrator:  narrator,
		Images:    images,
		Ledger:    ledger,
		Publisher: publisher,
	}, log)
	storyService := service.NewStoryService(storyRepo, userRepo, log)

	tasks := taskmanager.New(cfg.PrefetchMaxTasks, log)
	prefetcher := service.NewPrefetchCoordinator(sceneService, tasks, log)

	// Finished prefetch records are only useful for debugging; sweep hourly.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tasks.CleanupTasks(time.Hour)
			case <-cleanupDone:
				return
			}
		}
	}()

	// --- HTTP server ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(handler.GinZapLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	handler.New(sceneService, storyService, prefetcher, log).RegisterRoutes(router)

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")
	close(cleanupDone)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP server forced to shutdown", zap.Error(err))
	}

	// Let in-flight prefetches finish before dropping connections.
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Prefetch tasks did not finish in time", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}
