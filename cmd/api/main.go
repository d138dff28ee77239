package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docvault/backend/internal/auth"
	"docvault/backend/internal/config"
	"docvault/backend/internal/enforcement"
	"docvault/backend/internal/notifications"
	notifyws "docvault/backend/internal/notifications/websocket"
	"docvault/backend/internal/settings"
	"docvault/backend/internal/vault"
	"docvault/backend/internal/verification"
	"docvault/backend/pkg/ai"
	"docvault/backend/pkg/mail"
	"docvault/backend/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	// Enforcement records ride the same connection through gorm.
	gdb, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	ctx := context.Background()

	// Mailer for admin notifications (best effort, optional).
	var mailer mail.Mailer = mail.NoopMailer{}
	if cfg.Enforcement.SESRegion != "" && cfg.Enforcement.SenderEmail != "" {
		sesMailer, err := mail.NewSESMailer(ctx, cfg.Enforcement.SESRegion, cfg.Enforcement.SenderEmail)
		if err != nil {
			logger.Warn("SES mailer unavailable, admin notifications disabled", zap.Error(err))
		} else {
			mailer = sesMailer
		}
	}

	// Authenticity oracle (optional; absent oracle means the AI step skips).
	var oracle ai.Oracle = ai.Disabled{}
	if cfg.AI.ProjectID != "" {
		vertexOracle, err := ai.NewVertexOracle(ctx, cfg.AI.ProjectID, cfg.AI.Region, cfg.AI.Model)
		if err != nil {
			logger.Warn("Vertex oracle unavailable, AI analysis disabled", zap.Error(err))
		} else {
			oracle = vertexOracle
			defer vertexOracle.Close()
		}
	}

	// Blob store.
	var blobs storage.BlobClient
	if cfg.Storage.Bucket != "" {
		blobs, err = storage.NewS3Client(ctx, cfg.Storage.Region, cfg.Storage.AccessKey, cfg.Storage.SecretKey)
		if err != nil {
			logger.Fatal("Failed to initialize S3 client", zap.Error(err))
		}
	} else {
		logger.Warn("No storage bucket configured, using in-memory blob store")
		blobs = storage.NewMemoryClient()
	}

	masterKey, err := hex.DecodeString(cfg.Security.MasterKey)
	if err != nil || len(masterKey) == 0 {
		logger.Fatal("VAULT_MASTER_KEY must be non-empty hex")
	}

	// User settings and in-app notifications.
	settingsService := settings.NewService(settings.NewRepository(db))
	settingsHandler := settings.NewHandler(settingsService)

	wsManager := notifyws.NewManager(logger)
	notifyService, err := notifications.NewService(gdb, wsManager, settingsService, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications service", zap.Error(err))
	}
	notifyHandler := notifications.NewHandler(notifyService, wsManager)

	// Verification pipeline wiring.
	verifyRepo := verification.NewRepository(db)
	verifyService := verification.NewService(verifyRepo, oracle, verification.Options{
		DuplicateThreshold: cfg.Verification.DuplicateThreshold,
		RestrictedEditors:  cfg.Verification.RestrictedEditors,
	}, logger)
	verifyHandler := verification.NewHandler(verifyService)

	enforceService, err := enforcement.NewService(gdb, mailer, notifyService, cfg.Enforcement.AdminEmail, cfg.Enforcement.BanDuration, logger)
	if err != nil {
		logger.Fatal("Failed to initialize enforcement service", zap.Error(err))
	}
	enforceHandler := enforcement.NewHandler(enforceService)

	serverClient := verification.NewTimeoutClient(
		verification.NewLocalClient(verifyService), cfg.Verification.ServerTimeout)
	orchestrator := verification.NewOrchestrator(serverClient, enforceService, cfg.Verification.PreviewLimit, logger)

	vaultRepo := vault.NewRepository(db)
	vaultService := vault.NewService(vaultRepo, blobs, orchestrator, cfg.Storage.Bucket, masterKey)
	vaultHandler := vault.NewHandler(vaultService, notifyService)

	// Retention: duplicate counts reflect recent activity only.
	scheduler := cron.New()
	_, err = scheduler.AddFunc("@daily", func() {
		retention := time.Duration(cfg.Verification.UploadRetentionDays) * 24 * time.Hour
		pruned, err := verifyService.PruneUploads(context.Background(), retention)
		if err != nil {
			logger.Error("Upload record pruning failed", zap.Error(err))
			return
		}
		logger.Info("Pruned upload records", zap.Int64("count", pruned))
	})
	if err != nil {
		logger.Fatal("Failed to schedule retention job", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.Use(auth.Middleware(cfg.Security.JWTSecret))
	{
		vaultHandler.RegisterRoutes(api)
		verifyHandler.RegisterRoutes(api)
		enforceHandler.RegisterRoutes(api)
		notifyHandler.RegisterRoutes(api)
		settingsHandler.RegisterRoutes(api)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
