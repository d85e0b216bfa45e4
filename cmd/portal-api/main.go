package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"networkers-home/certificate-portal/certificate-portal-backend/internal/auth"
	"networkers-home/certificate-portal/certificate-portal-backend/internal/certificates"
	"networkers-home/certificate-portal/certificate-portal-backend/internal/config"
	"networkers-home/certificate-portal/certificate-portal-backend/internal/templates"
	"networkers-home/certificate-portal/certificate-portal-backend/pkg/render"
	"networkers-home/certificate-portal/certificate-portal-backend/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Local development overrides
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&templates.Template{}, &certificates.Certificate{}); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()

	// Setup Router
	gin.SetMode(gin.DebugMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Artifact storage
	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "s3":
		backend, err = storage.NewS3Backend(ctx, cfg.Storage.S3)
		if err != nil {
			logger.Fatal("Failed to initialize s3 storage", zap.Error(err))
		}
	default:
		local, err := storage.NewLocalBackend(cfg.Storage.LocalRoot, cfg.Server.PublicBaseURL)
		if err != nil {
			logger.Fatal("Failed to initialize local storage", zap.Error(err))
		}
		router.Static("/downloads", local.Root())
		backend = local
	}

	// Rendering pipeline
	chromium, err := render.NewChromiumRenderer(cfg.Render.ChromiumPath)
	if err != nil {
		logger.Fatal("Failed to launch chromium", zap.Error(err))
	}
	defer chromium.Close()

	// Module wiring
	templateRepo := templates.NewRepository(db)
	if err := templates.Seed(ctx, templateRepo, logger); err != nil {
		logger.Fatal("Failed to seed templates", zap.Error(err))
	}
	templateHandler := templates.NewHandler(templateRepo)

	certRepo := certificates.NewRepository(db)
	certService := certificates.NewService(
		certRepo,
		certificates.NewRenderer(),
		chromium,
		render.NewRasterConverter(),
		backend,
		certificates.NewAllocator("NH"),
		logger,
		cfg.Render.FinalDPI,
	)
	certHandler := certificates.NewHandler(certService, templateRepo, logger)

	// Register Routes
	verifier := auth.NewJWTVerifier(cfg.Security.JWTSecret)
	api := router.Group("/api/v1")
	{
		certHandler.RegisterPublicRoutes(api)

		protected := api.Group("")
		protected.Use(auth.Middleware(verifier))
		{
			templateHandler.RegisterRoutes(protected)
			certHandler.RegisterRoutes(protected)
		}
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Server.GetServerAddr(),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", zap.Error(err))
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
		logger.Fatal("Server forced to shutdown:", zap.Error(err))
	}

	logger.Info("Server exiting")
}
