package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grading-service/internal/assets"
	"grading-service/internal/config"
	"grading-service/internal/grading"
	"grading-service/internal/handler"
	"grading-service/internal/models"
	"grading-service/internal/repository"
	"grading-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Grading Service...")

	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	condition := models.Condition(cfg.Condition)
	if condition != models.ConditionPneumonia && condition != models.ConditionPneumothorax {
		logger.Fatal("Unknown condition", zap.String("condition", cfg.Condition))
	}

	// Create data directory if not exists
	os.MkdirAll("./data", 0755)

	// Initialize the record store for the configured backend
	var store repository.RecordStore
	switch cfg.Store.Backend {
	case "sqlite":
		store, err = repository.NewSQLiteStore(cfg.Store.SQLite.Path, cfg.Store.SQLite.Table,
			cfg.Store.SQLite.Columns, condition, logger)
		if err != nil {
			logger.Fatal("Failed to initialize sqlite store", zap.Error(err))
		}
	case "csv":
		store = repository.NewCSVStore(cfg.Store.CSV.Path, cfg.Store.CSV.Columns, condition, logger)
	case "remote":
		store, err = repository.NewRemoteStore(repository.RemoteConfig{
			BaseURL:   cfg.Store.Remote.BaseURL,
			Repo:      cfg.Store.Remote.Repo,
			FilePath:  cfg.Store.Remote.FilePath,
			Token:     cfg.Store.Remote.Token,
			LocalPath: cfg.Store.Remote.LocalPath,
		}, cfg.Store.Remote.Columns, condition, logger)
		if err != nil {
			logger.Fatal("Failed to initialize remote store", zap.Error(err))
		}
	default:
		logger.Fatal("Unknown store backend", zap.String("backend", cfg.Store.Backend))
	}
	defer store.Close()

	// Initialize service
	form := grading.NewForm(condition)
	resolver := assets.NewResolver(cfg.Images.Dir, cfg.Images.Extensions)
	reviewer := service.NewReviewer(store, form, resolver, cfg.SkipLabeled, logger)

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(reviewer, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register routes
	apiHandler.RegisterRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Grading Service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("backend", cfg.Store.Backend),
		zap.String("condition", cfg.Condition))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
