package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/causify-ai/ascope/internal/handlers"
	"github.com/causify-ai/ascope/internal/middleware"
	"github.com/causify-ai/ascope/internal/repositories"
	"github.com/causify-ai/ascope/internal/services"
	"github.com/causify-ai/ascope/internal/workers"
	"github.com/causify-ai/ascope/pkg/config"
	"github.com/causify-ai/ascope/pkg/database"
	"github.com/causify-ai/ascope/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Set Gin mode
	gin.SetMode(config.AppConfig.Server.Mode)

	// Initialize database
	if err := database.Init(); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize dependencies
	jobRepo := repositories.NewJobRepository(database.DB)
	reportRepo := repositories.NewReportRepository(database.DB)
	aggregationService := services.NewAggregationService()
	reportService := services.NewReportService(reportRepo, aggregationService)
	jobService := services.NewJobService(jobRepo)

	// Initialize worker manager
	workerManager := workers.NewWorkerManager(jobRepo, reportService)

	// Initialize router
	router := gin.Default()
	setupRoutes(router, reportService, jobService)

	// Start workers
	if err := workerManager.StartAll(); err != nil {
		logger.Fatalf("Failed to start workers: %v", err)
	}
	defer workerManager.StopAll()

	// Setup server
	server := &http.Server{
		Addr:         ":" + config.AppConfig.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(config.AppConfig.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.AppConfig.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", config.AppConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server stopped")
}

func setupRoutes(router *gin.Engine, reportService *services.ReportService, jobService *services.JobService) {
	// Initialize handlers
	reportHandler := handlers.NewReportHandler(reportService, jobService)
	healthHandler := handlers.NewHealthHandler()

	// Health check endpoint
	router.GET("/health", healthHandler.HealthCheck)

	// Protected routes
	reports := router.Group("/reports")
	reports.Use(middleware.APIKeyRequired())
	{
		reports.POST("", reportHandler.CreateReport)
		reports.GET("", reportHandler.ListReports)
		reports.GET("/:id", reportHandler.GetReport)
		reports.GET("/:id/download", reportHandler.DownloadReport)
		reports.POST("/:id/delete", reportHandler.DeleteReport)
	}
}
