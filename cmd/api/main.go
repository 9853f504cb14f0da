package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/trimwell/insight-service/internal/adapters/handler"
	"github.com/trimwell/insight-service/internal/adapters/middleware"
	"github.com/trimwell/insight-service/internal/adapters/repository"
	"github.com/trimwell/insight-service/internal/adapters/websocket"
	"github.com/trimwell/insight-service/internal/config"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database with retry logic
	db, err := config.ConnectDatabase(cfg.DatabaseURL, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := config.InitDatabase(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Load reference catalog: from file when configured, builtin otherwise
	catalog := domain.DefaultReferenceCatalog()
	if cfg.ReferenceRangesPath != "" {
		loaded, err := repository.LoadReferenceCatalog(cfg.ReferenceRangesPath)
		if err != nil {
			log.Fatalf("Failed to load reference catalog: %v", err)
		}
		catalog = loaded
		log.Printf("Loaded reference catalog %s from %s", catalog.Version, cfg.ReferenceRangesPath)
	}

	// Initialize RabbitMQ publisher
	rabbitMQPublisher, err := repository.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.InsightsQueueName, cfg.AlertsQueueName)
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ publisher: %v", err)
	}
	defer rabbitMQPublisher.Close()

	// Initialize repositories
	sqlRepo := repository.NewSQLRepository(db)

	// Initialize WebSocket hub for realtime summary pushes
	hub := websocket.NewHub()
	hub.SetConnectionsGauge(handler.WebSocketConnections)
	go hub.Run()

	// Initialize services
	evaluatorService := services.NewEvaluatorService(catalog)
	recordService := services.NewRecordService(sqlRepo, evaluatorService, rabbitMQPublisher, hub)
	treatmentService := services.NewTreatmentService(sqlRepo, sqlRepo)

	// Initialize RabbitMQ consumer for device record sync
	// Runs in the same pod and ingests daily snapshots pushed by the gateway
	recordConsumer, err := repository.NewRecordConsumer(cfg.RabbitMQURL, cfg.RecordsQueueName, recordService)
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ record consumer: %v", err)
	}
	defer recordConsumer.Close()

	// Start record consumer in background goroutine (non-blocking)
	// In multi-replica deployments RabbitMQ distributes messages round-robin
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	go func() {
		if err := recordConsumer.StartConsuming(consumerCtx); err != nil {
			log.Printf("Record consumer error: %v", err)
		}
	}()
	log.Println("Record consumer started in background, listening for record sync messages")

	// Register domain metrics
	handler.RegisterInsightMetrics()

	// Initialize JWT middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)
	defer authMiddleware.Stop()

	// Initialize handlers
	evaluationHandler := handler.NewEvaluationHandler(evaluatorService)
	recordHandler := handler.NewRecordHandler(recordService)
	treatmentHandler := handler.NewTreatmentHandler(treatmentService)
	healthHandler := handler.NewHealthHandler(db)
	wsHandler := handler.NewWebSocketHandler(hub, authMiddleware)

	// Setup HTTP router
	mux := http.NewServeMux()

	// Health endpoints (no auth required)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	// Raw evaluator surface
	mux.HandleFunc("GET /metrics/{metric_key}/evaluation", authMiddleware.RequireAuth(evaluationHandler.Evaluate))

	// Daily record ingestion - USER: owned only (ADMIN access is read-only)
	mux.HandleFunc("POST /users/{user_id}/records/sleep", authMiddleware.RequireAuth(recordHandler.IngestSleep))
	mux.HandleFunc("POST /users/{user_id}/records/activity", authMiddleware.RequireAuth(recordHandler.IngestActivity))
	mux.HandleFunc("POST /users/{user_id}/records/heart", authMiddleware.RequireAuth(recordHandler.IngestHeart))

	// Daily summary - ADMIN: any, USER: owned only
	mux.HandleFunc("GET /users/{user_id}/summary", authMiddleware.RequireAuth(recordHandler.GetDailySummary))

	// GLP-1 treatment tracking
	mux.HandleFunc("POST /users/{user_id}/treatment", authMiddleware.RequireAuth(treatmentHandler.CreateTreatment))
	mux.HandleFunc("GET /users/{user_id}/treatment", authMiddleware.RequireAuth(treatmentHandler.GetTreatment))
	mux.HandleFunc("GET /users/{user_id}/treatment/progression", authMiddleware.RequireAuth(treatmentHandler.GetProgression))
	mux.HandleFunc("POST /users/{user_id}/treatment/escalate", authMiddleware.RequireAuth(treatmentHandler.EscalateDose))
	mux.HandleFunc("POST /users/{user_id}/treatment/injections", authMiddleware.RequireAuth(treatmentHandler.LogInjection))

	// Weight history
	mux.HandleFunc("POST /users/{user_id}/weights", authMiddleware.RequireAuth(treatmentHandler.AddWeight))
	mux.HandleFunc("GET /users/{user_id}/weights", authMiddleware.RequireAuth(treatmentHandler.ListWeights))

	// WebSocket endpoint (token via header or query parameter)
	mux.HandleFunc("GET /ws", wsHandler.HandleWebSocket)

	// Wrap mux with metrics middleware to track all HTTP requests
	instrumentedRouter := middleware.MetricsMiddleware(mux)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      instrumentedRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Insight Service on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel consumer context first to stop processing new messages
	consumerCancel()
	log.Println("Record consumer stopped")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
