package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bidtask/bidtask/internal/api"
	"github.com/bidtask/bidtask/internal/api/handlers"
	"github.com/bidtask/bidtask/internal/config"
	"github.com/bidtask/bidtask/internal/database/repositories"
	"github.com/bidtask/bidtask/internal/messaging/notify"
	"github.com/bidtask/bidtask/internal/payments"
	"github.com/bidtask/bidtask/internal/services"
	"github.com/bidtask/bidtask/internal/telemetry"
	"github.com/bidtask/bidtask/pkg/database"
	"github.com/bidtask/bidtask/pkg/logger"
)

// verifyPortAvailable checks if the given port is available for use
func verifyPortAvailable(host string, port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, portNum))
	if err != nil {
		return fmt.Errorf("port %s is not available: %w", port, err)
	}
	ln.Close()
	return nil
}

func RunServer() {
	logger.InitWithMode(logger.LogModePretty)
	log := logger.Get()

	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Successfully connected to database")

	// Set up graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	shutdownTelemetry, err := telemetry.InitTelemetry(shutdownCtx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Telemetry initialization failed, continuing without it")
	}

	taskRepo := repositories.NewTaskRepository(db)
	bidRepo := repositories.NewBidRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)

	notifier := notify.NewClient(cfg.Notify.URL, cfg.Notify.Timeout)
	gateway := payments.NewGateway(cfg.Settlement.GatewayURL, cfg.Settlement.Timeout)

	paymentService := services.NewPaymentService(paymentRepo, gateway, notifier, services.RetryPolicy{
		MaxAttempts: cfg.Settlement.MaxAttempts,
		BaseBackoff: cfg.Settlement.BaseBackoff,
		MaxBackoff:  cfg.Settlement.MaxBackoff,
	})
	taskService := services.NewTaskService(taskRepo, bidRepo, paymentService, notifier)
	bidService := services.NewBidService(taskRepo, bidRepo, notifier)
	reviewService := services.NewReviewService(taskRepo, bidRepo, reviewRepo, notifier)

	taskHandler := handlers.NewTaskHandler(taskService, paymentService)
	bidHandler := handlers.NewBidHandler(bidService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	taskFeed := handlers.NewTaskFeedHandler(taskService, cfg.Server.Websocket.PushInterval)

	router := api.NewRouter(
		taskHandler,
		bidHandler,
		paymentHandler,
		reviewHandler,
		taskFeed,
		cfg.Auth.JWTSecret,
		cfg.Server.Endpoint,
	)

	if err := verifyPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatal().
			Err(err).
			Str("host", cfg.Server.Host).
			Str("port", cfg.Server.Port).
			Msg("Server port is not available")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		<-stopChan
		log.Info().Msg("Shutdown signal received, gracefully shutting down...")
		shutdownCancel()
	}()

	go func() {
		log.Info().
			Str("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-shutdownCtx.Done()

	serverShutdownCtx, serverShutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer serverShutdownCancel()

	log.Info().
		Int("shutdown_timeout_seconds", 15).
		Msg("Initiating server shutdown sequence")

	shutdownStart := time.Now()
	if err := server.Shutdown(serverShutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		if err == context.DeadlineExceeded {
			log.Warn().Msg("Server shutdown deadline exceeded, forcing immediate shutdown")
		}
	} else {
		log.Info().
			Dur("duration_ms", time.Since(shutdownStart)).
			Msg("Server HTTP connections gracefully closed")
	}

	if shutdownTelemetry != nil {
		if err := shutdownTelemetry(serverShutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down telemetry")
		}
	}

	log.Info().Msg("Closing database connection...")
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("Database connection closed successfully")
	}

	log.Info().Msg("Shutdown complete")
}
