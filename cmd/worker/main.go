package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatepass/internal/config"
	"gatepass/internal/consumers"
	"gatepass/internal/logger"
)

func main() {
	log.Println("Starting retry worker...")

	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Override NATS client ID for the worker
	cfg.NATS.ClientID = "gatepass-worker"

	// Create and start the worker
	worker, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create retry worker: %v", err)
	}

	// Start consuming retry jobs
	if err := worker.Start(); err != nil {
		log.Fatalf("Failed to start retry worker: %v", err)
	}

	log.Println("Retry worker started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down retry worker...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := worker.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Retry worker stopped")
}
