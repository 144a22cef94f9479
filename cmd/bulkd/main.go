package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bulkd/internal/config"
	"bulkd/internal/engine"
	"bulkd/internal/logging"
)

func main() {
	logging.InitFromEnv()

	cfg, err := config.LoadEngine(os.Getenv("BULKD_CONFIG")) // optional
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}
