package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	consumerconfig "gumdrop/internal/app/consumer/config"
	consumerserver "gumdrop/internal/app/consumer/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)
	cfg := consumerconfig.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := consumerserver.New(ctx, cfg)
	if err != nil {
		log.Fatalf("notify consumer: failed to initialize: %v", err)
	}
	defer srv.Close()

	log.Printf("notify consumer: group=%s topic=%s workers=%d", cfg.KafkaGroup, cfg.KafkaTopic, cfg.NotifyWorkers)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("notify consumer: stopped: %v", err)
	}
}
