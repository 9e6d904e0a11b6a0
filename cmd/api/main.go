package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	apiconfig "gumdrop/internal/app/api/config"
	apiserver "gumdrop/internal/app/api/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)
	cfg := apiconfig.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := apiserver.New(ctx, cfg)
	if err != nil {
		log.Fatalf("api: failed to initialize: %v", err)
	}
	defer srv.Close()

	log.Printf("api: listening on :%s", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		log.Printf("api: stopped: %v", err)
	}
}
