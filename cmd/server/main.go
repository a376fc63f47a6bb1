package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/braxle/roomrelay/internal/server"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := server.NewLogger(cfg.Environment)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := server.NewHub(logger)
	go hub.Run()

	coord := server.NewCoordinator(logger, hub)
	mux := server.SetupRoutes(hub, coord)
	httpServer := server.CreateServer(cfg.Port, mux)

	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server crashed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	_ = server.ShutdownServer(httpServer, 10*time.Second)
	if err := hub.Shutdown(10 * time.Second); err != nil {
		logger.Warn("hub shutdown incomplete", "err", err)
	}
	logger.Info("shutdown complete")
}
