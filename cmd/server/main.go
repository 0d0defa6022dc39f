package main

import (
	"os"

	"botgateway/internal/config"
	"botgateway/internal/log"
	"botgateway/internal/server"
	"botgateway/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := log.CreateLogger()

	cfg := config.LoadFromEnv(logger)

	st, err := store.InitStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store: %v", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, logger, st)
	if err != nil {
		logger.Error("Failed to create server: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("Failed to close server: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		logger.Error("Server exited with error: %v", err)
		os.Exit(1)
	}
}
