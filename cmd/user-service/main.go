package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"admin-dashboard/internal/logging"
	"admin-dashboard/internal/stubapi"
)

func main() {
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: logging.ParseFormat(os.Getenv("LOG_FORMAT")),
	})
	slog.SetDefault(logger)

	addr := ":" + getEnv("PORT", "4001")
	server := &http.Server{
		Addr:              addr,
		Handler:           stubapi.NewUsersHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("User service listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
