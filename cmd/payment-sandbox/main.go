// Command payment-sandbox serves the payment lookup API locally so checkout can run without
// a real provider account.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/payment/sandbox"
	"github.com/fjod/go_storefront/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	port := getEnv("SANDBOX_PORT", "8090")
	secret := getEnv("TOSS_SECRET_KEY", "test_sk_sandbox")

	log, err := logger.New(getEnv("LOG_LEVEL", "info"), true)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var status sandbox.GetResponseStatus = sandbox.RandomStatus{}
	if getEnv("SANDBOX_MODE", "random") == "done" {
		status = sandbox.AlwaysDone{}
	}
	server := sandbox.NewServer(secret, status)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      server.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("payment sandbox listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down payment sandbox...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("payment sandbox stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
