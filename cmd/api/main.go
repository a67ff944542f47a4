package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/email-otp/internal/application/otp"
	"github.com/email-otp/internal/config"
	"github.com/email-otp/internal/infrastructure/dynamo"
	firestoreinfra "github.com/email-otp/internal/infrastructure/firestore"
	redisinfra "github.com/email-otp/internal/infrastructure/redis"
	"github.com/email-otp/internal/infrastructure/smtp"
	"github.com/email-otp/internal/pkg/logger"
	transporthttp "github.com/email-otp/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("store init failed", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	deps := &transporthttp.Deps{
		Store:   store,
		Mailer:  smtp.NewMailer(cfg),
		Logger:  log,
		Backend: cfg.StoreBackend,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "err", err)
		return
	}
	log.Info("server stopped")
}

// openStore builds the OTP store selected by STORE_BACKEND. The returned
// close func releases the backend client.
func openStore(ctx context.Context, cfg *config.Config) (otp.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		// Creates the table if it doesn't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewOTPRepo(client, cfg.DynamoTables.OTPs), func() {}, nil

	case config.BackendFirestore:
		client, err := firestoreinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return firestoreinfra.NewOTPRepo(client, cfg.FirestoreCollection), func() { _ = client.Close() }, nil

	case config.BackendRedis:
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewOTPRepo(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
