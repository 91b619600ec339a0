/*
Package main is the entry point for the call relay.

It loads configuration, initializes the global logger, wires the credential
issuer, call-duration history and signaling manager into the HTTP server, and
shuts everything down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callrelay/internal/app/credential"
	"callrelay/internal/app/db"
	"callrelay/internal/app/history"
	"callrelay/internal/app/signaling"
	"callrelay/internal/configs"
	"callrelay/internal/handler"
	"callrelay/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("call_default_duration", cfg.CallDefaultDuration).
		Dur("call_max_duration", cfg.CallMaxDuration).
		Bool("end_calls_on_disconnect", cfg.EndCallsOnDisconnect).
		Bool("durable_history", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store history.Store = history.NewMemoryStore()
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to open call-duration database")
		}
		defer pool.Close()
		store = history.NewPostgresStore(pool)
	}

	issuer := credential.NewJWTIssuer(cfg.TokenSecret, cfg.TokenIssuer, nil)

	manager := signaling.NewManager(signaling.Options{
		Issuer:               issuer,
		History:              store,
		DefaultCallDuration:  cfg.CallDefaultDuration,
		MaxCallDuration:      cfg.CallMaxDuration,
		EndCallsOnDisconnect: cfg.EndCallsOnDisconnect,
	})

	router := handler.Router(&handler.AppDeps{
		Manager: manager,
		Config:  cfg,
		Issuer:  issuer,
		History: store,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Call relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
