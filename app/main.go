package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/denizkarakus123/EventHive-backend/app/api"
	"github.com/denizkarakus123/EventHive-backend/app/cfg"
	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/event"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
	"github.com/denizkarakus123/EventHive-backend/app/feed"
	"github.com/denizkarakus123/EventHive-backend/app/mail"
	"github.com/denizkarakus123/EventHive-backend/app/tasks"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(c)

	slog.Info("Starting EventHive server", "version", cfg.GetVersion())

	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", c.DBPath, "migration_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(c.AccountsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load account configurations", "dir", c.AccountsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Account configurations loaded", "count", configCache.GetConfigCount())

	accountRepo := database.NewAccountRepository(db)
	postRepo := database.NewPostRepository(db)
	eventRepo := database.NewEventRepository(db)

	extractor := extract.NewExtractor()
	if extractor == nil {
		slog.Warn("No extraction provider configured, fetched posts will not become events")
	}

	normalizer := event.NewNormalizer()
	sink := event.NewSink(eventRepo)
	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser())

	var mailDrop *mail.Drop
	if c.MailDropDir != "" {
		mailDrop = mail.NewDrop(c.MailDropDir)
		slog.Info("Mail drop enabled", "dir", c.MailDropDir)
	}

	scheduler := tasks.NewScheduler(configCache, accountRepo, postRepo, fetcher,
		extractor, normalizer, sink, mailDrop)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(configCache, accountRepo, postRepo, eventRepo,
		fetcher, extractor, normalizer, sink, scheduler)
	server := api.NewServer(apiHandler, c.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func setupLogger(c *cfg.Cfg) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
