package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"

	"charsmith/pkg/config"
	"charsmith/pkg/server"
	"charsmith/pkg/store"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "error", err)
	}
	log.SetLevel(cfg.Level())

	storage, err := store.Open(cfg.StoreURL)
	if err != nil {
		log.Fatal("failed to open character storage", "url", cfg.StoreURL, "error", err)
	}
	log.Info("character storage ready", "url", cfg.StoreURL)

	images, err := server.NewImageStore(cfg.ImageDir, cfg.ImageCacheTTL)
	if err != nil {
		log.Fatal("failed to open image store", "dir", cfg.ImageDir, "error", err)
	}

	srv := server.NewServer(cfg, storage, images)
	srv.Echo.Logger.SetLevel(cfg.EchoLevel())

	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set; image deletion is disabled")
	}

	finishedShutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
		if c, ok := storage.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Warn("closing storage", "error", err)
			}
		}
		close(finishedShutDown)
	}()

	if err := srv.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-finishedShutDown
}
