package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sown0205/Anubis/internal/analysis"
	"github.com/Sown0205/Anubis/internal/auth"
	"github.com/Sown0205/Anubis/internal/config"
	"github.com/Sown0205/Anubis/internal/history"
	"github.com/Sown0205/Anubis/internal/notification"
	"github.com/Sown0205/Anubis/internal/scanner"
	"github.com/Sown0205/Anubis/internal/server"
	"github.com/Sown0205/Anubis/internal/settings"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Could not load %s (%v), using defaults", *configPath, err)
		cfg = config.Default()
	}

	store, err := history.NewSQLiteStore(cfg.Server.HistoryDB)
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer store.Close()

	tempDir, err := os.MkdirTemp("", "anubis-captures-")
	if err != nil {
		log.Fatalf("Failed to create capture directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	var notifier notification.Notifier
	if cfg.SMTP.Enabled {
		notifier = notification.NewEmailNotifier(cfg.SMTP)
	}

	deps := server.Deps{
		Scanner: scanner.New(scanner.Options{
			Interval:   cfg.Scanner.ScanInterval(),
			MaxResults: cfg.Scanner.MaxResults,
		}),
		Analysis:       analysis.NewService(tempDir, cfg.Server.MaxUploadMB*1024*1024),
		History:        store,
		Settings:       settings.NewRegistry(),
		Auth:           auth.NewService(),
		Notifier:       notifier,
		MaxUploadBytes: cfg.Server.MaxUploadMB * 1024 * 1024,
	}
	api := server.New(deps)

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.Handler(),
	}

	go func() {
		log.Printf("ANUBIS server starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", httpServer.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("ANUBIS server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Let a running session land in the history before exit.
	if session := deps.Scanner.Stop(); session != nil {
		if err := store.Record(context.Background(), *session, deps.Scanner.Results()); err != nil {
			log.Printf("Failed to record final session: %v", err)
		}
	}
	deps.Analysis.Wait()
	log.Println("ANUBIS server exited.")
}
