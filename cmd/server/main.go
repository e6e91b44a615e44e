package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n3m01726/chattyChat/internal/config"
	"github.com/n3m01726/chattyChat/internal/giphy"
	"github.com/n3m01726/chattyChat/internal/httpserver"
	"github.com/n3m01726/chattyChat/internal/presence"
	"github.com/n3m01726/chattyChat/internal/security"
	"github.com/n3m01726/chattyChat/internal/service"
	"github.com/n3m01726/chattyChat/internal/store/sqlite"
	"github.com/n3m01726/chattyChat/internal/upload"
	"github.com/n3m01726/chattyChat/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A previous process may have crashed with users still marked online;
	// presence is rebuilt from live connections only.
	userRepo := sqlite.NewUserRepo(db)
	if err := userRepo.MarkAllOffline(ctx); err != nil {
		log.Fatalf("failed to reset presence: %v", err)
	}

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL())
	passwordHasher := security.NewPasswordHasher(0)

	files, err := upload.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to open upload dir: %v", err)
	}

	var gifs *giphy.Client
	if cfg.GiphyAPIKey != "" {
		gifs = giphy.NewClient(cfg.GiphyAPIKey)
	} else {
		log.Println("GIPHY_API_KEY not set; gif endpoints disabled")
	}

	hub := ws.NewHub()
	registry := presence.NewRegistry(userRepo)

	// Build HTTP router
	router := httpserver.NewRouter(cfg, db, hub, registry, tokenSvc, passwordHasher, files, gifs)

	// Attachment expiry sweeper
	msgRepo := sqlite.NewMessageRepo(db)
	msgSvc := service.NewMessageService(msgRepo, userRepo, files)
	sweeper := service.NewSweeper(msgSvc, cfg.SweepInterval)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Starting chattyChat server on %s\n", cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
