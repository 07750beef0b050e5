package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dulbrich/wardclean/internal/database"
	"github.com/dulbrich/wardclean/internal/logging"
	"github.com/dulbrich/wardclean/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("WARDCLEAN_LOG_LEVEL"), os.Getenv("WARDCLEAN_LOG_FORMAT"))

	port := os.Getenv("WARDCLEAN_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("WARDCLEAN_DB_PATH")
	if dbPath == "" {
		dbPath = "wardclean.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pushCfg := server.PushConfig{
		VAPIDPublicKey:  os.Getenv("WARDCLEAN_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("WARDCLEAN_VAPID_PRIVATE_KEY"),
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		logger.Info("push reminders disabled, VAPID keys not configured")
	}

	srv := server.New(db, pushCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Background cleanup: expired auth sessions and stale rate-limit entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.AuthSessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup auth sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired auth sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Wardclean running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
