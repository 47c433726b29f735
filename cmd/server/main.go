package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonymousgrouphp-collab/skillbun/internal/common/config"
	"github.com/anonymousgrouphp-collab/skillbun/internal/common/logger"
	apphttp "github.com/anonymousgrouphp-collab/skillbun/internal/http"
)

func main() {
	// Cancellable root context for graceful shutdown and background work.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger.Init("skillbun-gateway", cfg.Debug)

	if cfg.CaptchaPartiallyConfigured() {
		logger.Warn().Msg("Challenge mechanism is partially configured; set both TURNSTILE_SITE_KEY and TURNSTILE_SECRET_KEY. Running with it disabled.")
	}
	if cfg.Upstream.APIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; generation requests will fail until it is configured.")
	}

	router, err := apphttp.NewRouter(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Router setup failed")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
		// Write timeout must outlast the upstream deadline or slow
		// generations get cut off mid-response.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Bool("captcha_enabled", cfg.CaptchaEnabled()).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server exited")
}
