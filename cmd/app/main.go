// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/myagiz61/backend/internal/app/bootstrap"
	"github.com/myagiz61/backend/internal/config"
	"github.com/myagiz61/backend/internal/infra/db/migrations"
	"github.com/myagiz61/backend/internal/infra/logging"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.New("info", "json", false, false).Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Sampling, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Schema ----
	if err := migrations.Up(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	// ---- Components ----
	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap")
	}
	defer app.Close()

	app.StartBackground(ctx)

	// ---- HTTP ----
	server := app.HTTPServer()
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	sctx, scancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer scancel()
	if err := server.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	app.StopBackground()
	cancel()
	logger.Info().Msg("bye")
}
