package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/connecta-server/internal/config"
	"github.com/vovakirdan/connecta-server/internal/content"
	"github.com/vovakirdan/connecta-server/internal/core"
	applog "github.com/vovakirdan/connecta-server/internal/log"
	"github.com/vovakirdan/connecta-server/internal/stats"
	transporthttp "github.com/vovakirdan/connecta-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	stats           *stats.Updater
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	su := stats.NewUpdater()

	var sanitize func(string) string
	if cfg.Chat.SanitizeContent {
		sanitize = content.Sanitize
	}

	hub := core.NewHub(core.Options{
		Logger:             applog.Component(logger, "hub"),
		Stats:              su,
		PublicLogLimit:     cfg.Chat.PublicLogLimit,
		PublicHistoryLimit: cfg.Chat.PublicHistoryLimit,
		DefaultAvatarURL:   cfg.Chat.DefaultAvatarURL,
		ReportErrors:       cfg.Chat.ReportErrors,
		Sanitize:           sanitize,
	})
	server := transporthttp.NewServer(hub, *cfg, su.Handler(), applog.Component(logger, "http"))

	logger.Info().
		Int("public_log_limit", cfg.Chat.PublicLogLimit).
		Bool("report_errors", cfg.Chat.ReportErrors).
		Bool("sanitize_content", cfg.Chat.SanitizeContent).
		Str("static_dir", cfg.StaticDir).
		Msg("application configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		stats:           su,
		log:             logger,
	}, nil
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled
// or the server fails.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
