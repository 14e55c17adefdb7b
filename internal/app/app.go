package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/courtside-live/broadcast-server/internal/config"
	"github.com/courtside-live/broadcast-server/internal/core"
	"github.com/courtside-live/broadcast-server/internal/ingest"
	transporthttp "github.com/courtside-live/broadcast-server/internal/transport/http"
)

// App wires together the hub, the ingest consumer, and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	hub             *core.Hub
	consumer        *ingest.Consumer
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	hub := core.NewHub(core.Options{
		FlushInterval:         cfg.FlushInterval,
		FlushBatchSize:        cfg.FlushBatchSize,
		MaxPending:            cfg.MaxPending,
		HighPriorityThreshold: cfg.HighPriorityThreshold,
		HealthInterval:        cfg.HealthInterval,
		IdleTimeout:           cfg.IdleTimeout,
	}, logger, clockwork.NewRealClock())

	consumer := ingest.NewConsumer(cfg.Kafka, hub, logger)
	server := transporthttp.NewServer(hub, cfg, logger)

	return &App{
		server:          server,
		hub:             hub,
		consumer:        consumer,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Run starts the hub, the Kafka consumer, and the HTTP server, and blocks
// until context cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.consumer.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("ingest consumer stopped with error")
		}
	}()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup broadcasts the shutdown notice, closes client connections, and
// releases the upstream subscription.
func (a *App) cleanup() {
	a.hub.Shutdown()
	if err := a.consumer.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close kafka consumer")
	} else {
		a.log.Info().Msg("kafka consumer closed")
	}
}
