package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prophecy/go/internal/realtime"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(config)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, err := setupServices(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	log.Info().
		Str("api", config.API.BaseURL).
		Str("snapshot_source", config.Snapshot.Source).
		Str("transport", config.Stream.Transport).
		Str("port", config.Server.Port).
		Msg("starting prophecy mirror")

	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		if err := services.Syncer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("syncer failed")
		}
	}()
	go watchConnection(services.Syncer)

	server := setupServer(config.Server.Port, services.Syncer, clockwork.NewRealClock())
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	select {
	case <-syncDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("syncer did not stop in time")
	}

	log.Info().Msg("prophecy mirror shutdown complete")
}

func setupLogging(config *Config) {
	if config.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil {
		log.Warn().Str("level", config.Log.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// watchConnection surfaces sustained disconnection as a non-fatal
// "reconnecting" notice.
func watchConnection(syncer *realtime.Syncer) {
	for status := range syncer.Changes() {
		switch status {
		case realtime.StatusConnected:
			log.Info().Msg("live updates connected")
		case realtime.StatusDisconnected:
			log.Warn().Msg("live updates disconnected, reconnecting")
		}
	}
}
