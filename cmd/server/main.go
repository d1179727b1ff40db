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
	"github.com/rs/zerolog"

	"github.com/nexuschat/relay/internal/bot"
	"github.com/nexuschat/relay/internal/config"
	"github.com/nexuschat/relay/internal/httpapi"
	"github.com/nexuschat/relay/internal/relay"
	"github.com/nexuschat/relay/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("configuration invalid")
	}

	log := newLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

// run owns every resource with a deferred cleanup, so failures unwind
// through it before the process exits.
func run(cfg config.Config, log zerolog.Logger) error {
	st, err := store.Open(cfg.DataDir, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("store close failed")
		}
	}()

	registry := relay.NewRegistry(log)
	caster := relay.NewBroadcaster(registry, log)

	var responder *bot.Bot
	if cfg.BotEnabled {
		responder = bot.New(caster, st, log)
		log.Info().Msg("auto-responder enabled")
	}

	api := httpapi.New(cfg, st, registry, caster, responder, log)
	server := httpapi.NewServer(cfg.Port, api.Routes())

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Port).Msg("server listening")
		errCh <- server.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	if err := httpapi.Shutdown(server, cfg.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("http shutdown incomplete")
	}

	registry.CloseAll()
	waitForDrain(registry, cfg.ShutdownTimeout, log)
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// waitForDrain blocks until every session has deregistered or the timeout
// elapses. Sessions clean themselves up once their transports close.
func waitForDrain(registry *relay.Registry, timeout time.Duration, log zerolog.Logger) {
	deadline := time.Now().Add(timeout)
	for registry.Len() > 0 {
		if time.Now().After(deadline) {
			log.Warn().Int("remaining", registry.Len()).Msg("shutdown timeout, sessions still draining")
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	log.Info().Msg("all sessions terminated")
}
