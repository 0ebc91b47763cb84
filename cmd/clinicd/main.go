// Clinicd runs the clinic simulation behind an HTTP API and a WebSocket
// event feed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tomasbasham/clinic"
	"github.com/tomasbasham/clinic/internal/board"
	"github.com/tomasbasham/clinic/internal/config"
	"github.com/tomasbasham/clinic/internal/server"
	"github.com/tomasbasham/clinic/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := loadConfig()

	policy := clinic.DefaultServicePolicy().Scale(cfg.TimeScale)
	if err := policy.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid service policy")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(log.Logger)
	b := board.New(board.DefaultCapacity)

	c := clinic.New(
		clinic.WithLogger(log.Logger),
		clinic.WithServicePolicy(policy),
		clinic.WithObserver(clinic.MultiObserver{
			b,
			hub,
			clinic.LogObserver{Logger: log.Logger},
		}),
	)

	e := server.New(&server.Server{
		Clinic: c,
		Board:  b,
		Hub:    hub,
		Logger: log.Logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		c.StartDoctors(gctx, cfg.Doctors...)
		if cfg.ArrivalsEnabled {
			c.StartArrivals(gctx, cfg.ArrivalPeriod, cfg.ArrivalDelay)
		}
		log.Info().Strs("doctors", cfg.Doctors).Bool("arrivals", cfg.ArrivalsEnabled).Msg("Clinic open")

		<-gctx.Done()
		log.Info().Msg("Closing clinic, doctors finish their current patient")
		c.Shutdown()
		c.Wait()
		log.Info().Int64("served", c.Served()).Int("waiting", c.Waiting()).Msg("Clinic closed")
		return nil
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Clinic stopped with error")
	}
}

func loadConfig() config.Config {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Logger = log.With().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading configuration")
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	return cfg
}
