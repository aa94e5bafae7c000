package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"agora/internal/sim"
)

func main() {
	scenario := flag.String("scenario", "", "Path to a YAML scenario (built-in demo when empty)")
	ticks := flag.Int("ticks", 0, "Override the scenario's tick count")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg := sim.DefaultConfig()
	if *scenario != "" {
		loaded, err := sim.Load(*scenario)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to load scenario")
		}
		cfg = loaded
	}
	if *ticks > 0 {
		cfg.Ticks = *ticks
	}

	runner := sim.NewRunner(cfg)
	if err := runner.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
	log.Info().Int("ticks", cfg.Ticks).Msg("simulation complete")
}
