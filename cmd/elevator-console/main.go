package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eiannone/keyboard"

	"go-elevator-logsim/internal/app"
	"go-elevator-logsim/internal/config"
	"go-elevator-logsim/internal/logger"
)

func main() {
	cfg, cfgErr := config.Load("", "")
	log := logger.Configure(logger.ParseLevel(cfg.LogLevel))
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("Configuration partially loaded, using defaults for the rest")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation")
	}

	c := newConsole(a, os.Stdout)
	events, unsubscribe := a.Bus.Channel(256)
	go c.printEvents(events)

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	c.help()
	keys := make(chan struct{})
	go func() {
		defer close(keys)
		for {
			char, key, err := keyboard.GetSingleKey()
			if err != nil {
				log.Error().Err(err).Msg("Error when getting key")
				return
			}
			if c.handleKey(char, key) {
				return
			}
		}
	}()

	select {
	case <-keys:
	case <-ctx.Done():
	}
	stop()
	unsubscribe()
	if err := <-runErr; err != nil {
		log.Error().Err(err).Msg("Simulation stopped with error")
		os.Exit(1)
	}
}
