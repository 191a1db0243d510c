// Package app wires the simulation, the event bus and the log pipeline
// shared by the web and console front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"go-elevator-logsim/internal/config"
	"go-elevator-logsim/internal/logger"
	"go-elevator-logsim/pkg/elevator"
	"go-elevator-logsim/pkg/eventbus"
	"go-elevator-logsim/pkg/logwriter"
	"go-elevator-logsim/pkg/mongolog"
)

const closeTimeout = 2 * time.Second

// App owns one car and its log pipeline.
type App struct {
	Config   config.Config
	Exec     elevator.Executor
	Bus      *eventbus.Bus
	Elevator *elevator.Elevator
	Writer   *logwriter.Writer

	loop   *elevator.Loop // nil when driven by a ManualScheduler
	store  *mongolog.Store
	detach func()
	logger zerolog.Logger
}

// New builds a realtime app backed by MongoDB. An unreachable database is
// not an error: the writer starts unhealthy and the simulation runs anyway.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.Component("app")

	var sink logwriter.Sink
	store, err := mongolog.Connect(ctx, mongolog.Config{
		URI:            cfg.Mongo.ConnectionString,
		Database:       cfg.Mongo.DatabaseName,
		Collection:     cfg.Mongo.Collection,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	})
	if err != nil {
		log.Warn().Err(err).Msg("MongoDB client not created, entries stay in memory")
	} else {
		sink = store
	}

	loop := elevator.NewLoop(0)
	a, err := Assemble(cfg, loop, sink)
	if err != nil {
		if store != nil {
			_ = store.Close(ctx)
		}
		return nil, err
	}
	a.loop = loop
	a.store = store

	if store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(cfg))
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			a.Writer.MarkUnhealthy(err)
		} else {
			log.Info().Str("db", cfg.Mongo.DatabaseName).Msg("MongoDB reachable")
		}
	}
	return a, nil
}

// pingTimeout bounds the startup ping. Configs built by hand may leave
// ConnectTimeout unset.
func pingTimeout(cfg config.Config) time.Duration {
	if cfg.Mongo.ConnectTimeout > 0 {
		return cfg.Mongo.ConnectTimeout
	}
	return config.Default().Mongo.ConnectTimeout
}

// Assemble wires the components around exec and sink without starting
// anything. The boot entry is buffered before the car announces Idle.
func Assemble(cfg config.Config, exec elevator.Executor, sink logwriter.Sink) (*App, error) {
	bus := eventbus.New()
	w := logwriter.New(sink, logwriter.Config{
		BatchSize:       cfg.LogWriter.BatchSize,
		IdleInterval:    cfg.LogWriter.IdleInterval,
		BackoffInterval: cfg.LogWriter.BackoffInterval,
		RetryInterval:   cfg.LogWriter.RetryInterval,
		WriteTimeout:    cfg.Mongo.WriteTimeout,
	})
	detach := logwriter.NewRecorder(w).Attach(bus)

	startFloor := cfg.Elevator.StartFloor
	if startFloor == 0 {
		startFloor = 1
	}
	w.Submit(logwriter.StartEntry(exec.Now(), startFloor))

	e, err := elevator.New(elevator.Config{
		ID:             cfg.Elevator.ID,
		Floors:         cfg.Elevator.Floors,
		StartFloor:     cfg.Elevator.StartFloor,
		FloorPositions: cfg.Elevator.FloorPositions,
		FloorSpacing:   cfg.Elevator.FloorSpacing,
		SpeedPerTick:   cfg.Elevator.SpeedPerTick,
		TickInterval:   cfg.Elevator.TickInterval,
		DwellTime:      cfg.Elevator.DwellTime,
	}, exec, bus)
	if err != nil {
		detach()
		return nil, fmt.Errorf("build elevator: %w", err)
	}

	return &App{
		Config:   cfg,
		Exec:     exec,
		Bus:      bus,
		Elevator: e,
		Writer:   w,
		detach:   detach,
		logger:   logger.Component("app"),
	}, nil
}

// Run starts the writer and drives the realtime loop until ctx is done,
// then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if a.loop == nil {
		return errors.New("app: Run requires a realtime loop")
	}
	a.Writer.Start()
	defer a.Close()

	a.logger.Info().Str("id", a.Config.Elevator.ID).Int("floors", a.Config.Elevator.Floors).Msg("Simulation running")
	if err := a.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close stops the writer and releases the database client.
func (a *App) Close() {
	a.detach()
	a.Writer.Stop()
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.store.Close(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("MongoDB disconnect failed")
		}
	}
}

// Request posts a floor request to the car. Safe from any goroutine.
func (a *App) Request(floor int, source string) {
	a.Exec.Do(func() { a.Elevator.RequestFloor(floor, source) })
}

// Snapshot reads the car state on its own goroutine.
func (a *App) Snapshot(ctx context.Context) (elevator.Snapshot, error) {
	var snap elevator.Snapshot
	err := a.Exec.Call(ctx, func() { snap = a.Elevator.Snapshot() })
	return snap, err
}

// Logs returns persisted entries, newest first.
func (a *App) Logs(ctx context.Context) []logwriter.Entry {
	return a.Writer.FetchAll(ctx)
}

// Health reports the writer counters.
func (a *App) Health() logwriter.Stats {
	return a.Writer.Stats()
}
