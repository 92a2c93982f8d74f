// Package engine wires the feed together: the event store, the scenario
// scheduler, the noise loop, the NATS feed bus and the read-side analysis,
// behind the four operations the serving layer calls.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/threatstage/threatstage/internal/core"
	"github.com/threatstage/threatstage/internal/simulate"
)

// Engine orchestrates all feed components.
type Engine struct {
	Config    *core.Config
	Store     *core.EventStore
	Scheduler *simulate.Scheduler
	Bus       *core.FeedBus
	Archiver  *core.Archiver
	Logger    zerolog.Logger

	generator *simulate.Generator
	noise     *simulate.NoiseGenerator

	// genMu serializes RequestChain's use of generator and rng; rand.Rand is
	// not safe for concurrent use and triggers arrive on handler goroutines.
	// The noise generator owns a separate source touched only by the noise
	// loop.
	genMu sync.Mutex
	rng   *rand.Rand
	logBuffer *core.LogRingBuffer
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates an engine from config. No goroutines run until Start.
func New(cfg *core.Config) (*Engine, error) {
	logBuffer := core.NewLogRingBuffer(1000)

	var logger zerolog.Logger
	if cfg.Logging.Format == "json" {
		logger = zerolog.New(logBuffer.MultiWriter(os.Stdout)).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(logBuffer.MultiWriter(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})).With().Timestamp().Logger()
	}

	switch cfg.LogLevel() {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "warn":
		logger = logger.Level(zerolog.WarnLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	noiseRNG := rand.New(rand.NewSource(rng.Int63()))
	store := core.NewEventStore(cfg.Sim.StoreCapacity)

	engine := &Engine{
		Config:    cfg,
		Store:     store,
		Scheduler: simulate.NewScheduler(logger, store, cfg.Sim.MaxActivePlans),
		Logger:    logger.With().Str("component", "engine").Logger(),
		generator: simulate.NewGenerator(rng),
		noise:     simulate.NewNoiseGenerator(noiseRNG),
		rng:       rng,
		logBuffer: logBuffer,
		ctx:       ctx,
		cancel:    cancel,
	}
	return engine, nil
}

// Start connects the feed bus and launches the noise and tick loops.
func (e *Engine) Start() error {
	e.Logger.Info().Msg("starting threatstage engine")
	e.startedAt = time.Now().UTC()

	if e.Config.Bus.Enabled {
		bus, err := core.NewFeedBus(&e.Config.Bus, e.Logger)
		if err != nil {
			return fmt.Errorf("starting feed bus: %w", err)
		}
		e.Bus = bus

		// Mirror every stored event onto the feed stream, best effort: a
		// publish failure never blocks the store.
		e.Store.SetNotify(func(event *core.Event) {
			if err := e.Bus.PublishEvent(event); err != nil {
				e.Logger.Debug().Err(err).Int64("event_id", event.ID).Msg("feed publish failed")
			}
		})

		if e.Config.Archive.Enabled {
			archiver, err := core.NewArchiver(e.Config.Archive, bus, e.Logger)
			if err != nil {
				return fmt.Errorf("starting archiver: %w", err)
			}
			if err := archiver.Start(e.ctx); err != nil {
				return fmt.Errorf("starting archiver: %w", err)
			}
			e.Archiver = archiver
		}
	}

	go e.noiseLoop()
	go e.tickLoop()

	e.Logger.Info().
		Int("store_capacity", e.Config.Sim.StoreCapacity).
		Int("max_active_plans", e.Config.Sim.MaxActivePlans).
		Msg("threatstage engine started")

	return nil
}

// Run starts the engine and blocks until a shutdown signal arrives.
func (e *Engine) Run() error {
	if err := e.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		e.Logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-e.ctx.Done():
		e.Logger.Info().Msg("context cancelled")
	}

	return e.Shutdown()
}

// Shutdown stops the loops and closes the bus.
func (e *Engine) Shutdown() error {
	e.Logger.Info().Msg("shutting down threatstage engine")
	e.cancel()

	if e.Bus != nil {
		if err := e.Bus.Close(); err != nil {
			e.Logger.Error().Err(err).Msg("error closing feed bus")
		}
	}

	e.Logger.Info().Msg("threatstage engine stopped")
	return nil
}

// Context returns the engine's context.
func (e *Engine) Context() context.Context {
	return e.ctx
}

// Uptime reports how long the engine has been running.
func (e *Engine) Uptime() time.Duration {
	if e.startedAt.IsZero() {
		return 0
	}
	return time.Since(e.startedAt)
}

// GetLogEntries returns the most recent n captured log lines.
func (e *Engine) GetLogEntries(n int) []core.LogEntry {
	return e.logBuffer.Recent(n)
}

// noiseLoop emits one benign background event every 0.5–0.8s (configurable)
// until shutdown.
func (e *Engine) noiseLoop() {
	minWait, maxWait := e.Config.NoiseWait()
	for {
		if _, err := e.Store.Add(e.noise.Event()); err != nil {
			// Noise must never take the feed down.
			e.Logger.Warn().Err(err).Msg("noise emission failed")
		}

		select {
		case <-e.ctx.Done():
			return
		case <-time.After(e.noise.Wait(minWait, maxWait)):
		}
	}
}

// tickLoop advances every active plan on a fixed cadence until shutdown.
func (e *Engine) tickLoop() {
	ticker := time.NewTicker(e.Config.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case now := <-ticker.C:
			e.Scheduler.Tick(now)
		}
	}
}
