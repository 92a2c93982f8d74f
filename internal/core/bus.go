package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// FeedBus mirrors the event feed onto NATS JetStream so external consumers
// (archiver, dashboards, SIEM forwarders) can tail the stream without
// touching the in-memory store.
type FeedBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	ns     *server.Server
	logger zerolog.Logger
	mu     sync.RWMutex
	subs   []*nats.Subscription

	metrics *BusMetrics
}

// BusMetrics tracks feed bus counters.
type BusMetrics struct {
	mu              sync.Mutex
	EventsPublished int64 `json:"events_published"`
	EventsFailed    int64 `json:"events_failed"`
	MessagesAcked   int64 `json:"messages_acked"`
}

// NewFeedBus connects to NATS (starting an embedded server first when
// cfg.Embedded is set) and ensures the FEED_EVENTS stream exists.
func NewFeedBus(cfg *BusConfig, logger zerolog.Logger) (*FeedBus, error) {
	bus := &FeedBus{
		logger:  logger.With().Str("component", "feed_bus").Logger(),
		subs:    make([]*nats.Subscription, 0),
		metrics: &BusMetrics{},
	}

	if cfg.Embedded {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating NATS data dir: %w", err)
		}

		opts := &server.Options{
			Host:      "127.0.0.1",
			Port:      cfg.Port,
			JetStream: true,
			StoreDir:  cfg.DataDir,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("creating embedded NATS server: %w", err)
		}

		ns.Start()

		if !ns.ReadyForConnections(10 * time.Second) {
			return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
		}

		bus.ns = ns
		bus.logger.Info().Int("port", cfg.Port).Msg("embedded NATS server started")
	}

	url := cfg.URL
	if cfg.Embedded {
		url = fmt.Sprintf("nats://127.0.0.1:%d", cfg.Port)
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				bus.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			bus.logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	bus.nc = nc

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}
	bus.js = js

	// Create or update the feed stream. AddStream returns the existing stream
	// if config matches; if it exists with a different config from a previous
	// version, we update it.
	feedStreamCfg := &nats.StreamConfig{
		Name:      "FEED_EVENTS",
		Subjects:  []string{"feed.events.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7, // 7 days retention
		MaxBytes:  512 * 1024 * 1024,  // 512MB max
		Storage:   nats.FileStorage,
		Discard:   nats.DiscardOld,
	}
	if _, err = js.AddStream(feedStreamCfg); err != nil {
		if _, updateErr := js.UpdateStream(feedStreamCfg); updateErr != nil {
			return nil, fmt.Errorf("creating/updating feed stream: %w (original: %v)", updateErr, err)
		}
	}

	bus.logger.Info().Str("url", url).Msg("connected to NATS JetStream")
	return bus, nil
}

// PublishEvent publishes a stored event to the feed stream. Best effort:
// callers treat a failure as a missing mirror copy, never as a store fault.
func (b *FeedBus) PublishEvent(event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	stage := event.Stage
	if stage == "" {
		stage = StageNoise
	}
	subject := fmt.Sprintf("feed.events.%s.%s", event.Phase, stage)
	if _, err = b.js.Publish(subject, data); err != nil {
		b.metrics.mu.Lock()
		b.metrics.EventsFailed++
		b.metrics.mu.Unlock()
		return fmt.Errorf("publishing event to %s: %w", subject, err)
	}

	b.metrics.mu.Lock()
	b.metrics.EventsPublished++
	b.metrics.mu.Unlock()

	b.logger.Debug().
		Int64("event_id", event.ID).
		Str("subject", subject).
		Str("severity", string(event.Severity)).
		Msg("event published")

	return nil
}

// Subscribe creates a durable subscription to a subject pattern.
func (b *FeedBus) Subscribe(subject, durableName string, handler func(msg *nats.Msg)) error {
	opts := []nats.SubOpt{nats.DeliverNew(), nats.AckExplicit()}
	if durableName != "" {
		opts = append(opts, nats.Durable(durableName))
	}
	sub, err := b.js.Subscribe(subject, handler, opts...)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subject, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.logger.Debug().Str("subject", subject).Str("durable", durableName).Msg("subscribed")
	return nil
}

// SubscribeToFeed subscribes to every feed event with a durable consumer.
func (b *FeedBus) SubscribeToFeed(durableName string, handler func(event *Event)) error {
	return b.Subscribe("feed.events.>", durableName, func(msg *nats.Msg) {
		event, err := UnmarshalEvent(msg.Data)
		if err != nil {
			b.logger.Error().Err(err).Msg("failed to unmarshal feed event")
			_ = msg.Nak()
			return
		}
		handler(event)
		_ = msg.Ack()
		b.metrics.mu.Lock()
		b.metrics.MessagesAcked++
		b.metrics.mu.Unlock()
	})
}

// Close shuts down the feed bus.
func (b *FeedBus) Close() error {
	b.mu.Lock()
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	b.mu.Unlock()

	if b.nc != nil {
		b.nc.Close()
	}

	if b.ns != nil {
		b.ns.Shutdown()
		b.ns.WaitForShutdown()
		b.logger.Info().Msg("embedded NATS server stopped")
	}

	return nil
}

// IsConnected returns true if the NATS connection is active.
func (b *FeedBus) IsConnected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

// GetMetrics returns a snapshot of bus metrics.
func (b *FeedBus) GetMetrics() map[string]int64 {
	b.metrics.mu.Lock()
	defer b.metrics.mu.Unlock()
	return map[string]int64{
		"events_published": b.metrics.EventsPublished,
		"events_failed":    b.metrics.EventsFailed,
		"messages_acked":   b.metrics.MessagesAcked,
	}
}
