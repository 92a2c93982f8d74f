package core

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ArchiveConfig holds cold archiver settings.
type ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Dir             string `yaml:"dir"`
	RotateBytes     int64  `yaml:"rotate_bytes"`      // rotate file after N bytes (default 50MB)
	RotateInterval  string `yaml:"rotate_interval"`   // rotate after duration (default "1h")
	Compress        bool   `yaml:"compress"`          // gzip compress (default true)
	NoiseSampleRate int    `yaml:"noise_sample_rate"` // keep 1 in N benign noise events; <=1 keeps all
}

// DefaultArchiveConfig returns sane defaults for the cold archiver.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Enabled:         false,
		Dir:             "./data/archive",
		RotateBytes:     50 * 1024 * 1024, // 50MB
		RotateInterval:  "1h",
		Compress:        true,
		NoiseSampleRate: 10,
	}
}

// Archiver tails the feed stream and writes events to compressed NDJSON files
// for cold retention. Benign noise events are sampled so attack events are
// always retained in full.
type Archiver struct {
	cfg    ArchiveConfig
	bus    *FeedBus
	logger zerolog.Logger

	mu             sync.Mutex
	currentFile    *os.File
	currentGz      *gzip.Writer
	currentPath    string
	currentBytes   int64
	rotateInterval time.Duration
	fileOpenedAt   time.Time

	eventsArchived int64
	eventsSampled  int64
	filesRotated   int64
	bytesWritten   int64
	noiseCounter   int64
}

// NewArchiver creates a cold archiver over the feed bus.
func NewArchiver(cfg ArchiveConfig, bus *FeedBus, logger zerolog.Logger) (*Archiver, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating archive dir %s: %w", cfg.Dir, err)
	}

	interval := time.Hour
	if d, err := time.ParseDuration(cfg.RotateInterval); err == nil && d > 0 {
		interval = d
	}

	if cfg.RotateBytes <= 0 {
		cfg.RotateBytes = 50 * 1024 * 1024
	}

	return &Archiver{
		cfg:            cfg,
		bus:            bus,
		logger:         logger.With().Str("component", "archiver").Logger(),
		rotateInterval: interval,
	}, nil
}

// Start subscribes to the feed with a dedicated durable consumer and begins
// the rotation loop.
func (a *Archiver) Start(ctx context.Context) error {
	if err := a.bus.Subscribe("feed.events.>", "threatstage-cold-archive", func(msg *nats.Msg) {
		if a.shouldSample(msg.Data) {
			a.mu.Lock()
			a.eventsSampled++
			a.mu.Unlock()
			_ = msg.Ack()
			return
		}
		a.writeRecord(msg.Data)
		_ = msg.Ack()
	}); err != nil {
		return fmt.Errorf("archiver subscribing to feed: %w", err)
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				a.closeFile()
				return
			case <-ticker.C:
				a.mu.Lock()
				if a.currentFile != nil && time.Since(a.fileOpenedAt) >= a.rotateInterval {
					a.rotateFileLocked()
				}
				a.mu.Unlock()
			}
		}
	}()

	a.logger.Info().
		Str("dir", a.cfg.Dir).
		Str("rotate_interval", a.rotateInterval.String()).
		Int64("rotate_bytes", a.cfg.RotateBytes).
		Bool("compress", a.cfg.Compress).
		Int("noise_sample_rate", a.cfg.NoiseSampleRate).
		Msg("cold archiver started")

	return nil
}

// archiveRecord is the NDJSON envelope written to archive files.
type archiveRecord struct {
	Timestamp time.Time       `json:"ts"`
	Data      json.RawMessage `json:"data"`
}

func (a *Archiver) writeRecord(data []byte) {
	rec := archiveRecord{
		Timestamp: time.Now().UTC(),
		Data:      json.RawMessage(data),
	}

	line, err := json.Marshal(rec)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to marshal archive record")
		return
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentFile == nil {
		if err := a.openFileLocked(); err != nil {
			a.logger.Error().Err(err).Msg("failed to open archive file")
			return
		}
	}

	var n int
	if a.cfg.Compress && a.currentGz != nil {
		n, err = a.currentGz.Write(line)
	} else {
		n, err = a.currentFile.Write(line)
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to write archive record")
		return
	}

	a.currentBytes += int64(n)
	a.bytesWritten += int64(n)
	a.eventsArchived++

	if a.currentBytes >= a.cfg.RotateBytes {
		a.rotateFileLocked()
	}
}

func (a *Archiver) openFileLocked() error {
	ts := time.Now().UTC().Format("20060102T150405Z")
	ext := ".ndjson"
	if a.cfg.Compress {
		ext = ".ndjson.gz"
	}
	filename := fmt.Sprintf("feed-archive-%s%s", ts, ext)
	path := filepath.Join(a.cfg.Dir, filename)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	a.currentFile = f
	a.currentPath = path
	a.currentBytes = 0
	a.fileOpenedAt = time.Now()

	if a.cfg.Compress {
		a.currentGz, _ = gzip.NewWriterLevel(f, gzip.BestSpeed)
	}

	a.logger.Debug().Str("file", filename).Msg("opened archive file")
	return nil
}

func (a *Archiver) rotateFileLocked() {
	a.closeFileLocked()
	a.filesRotated++
	// Next write opens a new file
}

func (a *Archiver) closeFile() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeFileLocked()
}

func (a *Archiver) closeFileLocked() {
	if a.currentGz != nil {
		a.currentGz.Close()
		a.currentGz = nil
	}
	if a.currentFile != nil {
		a.currentFile.Close()
		a.currentFile = nil
	}
}

// shouldSample returns true if this event should be DROPPED (not archived).
// Only benign noise-phase events are sampled; attack events always archive.
func (a *Archiver) shouldSample(data []byte) bool {
	if a.cfg.NoiseSampleRate <= 1 {
		return false
	}

	var partial struct {
		Phase    Phase    `json:"phase"`
		Severity Severity `json:"severity"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return false // can't parse → keep it
	}
	if partial.Phase != PhaseNoise || partial.Severity != SeverityBenign {
		return false
	}

	a.mu.Lock()
	a.noiseCounter++
	count := a.noiseCounter
	a.mu.Unlock()

	return count%int64(a.cfg.NoiseSampleRate) != 0
}

// Status returns archiver metrics for the API.
func (a *Archiver) Status() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]any{
		"enabled":         a.cfg.Enabled,
		"dir":             a.cfg.Dir,
		"events_archived": a.eventsArchived,
		"events_sampled":  a.eventsSampled,
		"files_rotated":   a.filesRotated,
		"bytes_written":   a.bytesWritten,
		"current_file":    filepath.Base(a.currentPath),
		"current_bytes":   a.currentBytes,
		"compress":        a.cfg.Compress,
	}
}
