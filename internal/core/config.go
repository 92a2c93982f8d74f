package core

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the entire threatstage configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Bus     BusConfig     `yaml:"bus"`
	Sim     SimConfig     `yaml:"sim"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	APIKeys     []string `yaml:"api_keys"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// BusConfig holds NATS feed bus settings.
type BusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	DataDir  string `yaml:"data_dir"`
	Port     int    `yaml:"port"`
}

// SimConfig holds the simulation engine settings: store capacity, scheduler
// ceiling and cadence, noise cadence, and read-path windows.
type SimConfig struct {
	StoreCapacity   int     `yaml:"store_capacity"`
	MaxActivePlans  int     `yaml:"max_active_plans"`
	TickInterval    string  `yaml:"tick_interval"`
	NoiseMinWait    string  `yaml:"noise_min_wait"`
	NoiseMaxWait    string  `yaml:"noise_max_wait"`
	WindowSeconds   int     `yaml:"window_seconds"`
	TriggerCooldown float64 `yaml:"trigger_cooldown_sec"`
	TriggersPerMin  int     `yaml:"triggers_per_minute"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sane defaults — zero-config works out of the box.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 1790,
		},
		Bus: BusConfig{
			Enabled:  true,
			URL:      "nats://127.0.0.1:4222",
			Embedded: true,
			DataDir:  "./data/nats",
			Port:     4222,
		},
		Sim: SimConfig{
			StoreCapacity:   DefaultStoreCapacity,
			MaxActivePlans:  15,
			TickInterval:    "500ms",
			NoiseMinWait:    "500ms",
			NoiseMaxWait:    "800ms",
			WindowSeconds:   15,
			TriggerCooldown: 1.5,
			TriggersPerMin:  30,
		},
		Archive: DefaultArchiveConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Load API keys from environment if not set in config
	if len(cfg.Server.APIKeys) == 0 {
		if envKey := os.Getenv("THREATSTAGE_API_KEY"); envKey != "" {
			cfg.Server.APIKeys = []string{envKey}
		}
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// TickInterval returns the scheduler tick period, defaulting to 500ms.
func (c *Config) TickInterval() time.Duration {
	return parseDurationOr(c.Sim.TickInterval, 500*time.Millisecond)
}

// NoiseWait returns the min and max pause between noise emissions.
func (c *Config) NoiseWait() (time.Duration, time.Duration) {
	min := parseDurationOr(c.Sim.NoiseMinWait, 500*time.Millisecond)
	max := parseDurationOr(c.Sim.NoiseMaxWait, 800*time.Millisecond)
	if max < min {
		max = min
	}
	return min, max
}

// Window returns the trailing window used by the dashboard read path.
func (c *Config) Window() time.Duration {
	if c.Sim.WindowSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Sim.WindowSeconds) * time.Second
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

// LogLevel returns the parsed log level string.
func (c *Config) LogLevel() string {
	return strings.ToLower(c.Logging.Level)
}

// AuthEnabled returns true if API key authentication is configured.
func (c *Config) AuthEnabled() bool {
	return len(c.Server.APIKeys) > 0
}

// ValidateAPIKey checks if the provided key matches any configured API key.
// Uses constant-time comparison to prevent timing attacks.
func (c *Config) ValidateAPIKey(key string) bool {
	for _, valid := range c.Server.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
