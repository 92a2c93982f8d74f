package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 1790 {
		t.Errorf("expected port 1790, got %d", cfg.Server.Port)
	}
	if cfg.Sim.StoreCapacity != DefaultStoreCapacity {
		t.Errorf("expected store capacity %d, got %d", DefaultStoreCapacity, cfg.Sim.StoreCapacity)
	}
	if cfg.Sim.MaxActivePlans != 15 {
		t.Errorf("expected 15 max active plans, got %d", cfg.Sim.MaxActivePlans)
	}
	if cfg.Sim.WindowSeconds != 15 {
		t.Errorf("expected 15s window, got %d", cfg.Sim.WindowSeconds)
	}
	if !cfg.Bus.Enabled || !cfg.Bus.Embedded {
		t.Error("bus should default to embedded and enabled")
	}
}

func TestLoadConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Server.Port != 1790 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("server: [not a map"), 0644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestConfig_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = 2900
	cfg.Sim.MaxActivePlans = 3

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Server.Port != 2900 || loaded.Sim.MaxActivePlans != 3 {
		t.Errorf("round trip lost values: port=%d plans=%d", loaded.Server.Port, loaded.Sim.MaxActivePlans)
	}
}

func TestLoadConfig_APIKeyFromEnv(t *testing.T) {
	t.Setenv("THREATSTAGE_API_KEY", "env-secret")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Fatal("env key should enable auth")
	}
	if !cfg.ValidateAPIKey("env-secret") {
		t.Error("env key should validate")
	}
}

func TestConfig_ValidateAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.APIKeys = []string{"key-one", "key-two"}
	if !cfg.ValidateAPIKey("key-two") {
		t.Error("configured key should validate")
	}
	if cfg.ValidateAPIKey("wrong") {
		t.Error("unknown key should not validate")
	}
	if cfg.ValidateAPIKey("") {
		t.Error("empty key should not validate")
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TickInterval() != 500*time.Millisecond {
		t.Errorf("tick interval: %v", cfg.TickInterval())
	}
	min, max := cfg.NoiseWait()
	if min != 500*time.Millisecond || max != 800*time.Millisecond {
		t.Errorf("noise wait: %v %v", min, max)
	}
	if cfg.Window() != 15*time.Second {
		t.Errorf("window: %v", cfg.Window())
	}
}

func TestConfig_DurationHelpersRejectGarbage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sim.TickInterval = "soon"
	cfg.Sim.NoiseMinWait = "-2s"
	cfg.Sim.WindowSeconds = 0

	if cfg.TickInterval() != 500*time.Millisecond {
		t.Errorf("unparseable tick should fall back, got %v", cfg.TickInterval())
	}
	min, _ := cfg.NoiseWait()
	if min != 500*time.Millisecond {
		t.Errorf("negative noise wait should fall back, got %v", min)
	}
	if cfg.Window() != 15*time.Second {
		t.Errorf("zero window should fall back, got %v", cfg.Window())
	}
}

func TestConfig_NoiseWaitMaxClampedToMin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sim.NoiseMinWait = "900ms"
	cfg.Sim.NoiseMaxWait = "100ms"
	min, max := cfg.NoiseWait()
	if max < min {
		t.Errorf("max %v should not be below min %v", max, min)
	}
}
