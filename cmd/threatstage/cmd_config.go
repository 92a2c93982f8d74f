package main

// ---------------------------------------------------------------------------
// cmd_config.go — show, validate, or generate configuration
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/threatstage/threatstage/internal/core"
	"gopkg.in/yaml.v3"
)

// validateConfig returns a list of human-readable problems, empty when the
// config is serviceable.
func validateConfig(cfg *core.Config) []string {
	issues := make([]string, 0)
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range (1-65535)", cfg.Server.Port))
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Port < 1 || cfg.Bus.Port > 65535 {
			issues = append(issues, fmt.Sprintf("bus.port %d is out of range (1-65535)", cfg.Bus.Port))
		}
		if cfg.Server.Port == cfg.Bus.Port {
			issues = append(issues, fmt.Sprintf("server.port and bus.port are both %d — they must differ", cfg.Server.Port))
		}
	}
	if cfg.Sim.StoreCapacity < 1 {
		issues = append(issues, "sim.store_capacity must be positive")
	}
	if cfg.Sim.MaxActivePlans < 1 {
		issues = append(issues, "sim.max_active_plans must be positive")
	}
	if cfg.Sim.WindowSeconds < 1 {
		issues = append(issues, "sim.window_seconds must be positive")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.LogLevel()] {
		issues = append(issues, fmt.Sprintf("logging.level %q is not valid (debug, info, warn, error)", cfg.Logging.Level))
	}
	return issues
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "configs/default.yaml", "Config file path")
	validate := fs.Bool("validate", false, "Validate config and exit")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	output := fs.String("output", "", "Write output to file")
	fs.Parse(args)

	*configPath = envConfig(*configPath)

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		if *validate {
			fmt.Fprintf(os.Stderr, "%s Config invalid: %v\n", red("✗"), err)
			os.Exit(1)
		}
		errorf("loading config: %v", err)
	}

	if *validate {
		issues := validateConfig(cfg)
		if len(issues) > 0 {
			fmt.Fprintf(os.Stderr, "%s Config has %d issue(s):\n", red("✗"), len(issues))
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "  - %s\n", issue)
			}
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "%s Config valid (%s).\n", green("✓"), *configPath)
		os.Exit(0)
	}

	// Never print keys
	cfg.Server.APIKeys = nil

	w, cleanup := outputWriter(*output)
	defer cleanup()

	if *jsonOut {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			errorf("marshaling config: %v", err)
		}
		fmt.Fprintln(w, string(data))
		return
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		errorf("marshaling config: %v", err)
	}
	fmt.Fprint(w, string(data))
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	output := fs.String("output", "configs/default.yaml", "Where to write the config")
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	if _, err := os.Stat(*output); err == nil && !*force {
		errorf("%s already exists — pass --force to overwrite", *output)
	}

	if dir := filepath.Dir(*output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errorf("creating directory %q: %v", dir, err)
		}
	}

	if err := core.SaveConfig(core.DefaultConfig(), *output); err != nil {
		errorf("writing config: %v", err)
	}

	fmt.Fprintf(os.Stdout, "%s Wrote starter config to %s\n", green("✓"), *output)
	fmt.Fprintf(os.Stdout, "%s Edit it, then run: threatstage up --config %s\n", dim("▸"), *output)
}
