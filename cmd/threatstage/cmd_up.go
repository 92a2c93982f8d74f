package main

// ---------------------------------------------------------------------------
// cmd_up.go — start the threatstage engine
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/threatstage/threatstage/internal/api"
	"github.com/threatstage/threatstage/internal/core"
	"github.com/threatstage/threatstage/internal/engine"
)

func cmdUp(args []string) {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	configPath := fs.String("config", "configs/default.yaml", "Config file path")
	logLevel := fs.String("log-level", "", "Log level override: debug, info, warn, error")
	quiet := fs.Bool("quiet", false, "Suppress banner and non-essential output")
	fs.BoolVar(quiet, "q", false, "Suppress banner and non-essential output")
	noColor := fs.Bool("no-color", false, "Disable color output")
	fs.Parse(args)

	*configPath = envConfig(*configPath)

	if *noColor {
		os.Setenv("NO_COLOR", "1")
	}

	if !*quiet {
		fmt.Fprint(os.Stderr, bannerText())
	}

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		errorf("loading config: %v", err)
	}

	if issues := validateConfig(cfg); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), issue)
		}
		errorf("config validation failed with %d error(s)", len(issues))
	}

	if !cfg.AuthEnabled() && !*quiet {
		fmt.Fprintf(os.Stderr, "%s No API keys configured. The API is open to anyone who can reach it.\n", yellow("⚠"))
		fmt.Fprintf(os.Stderr, "    Set api_keys in config or the THREATSTAGE_API_KEY env var.\n")
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	eng, err := engine.New(cfg)
	if err != nil {
		errorf("creating engine: %v", err)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "%s Starting threatstage engine...\n", dim("▸"))
	}

	// Engine first: the API reads engine state (bus, start time) and must
	// only begin listening once Start has published it.
	if err := eng.Start(); err != nil {
		errorf("starting engine: %v", err)
	}

	srv := api.NewServer(eng)
	if err := srv.Start(); err != nil {
		errorf("starting API server: %v", err)
	}

	if !*quiet {
		busStatus := ""
		if cfg.Bus.Enabled {
			busStatus = fmt.Sprintf(", feed bus %s", green("connected"))
		}
		fmt.Fprintf(os.Stderr, "%s threatstage running — API on :%d%s\n",
			green("✓"), cfg.Server.Port, busStatus)
		fmt.Fprintf(os.Stderr, "%s Press Ctrl+C to stop\n", dim("▸"))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	if !*quiet {
		fmt.Fprintf(os.Stderr, "\n%s Received %s, shutting down...\n", dim("▸"), sig)
	}

	srv.Stop()
	eng.Shutdown()

	if !*quiet {
		fmt.Fprintf(os.Stderr, "%s threatstage stopped.\n", green("✓"))
	}
}
