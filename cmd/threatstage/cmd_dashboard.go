package main

// ---------------------------------------------------------------------------
// cmd_dashboard.go — live terminal dashboard
//
// Polls the threatstage API and displays the current posture, severity
// counts, window deltas, and the most recent events. No external TUI
// library required — uses ANSI escape codes for a clean display.
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func cmdDashboard(args []string) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	configPath := fs.String("config", "configs/default.yaml", "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	refreshStr := fs.String("refresh", "2s", "Refresh interval")
	fs.Parse(args)

	*configPath = envConfig(*configPath)
	hostVal := envHost(*host)
	portVal := envPort(*port)

	refresh, err := time.ParseDuration(*refreshStr)
	if err != nil {
		errorf("invalid refresh interval %q: %v", *refreshStr, err)
	}

	base := apiBase(*configPath, hostVal, portVal)
	apiKey := resolveAPIKey(*apiKeyFlag, *configPath)
	timeout := 5 * time.Second

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Hide cursor
	fmt.Print("\033[?25l")
	defer fmt.Print("\033[?25h")

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	renderDashboard(base, apiKey, timeout)

	for {
		select {
		case <-sigCh:
			clearScreen()
			fmt.Print("\033[?25h")
			fmt.Fprintf(os.Stderr, "%s Dashboard closed.\n", dim("▸"))
			return
		case <-ticker.C:
			renderDashboard(base, apiKey, timeout)
		}
	}
}

func clearScreen() {
	fmt.Print("\033[2J\033[H")
}

func postureColor(p string) func(string) string {
	switch p {
	case "MONITOR":
		return green
	case "ELEVATED":
		return yellow
	case "RESTRICT":
		return yellow
	case "LOCKDOWN":
		return red
	}
	return dim
}

func severityColor(s string) func(string) string {
	switch s {
	case "critical":
		return red
	case "malicious":
		return yellow
	case "suspicious":
		return cyan
	}
	return dim
}

func renderDashboard(base, apiKey string, timeout time.Duration) {
	clearScreen()

	now := time.Now().Format("15:04:05")

	fmt.Printf("  %s  %s  %s\n", bold("THREATSTAGE DASHBOARD"), dim("•"), dim(now))
	fmt.Printf("  %s\n\n", dim("Press Ctrl+C to exit"))

	dashBody, dashErr := apiGet(base+"/api/v1/dashboard", apiKey, timeout)
	if dashErr != nil {
		fmt.Printf("  %s Cannot connect to threatstage at %s\n", red("✗"), base)
		fmt.Printf("  %s %v\n\n", dim("▸"), dashErr)
		fmt.Printf("  %s Is the engine running? Try: threatstage up\n", dim("▸"))
		return
	}

	var dash struct {
		Posture        string         `json:"posture"`
		Recommendation string         `json:"recommendation"`
		Counts         map[string]int `json:"counts"`
		Total          int            `json:"total"`
		Delta          map[string]int `json:"delta"`
	}
	if err := json.Unmarshal(dashBody, &dash); err != nil {
		fmt.Printf("  %s Error parsing dashboard: %v\n", red("✗"), err)
		return
	}

	fmt.Printf("  %s\n", bold("POSTURE"))
	fmt.Printf("  %-20s %s\n", "Level:", postureColor(dash.Posture)(dash.Posture))
	fmt.Printf("  %-20s %s\n\n", "Recommended:", dash.Recommendation)

	fmt.Printf("  %s\n", bold("EVENTS"))
	fmt.Printf("  %-20s %d\n", "Total stored:", dash.Total)
	for _, sev := range []string{"critical", "malicious", "suspicious", "benign"} {
		count := dash.Counts[sev]
		delta := dash.Delta[sev]
		label := severityColor(sev)(sev)
		fmt.Printf("  %-20s %-6d %s\n", label+":", count, dim(fmt.Sprintf("+%d in window", delta)))
	}
	fmt.Println()

	// Recent events tail
	eventsBody, err := apiGet(base+"/api/v1/events?limit=8", apiKey, timeout)
	if err != nil {
		return
	}
	var recent struct {
		Events []struct {
			ID       int64  `json:"id"`
			SourceIP string `json:"source_ip"`
			Severity string `json:"severity"`
			Stage    string `json:"stage"`
			ChainID  string `json:"chain_id"`
		} `json:"events"`
	}
	if err := json.Unmarshal(eventsBody, &recent); err != nil {
		return
	}

	fmt.Printf("  %s\n", bold("RECENT"))
	for _, ev := range recent.Events {
		chain := ev.ChainID
		if chain == "" {
			chain = "-"
		}
		fmt.Printf("  %s %-6d %-16s %-11s %-10s %s\n",
			dim("▸"), ev.ID, ev.SourceIP,
			severityColor(ev.Severity)(ev.Severity), ev.Stage, dim(chain))
	}
}
