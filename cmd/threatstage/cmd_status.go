package main

// ---------------------------------------------------------------------------
// cmd_status.go — query a running instance
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "configs/default.yaml", "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	jsonOut := fs.Bool("json", false, "Output raw JSON")
	timeoutStr := fs.String("timeout", "5s", "Request timeout")
	fs.Parse(args)

	*configPath = envConfig(*configPath)
	hostVal := envHost(*host)
	portVal := envPort(*port)

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		errorf("invalid timeout %q: %v", *timeoutStr, err)
	}

	base := apiBase(*configPath, hostVal, portVal)
	apiKey := resolveAPIKey(*apiKeyFlag, *configPath)

	body, err := apiGet(base+"/api/v1/status", apiKey, timeout)
	if err != nil {
		errorf("%v", err)
	}

	if *jsonOut {
		fmt.Println(string(body))
		return
	}

	var status map[string]interface{}
	if err := json.Unmarshal(body, &status); err != nil {
		fmt.Println(string(body))
		return
	}

	stateColor := green
	if fmt.Sprintf("%v", status["status"]) != "running" {
		stateColor = yellow
	}

	fmt.Fprintf(os.Stdout, "%s threatstage %v\n\n", stateColor("●"), status["status"])
	fmt.Fprintf(os.Stdout, "  %-16s %v\n", "Version:", status["version"])
	fmt.Fprintf(os.Stdout, "  %-16s %vs\n", "Uptime:", status["uptime_sec"])
	fmt.Fprintf(os.Stdout, "  %-16s %v\n", "Events stored:", status["events_stored"])
	fmt.Fprintf(os.Stdout, "  %-16s %v/%v\n", "Active plans:", status["active_plans"], status["plan_limit"])

	bus := "disconnected"
	if b, ok := status["bus_connected"].(bool); ok && b {
		bus = green("connected")
	} else {
		bus = dim(bus)
	}
	fmt.Fprintf(os.Stdout, "  %-16s %s\n", "Feed bus:", bus)

	if arch, ok := status["archiver"].(map[string]interface{}); ok {
		fmt.Fprintf(os.Stdout, "  %-16s %v archived, %v sampled out\n",
			"Archiver:", arch["events_archived"], arch["events_sampled"])
	}
}
