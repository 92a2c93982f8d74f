package main

// ---------------------------------------------------------------------------
// cmd_logs.go — fetch recent logs from a running instance
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"
)

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	configPath := fs.String("config", "configs/default.yaml", "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	limit := fs.Int("limit", 50, "Number of log lines")
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

	body, err := apiGet(fmt.Sprintf("%s/api/v1/logs?limit=%d", base, *limit), apiKey, timeout)
	if err != nil {
		errorf("%v", err)
	}

	if *jsonOut {
		fmt.Println(string(body))
		return
	}

	var resp struct {
		Logs []struct {
			Level string `json:"level"`
			Raw   string `json:"raw"`
		} `json:"logs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fmt.Println(string(body))
		return
	}

	// Ring buffer hands back newest first; print oldest first like a tail.
	for i := len(resp.Logs) - 1; i >= 0; i-- {
		entry := resp.Logs[i]
		switch entry.Level {
		case "error", "fatal":
			fmt.Println(red(entry.Raw))
		case "warn":
			fmt.Println(yellow(entry.Raw))
		case "debug":
			fmt.Println(dim(entry.Raw))
		default:
			fmt.Println(entry.Raw)
		}
	}
}
