package main

// ---------------------------------------------------------------------------
// cmd_events.go — list or inspect stored events
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"time"
)

func cmdEvents(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath := fs.String("config", "configs/default.yaml", "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	severity := fs.String("severity", "", "Filter: benign, suspicious, malicious, critical")
	limit := fs.Int("limit", 0, "Maximum events to return (0 = all)")
	eventID := fs.Int64("id", 0, "Fetch a single event by id")
	format := fs.String("format", "table", "Output format: table, json, csv")
	jsonOut := fs.Bool("json", false, "Output raw JSON response")
	output := fs.String("output", "", "Write output to file")
	timeoutStr := fs.String("timeout", "10s", "Request timeout")
	fs.Parse(args)

	*configPath = envConfig(*configPath)
	hostVal := envHost(*host)
	portVal := envPort(*port)

	if *jsonOut {
		*format = "json"
	}
	outFmt := parseFormat(*format)

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		errorf("invalid timeout %q: %v", *timeoutStr, err)
	}

	base := apiBase(*configPath, hostVal, portVal)
	apiKey := resolveAPIKey(*apiKeyFlag, *configPath)

	if *eventID > 0 {
		body, err := apiGet(fmt.Sprintf("%s/api/v1/events/%d", base, *eventID), apiKey, timeout)
		if err != nil {
			errorf("%v", err)
		}
		fmt.Println(string(body))
		return
	}

	query := url.Values{}
	if *severity != "" {
		query.Set("severity", *severity)
	}
	if *limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", *limit))
	}
	endpoint := base + "/api/v1/events"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := apiGet(endpoint, apiKey, timeout)
	if err != nil {
		errorf("%v", err)
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()

	if outFmt == FormatJSON {
		fmt.Fprintln(w, string(body))
		return
	}

	var resp struct {
		Events []struct {
			ID             int64  `json:"id"`
			Timestamp      string `json:"timestamp"`
			SourceIP       string `json:"source_ip"`
			DestPort       int    `json:"dest_port"`
			Severity       string `json:"severity"`
			Stage          string `json:"stage"`
			ChainID        string `json:"chain_id"`
			Recommendation string `json:"recommendation"`
		} `json:"events"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fmt.Fprintln(w, string(body))
		return
	}

	headers := []string{"ID", "TIME", "SOURCE", "PORT", "SEVERITY", "STAGE", "CHAIN", "ACTION"}
	rows := make([][]string, 0, len(resp.Events))
	for _, ev := range resp.Events {
		ts := ev.Timestamp
		if parsed, err := time.Parse(time.RFC3339Nano, ev.Timestamp); err == nil {
			ts = parsed.Format("15:04:05")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", ev.ID),
			ts,
			ev.SourceIP,
			fmt.Sprintf("%d", ev.DestPort),
			ev.Severity,
			ev.Stage,
			ev.ChainID,
			ev.Recommendation,
		})
	}

	if outFmt == FormatCSV {
		writeCSV(w, headers, rows)
		return
	}

	table := NewTable(w, headers...)
	for _, row := range rows {
		table.AddRow(row...)
	}
	table.Render()
	fmt.Fprintf(w, "%d event(s)\n", resp.Total)
}
