package main

// ---------------------------------------------------------------------------
// cmd_trigger.go — request attack chains from a running instance
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

func cmdTrigger(args []string) {
	fs := flag.NewFlagSet("trigger", flag.ExitOnError)
	configPath := fs.String("config", "configs/default.yaml", "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	apiKeyFlag := fs.String("api-key", "", "API key for authentication")
	count := fs.Int("count", 1, "Number of chains to request")
	jsonOut := fs.Bool("json", false, "Output raw JSON response")
	timeoutStr := fs.String("timeout", "5s", "Request timeout")
	fs.Parse(args)

	*configPath = envConfig(*configPath)
	hostVal := envHost(*host)
	portVal := envPort(*port)

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		errorf("invalid timeout %q: %v", *timeoutStr, err)
	}
	if *count < 1 {
		*count = 1
	}

	base := apiBase(*configPath, hostVal, portVal)
	apiKey := resolveAPIKey(*apiKeyFlag, *configPath)

	for i := 0; i < *count; i++ {
		body, err := apiPost(base+"/api/v1/attack/trigger", nil, apiKey, timeout)
		if err != nil {
			errorf("%v", err)
		}

		if *jsonOut {
			fmt.Println(string(body))
			continue
		}

		var resp map[string]interface{}
		if err := json.Unmarshal(body, &resp); err != nil {
			fmt.Println(string(body))
			continue
		}

		switch fmt.Sprintf("%v", resp["status"]) {
		case "scheduled":
			fmt.Fprintf(os.Stdout, "%s Chain %s scheduled — ~%vs, %v/%v plans active\n",
				green("✓"), cyan(fmt.Sprintf("%v", resp["chain_id"])),
				resp["approx_duration_sec"], resp["active"], resp["limit"])
		case "busy":
			fmt.Fprintf(os.Stdout, "%s Scheduler busy — %v/%v plans active (%v)\n",
				yellow("⚠"), resp["active"], resp["limit"], resp["reason"])
		case "skipped":
			fmt.Fprintf(os.Stdout, "%s Skipped — %v\n", yellow("⚠"), resp["reason"])
		case "throttled":
			if retry, ok := resp["retry_after"]; ok {
				fmt.Fprintf(os.Stdout, "%s Throttled (%v) — retry in %vs\n",
					yellow("⚠"), resp["reason"], retry)
			} else {
				fmt.Fprintf(os.Stdout, "%s Throttled (%v) — limit %v/min\n",
					yellow("⚠"), resp["reason"], resp["limit"])
			}
		default:
			fmt.Println(string(body))
		}
	}
}
