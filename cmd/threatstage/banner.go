package main

// ---------------------------------------------------------------------------
// banner.go — ASCII art banner and version/usage printing
// ---------------------------------------------------------------------------

import (
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"runtime/debug"
)

func bannerText() string {
	art := `
    ╔═══════════════════════════════════════════════════════╗
    ║                                                       ║
    ║   ████████╗ ███████╗ ████████╗  █████╗   ██████╗      ║
    ║   ╚══██╔══╝ ██╔════╝ ╚══██╔══╝ ██╔══██╗ ██╔════╝      ║
    ║      ██║    ███████╗    ██║    ███████║ ██║  ███╗     ║
    ║      ██║    ╚════██║    ██║    ██╔══██║ ██║   ██║     ║
    ║      ██║    ███████║    ██║    ██║  ██║ ╚██████╔╝     ║
    ║      ╚═╝    ╚══════╝    ╚═╝    ╚═╝  ╚═╝  ╚═════╝      ║
    ║                                                       ║
    ║        THREATSTAGE · SIMULATED SOC EVENT FEED         ║
    ║                                                       ║
    ╚═══════════════════════════════════════════════════════╝
`
	if !colorEnabled() {
		return art
	}
	return "\033[36m" + art + "\033[0m"
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "threatstage v%s", version)
	if commit != "dev" {
		fmt.Fprintf(w, " (%s)", commit[:min(7, len(commit))])
	}
	if buildDate != "unknown" {
		fmt.Fprintf(w, " built %s", buildDate)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(w, " %s", bi.GoVersion)
	}
	fmt.Fprintf(w, " %s/%s", goruntime.GOOS, goruntime.GOARCH)
	fmt.Fprintln(w)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, bannerText())
	fmt.Fprintf(w, "  %s\n\n", dim("v"+version))
	fmt.Fprintf(w, "%s\n\n", bold("USAGE"))
	fmt.Fprintf(w, "  threatstage <command> [flags]\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("COMMANDS"))
	fmt.Fprintf(w, "  %-12s  %s\n", bold("up"), "Start the feed engine and API server")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("status"), "Show status of a running instance")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("trigger"), "Request a new attack chain")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("events"), "List or inspect stored events")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("dashboard"), "Launch a live terminal dashboard")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("logs"), "Fetch recent logs from a running instance")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("config"), "Show or validate configuration")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("init"), "Generate a starter configuration file")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("version"), "Print version and build info")
	fmt.Fprintf(w, "  %-12s  %s\n", bold("help"), "Show help for a command")
	fmt.Fprintf(w, "\n%s\n\n", bold("GLOBAL FLAGS"))
	fmt.Fprintf(w, "  %-22s  %s\n", "--config <path>", "Config file path (default: configs/default.yaml, env: THREATSTAGE_CONFIG)")
	fmt.Fprintf(w, "  %-22s  %s\n", "--api-key <key>", "API key (env: THREATSTAGE_API_KEY)")
	fmt.Fprintf(w, "  %-22s  %s\n", "--format <fmt>", "Output format: table, json, csv (default: table)")
	fmt.Fprintf(w, "  %-22s  %s\n", "--version, -V", "Print version and exit")
	fmt.Fprintf(w, "  %-22s  %s\n", "--help, -h", "Show help")
	fmt.Fprintf(w, "\n%s\n\n", bold("ENVIRONMENT VARIABLES"))
	fmt.Fprintf(w, "  %-22s  %s\n", "THREATSTAGE_CONFIG", "Default config file path")
	fmt.Fprintf(w, "  %-22s  %s\n", "THREATSTAGE_HOST", "API host override")
	fmt.Fprintf(w, "  %-22s  %s\n", "THREATSTAGE_PORT", "API port override")
	fmt.Fprintf(w, "  %-22s  %s\n", "THREATSTAGE_API_KEY", "API key for authentication")
	fmt.Fprintf(w, "\n%s\n\n", bold("EXAMPLES"))
	fmt.Fprintf(w, "  %s\n", dim("# Start with defaults"))
	fmt.Fprintf(w, "  threatstage up\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Kick off an attack chain"))
	fmt.Fprintf(w, "  threatstage trigger\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Last 20 critical events as JSON"))
	fmt.Fprintf(w, "  threatstage events --severity critical --limit 20 --json\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Watch the posture live"))
	fmt.Fprintf(w, "  threatstage dashboard\n\n")
	fmt.Fprintf(w, "Run %s for detailed help on any command.\n\n", bold("threatstage help <command>"))
}

func cmdHelp(cmd string) {
	switch cmd {
	case "up":
		fmt.Println(bold("threatstage up") + " — start the feed engine and API server")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --config <path>      Config file path")
		fmt.Println("  --log-level <level>  Log level override: debug, info, warn, error")
		fmt.Println("  --quiet, -q          Suppress banner and non-essential output")
		fmt.Println("  --no-color           Disable color output")
	case "status":
		fmt.Println(bold("threatstage status") + " — show status of a running instance")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --config <path>   Config file path")
		fmt.Println("  --host <host>     API host override")
		fmt.Println("  --port <port>     API port override")
		fmt.Println("  --api-key <key>   API key for authentication")
		fmt.Println("  --json            Output raw JSON")
	case "trigger":
		fmt.Println(bold("threatstage trigger") + " — request a new attack chain")
		fmt.Println()
		fmt.Println("The server may answer busy (active-plan ceiling reached), skipped")
		fmt.Println("(nothing generated), or throttled (cooldown or per-minute cap).")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --config <path>   Config file path")
		fmt.Println("  --host <host>     API host override")
		fmt.Println("  --port <port>     API port override")
		fmt.Println("  --api-key <key>   API key for authentication")
		fmt.Println("  --count <n>       Number of chains to request (default 1)")
		fmt.Println("  --json            Output raw JSON")
	case "events":
		fmt.Println(bold("threatstage events") + " — list or inspect stored events")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --config <path>       Config file path")
		fmt.Println("  --severity <sev>      Filter: benign, suspicious, malicious, critical")
		fmt.Println("  --limit <n>           Maximum events to return (0 = all)")
		fmt.Println("  --id <n>              Fetch a single event by id")
		fmt.Println("  --format <fmt>        Output format: table, json, csv")
		fmt.Println("  --output <path>       Write output to file")
	case "dashboard":
		fmt.Println(bold("threatstage dashboard") + " — live terminal dashboard")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --config <path>    Config file path")
		fmt.Println("  --refresh <dur>    Refresh interval (default 2s)")
	case "logs":
		fmt.Println(bold("threatstage logs") + " — fetch recent logs from a running instance")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --config <path>   Config file path")
		fmt.Println("  --limit <n>       Number of log lines (default 50)")
		fmt.Println("  --json            Output raw JSON")
	case "config":
		fmt.Println(bold("threatstage config") + " — show or validate configuration")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --config <path>   Config file path")
		fmt.Println("  --validate        Validate config and exit")
		fmt.Println("  --json            Output as JSON instead of YAML")
	case "init":
		fmt.Println(bold("threatstage init") + " — generate a starter configuration file")
		fmt.Println()
		fmt.Println("FLAGS")
		fmt.Println("  --output <path>   Where to write the config (default configs/default.yaml)")
		fmt.Println("  --force           Overwrite an existing file")
	case "version":
		printVersion(os.Stdout)
	default:
		fmt.Printf("No detailed help for %q. Run %s for an overview.\n", cmd, bold("threatstage --help"))
	}
}
