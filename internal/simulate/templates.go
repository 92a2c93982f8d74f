package simulate

import (
	"math/rand"

	"github.com/threatstage/threatstage/internal/core"
)

// Surface is the attack surface a chain targets.
type Surface string

const (
	SurfaceSSH  Surface = "ssh"
	SurfaceHTTP Surface = "http"
)

var surfaces = []Surface{SurfaceSSH, SurfaceHTTP}

// template is one content option for a stage/surface pair. Category mirrors
// the stage for attack events.
type template struct {
	raw    string
	parsed map[string]any
}

var reconTemplates = map[Surface][]template{
	SurfaceSSH: {
		{
			raw: "SSH banner grab from unknown host",
			parsed: map[string]any{
				"stage":  "recon",
				"vector": "ssh",
				"method": "banner_grab",
			},
		},
		{
			raw: "SSH version probe against exposed service",
			parsed: map[string]any{
				"stage":  "recon",
				"vector": "ssh",
				"method": "version_probe",
			},
		},
	},
	SurfaceHTTP: {
		{
			raw: "HTTP directory probe detected",
			parsed: map[string]any{
				"stage":  "recon",
				"vector": "http",
				"paths":  []string{"/admin", "/login", "/.git/"},
			},
		},
		{
			raw: "HTTP endpoint scan from remote host",
			parsed: map[string]any{
				"stage":  "recon",
				"vector": "http",
				"paths":  []string{"/", "/status", "/metrics"},
			},
		},
	},
}

var intrusionTemplates = map[Surface][]template{
	SurfaceSSH: {
		{
			raw: "SSH brute force — repeated failed password logins",
			parsed: map[string]any{
				"stage":     "intrusion",
				"vector":    "ssh",
				"attempts":  24,
				"auth_type": "password",
			},
		},
		{
			raw: "SSH brute force — rapid key-exchange failures",
			parsed: map[string]any{
				"stage":     "intrusion",
				"vector":    "ssh",
				"attempts":  18,
				"auth_type": "publickey",
			},
		},
	},
	SurfaceHTTP: {
		{
			raw: "Repeated login failures on web auth endpoint",
			parsed: map[string]any{
				"stage":    "intrusion",
				"vector":   "http",
				"endpoint": "/login",
				"attempts": 15,
			},
		},
		{
			raw: "Elevated error rate on web auth endpoint",
			parsed: map[string]any{
				"stage":        "intrusion",
				"vector":       "http",
				"endpoint":     "/login",
				"status_codes": []int{401, 403},
			},
		},
	},
}

var exploitTemplates = map[Surface][]template{
	SurfaceSSH: {
		{
			raw: "SSH privilege escalation attempt detected",
			parsed: map[string]any{
				"stage":     "exploit",
				"vector":    "ssh",
				"indicator": "suspicious sudo failure pattern",
			},
		},
		{
			raw: "SSH command execution pattern blocked",
			parsed: map[string]any{
				"stage":     "exploit",
				"vector":    "ssh",
				"indicator": "abnormal shell command sequence",
			},
		},
	},
	SurfaceHTTP: {
		{
			raw: "Exploit payload upload attempt detected",
			parsed: map[string]any{
				"stage":     "exploit",
				"vector":    "http",
				"indicator": "suspicious binary upload",
			},
		},
		{
			raw: "Remote command injection attempt blocked",
			parsed: map[string]any{
				"stage":     "exploit",
				"vector":    "http",
				"indicator": "command injection pattern",
			},
		},
	},
}

// noiseTemplates drive the benign background feed.
var noiseTemplates = []struct {
	raw    string
	action string
}{
	{"Healthcheck ping", "healthcheck"},
	{"Metrics scrape request", "metrics"},
	{"Web crawler fetch", "crawler"},
	{"Idle tick", "idle"},
	{"DNS lookup", "dns"},
}

// pickTemplate selects one content template for the stage/surface pair.
// Unknown surfaces fall back to http, unknown stages to recon. Parsed is
// copied so callers can mutate their own map.
func pickTemplate(rng *rand.Rand, stage core.Stage, surface Surface) template {
	if surface != SurfaceSSH && surface != SurfaceHTTP {
		surface = SurfaceHTTP
	}

	var pool []template
	switch stage {
	case core.StageRecon:
		pool = reconTemplates[surface]
	case core.StageIntrusion:
		pool = intrusionTemplates[surface]
	case core.StageExploit:
		pool = exploitTemplates[surface]
	default:
		pool = reconTemplates[surface]
	}

	tpl := pool[rng.Intn(len(pool))]
	parsed := make(map[string]any, len(tpl.parsed))
	for k, v := range tpl.parsed {
		parsed[k] = v
	}
	return template{raw: tpl.raw, parsed: parsed}
}
