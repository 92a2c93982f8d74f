package analysis

import "github.com/threatstage/threatstage/internal/core"

// Recommendation is a suggested action with a reason and a 1–5 priority.
type Recommendation struct {
	Action   string `json:"action"`
	Reason   string `json:"reason"`
	Priority int    `json:"priority"`
}

// PostureRecommendation is the site-wide suggested action; no priority.
type PostureRecommendation struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// RecommendForEvent maps an event and its classification to an action. Stage
// takes precedence over the aggregate risk tier; risk is the fallback only
// when the stage is unrecognized.
func RecommendForEvent(e *core.Event, c Classification) Recommendation {
	switch e.Stage {
	case core.StageNoise:
		return Recommendation{Action: "watch", Reason: "noise category event", Priority: 1}
	case core.StageRecon:
		return Recommendation{Action: "investigate", Reason: "recon activity detected", Priority: 2}
	case core.StageIntrusion:
		return Recommendation{Action: "block", Reason: "intrusion indicators observed", Priority: 4}
	case core.StageExploit:
		return Recommendation{Action: "isolate", Reason: "exploit behavior detected", Priority: 5}
	}

	switch c.Risk {
	case RiskHigh:
		return Recommendation{Action: "block", Reason: "high-risk classification", Priority: 4}
	case RiskCritical:
		return Recommendation{Action: "isolate", Reason: "critical risk classification", Priority: 5}
	}

	return Recommendation{Action: "watch", Reason: "baseline monitoring", Priority: 1}
}

// RecommendForChain maps a chain summary to an action. Stage membership takes
// precedence over the chain's risk tier.
func RecommendForChain(summary ChainSummary) Recommendation {
	if len(summary.Stages) == 1 && summary.Stages[0] == core.StageRecon {
		return Recommendation{Action: "watch", Reason: "recon-only chain", Priority: 2}
	}

	for _, stage := range summary.Stages {
		if stage == core.StageExploit {
			return Recommendation{Action: "isolate", Reason: "exploit stage present", Priority: 5}
		}
	}
	for _, stage := range summary.Stages {
		if stage == core.StageIntrusion {
			return Recommendation{Action: "block", Reason: "intrusion indicators across chain", Priority: 4}
		}
	}

	switch summary.Risk {
	case RiskHigh:
		return Recommendation{Action: "block", Reason: "high-risk chain", Priority: 4}
	case RiskCritical:
		return Recommendation{Action: "isolate", Reason: "critical chain", Priority: 5}
	}

	return Recommendation{Action: "watch", Reason: "default low-risk chain", Priority: 1}
}

// RecommendForPosture maps the global posture to a site-wide action.
func RecommendForPosture(p Posture) PostureRecommendation {
	switch p {
	case PostureMonitor:
		return PostureRecommendation{Action: "none", Reason: "environment stable"}
	case PostureElevated:
		return PostureRecommendation{Action: "enhance_logging", Reason: "suspicious activity detected"}
	case PostureRestrict:
		return PostureRecommendation{Action: "rate_limit", Reason: "malicious activity from repeated IPs"}
	case PostureLockdown:
		return PostureRecommendation{Action: "close_external_interfaces", Reason: "critical chain detected"}
	}
	return PostureRecommendation{Action: "none", Reason: "unknown posture"}
}
