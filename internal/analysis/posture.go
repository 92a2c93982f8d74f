package analysis

import (
	"time"

	"github.com/threatstage/threatstage/internal/core"
)

// Posture is the single site-wide threat level, ordered
// MONITOR < ELEVATED < RESTRICT < LOCKDOWN.
type Posture string

const (
	PostureMonitor  Posture = "MONITOR"
	PostureElevated Posture = "ELEVATED"
	PostureRestrict Posture = "RESTRICT"
	PostureLockdown Posture = "LOCKDOWN"
)

// restrictWindow is the cutoff for counting repeated malicious activity from
// one source.
const restrictWindow = 30 * time.Second

// DeterminePosture derives the global posture from a recent-events window and
// the chain summaries computed over it. Ordered decision list, first match
// wins:
//
//  1. any critical chain → LOCKDOWN
//  2. two or more malicious events from the same source within 30s → RESTRICT
//  3. all recent events benign (vacuously true when empty) → MONITOR
//  4. otherwise → ELEVATED
//
// There is no stored posture history; every call recomputes from scratch.
func DeterminePosture(recent []*core.Event, chains []ChainSummary, now time.Time) Posture {
	for _, summary := range chains {
		if summary.Risk == RiskCritical {
			return PostureLockdown
		}
	}

	maliciousByIP := make(map[string]int)
	for _, e := range recent {
		if e.Severity != core.SeverityMalicious {
			continue
		}
		if eventAge(e, now) <= restrictWindow {
			maliciousByIP[e.SourceIP]++
		}
	}
	for _, count := range maliciousByIP {
		if count >= 2 {
			return PostureRestrict
		}
	}

	allBenign := true
	for _, e := range recent {
		if e.Severity != core.SeverityBenign {
			allBenign = false
			break
		}
	}
	if allBenign {
		return PostureMonitor
	}

	return PostureElevated
}
