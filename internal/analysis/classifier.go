// Package analysis holds the pure read-side functions of the feed: per-event
// and per-chain risk classification, the global posture engine, and the
// recommendation tables. Nothing in this package owns state; everything is a
// function over a snapshot handed to it.
package analysis

import (
	"fmt"
	"time"

	"github.com/threatstage/threatstage/internal/core"
)

// Risk is the classifier's risk tier.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

// Classification is the per-event classifier output: a risk tier, a clamped
// confidence, and the human-readable factors that fired, in evaluation order.
type Classification struct {
	Risk       Risk     `json:"risk"`
	Confidence float64  `json:"confidence"`
	Factors    []string `json:"factors"`
}

// ChainSummary is the aggregate classification of one chain. Derived and
// ephemeral: recomputed from the chain's currently-known events on every
// read, never persisted.
type ChainSummary struct {
	ChainID    string       `json:"chain_id,omitempty"`
	Risk       Risk         `json:"risk"`
	Confidence float64      `json:"confidence"`
	Stages     []core.Stage `json:"stages"`
	IP         string       `json:"ip,omitempty"`
	Factors    []string     `json:"factors"`
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// eventAge returns how long ago the event fired. A zero timestamp counts as
// "now" so a malformed event never aborts a read.
func eventAge(e *core.Event, now time.Time) time.Duration {
	if e.Timestamp.IsZero() {
		return 0
	}
	return now.Sub(e.Timestamp)
}

// ClassifyEvent maps one event to risk, confidence and factors. Stage drives
// the baseline; severity and recency add fixed confidence increments.
func ClassifyEvent(e *core.Event, now time.Time) Classification {
	factors := []string{}
	conf := 0.3 // baseline confidence

	if e.Stage == core.StageNoise {
		factors = append(factors, "noise category → low risk")
		return Classification{Risk: RiskLow, Confidence: 0.2, Factors: factors}
	}

	var risk Risk
	switch e.Stage {
	case core.StageRecon:
		conf += 0.1
		factors = append(factors, "recon activity detected")
		risk = RiskMedium
	case core.StageIntrusion:
		conf += 0.25
		factors = append(factors, "intrusion indicators present")
		risk = RiskHigh
	case core.StageExploit:
		conf += 0.45
		factors = append(factors, "exploit behavior detected")
		risk = RiskCritical
	default:
		risk = RiskMedium
		factors = append(factors, "unknown stage → assume medium risk")
	}

	switch e.Severity {
	case core.SeverityMalicious:
		conf += 0.15
		factors = append(factors, "severity=malicious → increased risk")
	case core.SeverityCritical:
		conf += 0.3
		factors = append(factors, "severity=critical → high concern")
	}

	if eventAge(e, now) < 60*time.Second {
		conf += 0.1
		factors = append(factors, "recent activity (<60s)")
	}

	return Classification{Risk: risk, Confidence: clamp(conf), Factors: factors}
}

// ClassifyChain aggregates one chain's events into a summary. Risk derives
// from the distinct stage set (duplicates collapsed, order preserved);
// severity presence and repeated source addresses add confidence.
func ClassifyChain(events []*core.Event) ChainSummary {
	if len(events) == 0 {
		return ChainSummary{
			Risk:       RiskLow,
			Confidence: 0,
			Stages:     []core.Stage{},
			Factors:    []string{"empty chain"},
		}
	}

	stageSeen := make(map[core.Stage]bool)
	distinct := make([]core.Stage, 0, len(events))
	anyStage := make(map[core.Stage]bool)
	sevSeen := make(map[core.Severity]bool)
	ipCounts := make(map[string]int)
	ipOrder := []string{}

	for _, e := range events {
		if !stageSeen[e.Stage] {
			stageSeen[e.Stage] = true
			distinct = append(distinct, e.Stage)
		}
		anyStage[e.Stage] = true
		sevSeen[e.Severity] = true
		if _, ok := ipCounts[e.SourceIP]; !ok {
			ipOrder = append(ipOrder, e.SourceIP)
		}
		ipCounts[e.SourceIP]++
	}

	factors := []string{}
	conf := 0.4

	var risk Risk
	switch {
	case len(distinct) == 1 && distinct[0] == core.StageRecon:
		factors = append(factors, "recon-only chain → medium risk")
		risk = RiskMedium
	case anyStage[core.StageExploit]:
		factors = append(factors, "exploit stage present → critical risk")
		risk = RiskCritical
		conf += 0.35
	case anyStage[core.StageIntrusion]:
		factors = append(factors, "intrusion indicators → high risk")
		risk = RiskHigh
		conf += 0.20
	case anyStage[core.StageRecon]:
		factors = append(factors, "recon sequence → medium risk")
		risk = RiskMedium
		conf += 0.10
	default:
		factors = append(factors, "default chain rule → low risk")
		risk = RiskLow
	}

	if sevSeen[core.SeverityCritical] {
		conf += 0.25
		factors = append(factors, "critical severity event in chain")
	} else if sevSeen[core.SeverityMalicious] {
		conf += 0.15
		factors = append(factors, "malicious severity in chain")
	}

	// Duplicate indicators: the chain's most common source address acting
	// more than once. Chains share one address by construction, so this is
	// in practice "chain has at least two events" — kept as-is.
	dominantIP, dominantCount := "", 0
	for _, ip := range ipOrder {
		if ipCounts[ip] > dominantCount {
			dominantIP, dominantCount = ip, ipCounts[ip]
		}
	}
	if dominantCount > 1 {
		conf += 0.1
		factors = append(factors, fmt.Sprintf("%d repeated actions from IP %s", dominantCount, dominantIP))
	}

	return ChainSummary{
		Risk:       risk,
		Confidence: clamp(conf),
		Stages:     distinct,
		IP:         dominantIP,
		Factors:    factors,
	}
}

// SummarizeChains groups events by chain id and classifies each group.
// Standalone noise events (no chain id) are skipped. Summaries come back in
// first-seen chain order so output is stable for identical input.
func SummarizeChains(events []*core.Event) []ChainSummary {
	grouped := make(map[string][]*core.Event)
	order := []string{}
	for _, e := range events {
		if e.ChainID == "" {
			continue
		}
		if _, ok := grouped[e.ChainID]; !ok {
			order = append(order, e.ChainID)
		}
		grouped[e.ChainID] = append(grouped[e.ChainID], e)
	}

	summaries := make([]ChainSummary, 0, len(order))
	for _, cid := range order {
		summary := ClassifyChain(grouped[cid])
		summary.ChainID = cid
		summaries = append(summaries, summary)
	}
	return summaries
}
