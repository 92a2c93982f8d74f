package simulate

import (
	"math/rand"
	"time"

	"github.com/threatstage/threatstage/internal/core"
)

// Sentinel chain ids produced by normalization.
const (
	chainUnknown = "unknown"
	chainInvalid = "invalid"
)

// Plan is the canonical timed plan every scheduler input is reduced to:
// ordered (delay, event) entries plus a total duration. An invalid or empty
// raw shape normalizes to the "invalid" sentinel with no entries, which the
// scheduler silently refuses.
type Plan struct {
	ChainID  string
	Duration time.Duration
	Entries  []PlanEntry
}

// Empty reports whether the plan has nothing to schedule.
func (p Plan) Empty() bool {
	return len(p.Entries) == 0
}

// invalidPlan is the explicit fail-soft result for unrecognized shapes.
func invalidPlan() Plan {
	return Plan{ChainID: chainInvalid}
}

// Normalize reduces any generator output shape to one canonical Plan. Total
// function: it never fails, degrading to the invalid sentinel instead.
//
// Accepted shapes:
//   - *Scenario (the canonical document): passed through, with missing
//     chain id coerced to "unknown", negative duration to zero, and entries
//     lacking an event dropped with a positional delay left behind for the
//     rest (fairness fallback, not physically meaningful).
//   - []*core.Event (a bare ordered list): wrapped with a freshly sampled
//     20–40s duration and evenly spaced delays; chain id from the first
//     event, else "unknown". An empty list is the invalid sentinel.
//
// Anything else normalizes to the invalid sentinel.
func Normalize(raw any, rng *rand.Rand) Plan {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	switch v := raw.(type) {
	case *Scenario:
		if v == nil {
			return invalidPlan()
		}
		return normalizeScenario(v)
	case Scenario:
		return normalizeScenario(&v)
	case []*core.Event:
		return normalizeBareList(v, rng)
	default:
		return invalidPlan()
	}
}

func normalizeScenario(sc *Scenario) Plan {
	chainID := sc.ChainID
	if chainID == "" {
		chainID = chainUnknown
	}
	duration := sc.Duration
	if duration < 0 {
		duration = 0
	}

	entries := make([]PlanEntry, 0, len(sc.Entries))
	for _, entry := range sc.Entries {
		if entry.Event == nil {
			// Nothing to emit at this slot; drop it.
			continue
		}
		delay := entry.Delay
		if delay < 0 {
			delay = 0
		}
		entries = append(entries, PlanEntry{Delay: delay, Event: entry.Event})
	}

	return Plan{ChainID: chainID, Duration: duration, Entries: entries}
}

func normalizeBareList(events []*core.Event, rng *rand.Rand) Plan {
	if len(events) == 0 {
		return invalidPlan()
	}

	chainID := chainUnknown
	if events[0] != nil && events[0].ChainID != "" {
		chainID = events[0].ChainID
	}

	kept := make([]*core.Event, 0, len(events))
	for _, ev := range events {
		if ev != nil {
			kept = append(kept, ev)
		}
	}
	if len(kept) == 0 {
		return invalidPlan()
	}

	duration := sampleDuration(rng)
	delays := spaceEvenly(len(kept), duration)
	entries := make([]PlanEntry, len(kept))
	for idx, ev := range kept {
		entries[idx] = PlanEntry{Delay: delays[idx], Event: ev}
	}

	return Plan{ChainID: chainID, Duration: duration, Entries: entries}
}
