package engine

import (
	"time"

	"github.com/threatstage/threatstage/internal/analysis"
	"github.com/threatstage/threatstage/internal/core"
	"github.com/threatstage/threatstage/internal/simulate"
)

// RequestChain generates a fresh attack scenario, normalizes it and hands it
// to the scheduler. The result distinguishes scheduled, busy (ceiling hit)
// and skipped (nothing generated).
func (e *Engine) RequestChain() simulate.RequestResult {
	e.genMu.Lock()
	scenario := e.generator.Scenario()
	plan := simulate.Normalize(scenario, e.rng)
	e.genMu.Unlock()
	return e.Scheduler.Request(plan, time.Now())
}

// serialize flattens an event and attaches the recommended action, computed
// on the fly through classifier and recommender. Only the action string is
// exposed; the full recommendation is never stored.
func (e *Engine) serialize(ev *core.Event, now time.Time) core.SerializedEvent {
	classification := analysis.ClassifyEvent(ev, now)
	rec := analysis.RecommendForEvent(ev, classification)
	return core.SerializedEvent{Event: *ev, Recommendation: rec.Action}
}

// ListEvents returns serialized events newest-first. A zero limit means all;
// an empty severity means no filter.
func (e *Engine) ListEvents(severity core.Severity, limit int) []core.SerializedEvent {
	var events []*core.Event
	switch {
	case severity != "":
		events = e.Store.BySeverity(severity)
		if limit > 0 && limit < len(events) {
			events = events[:limit]
		}
	case limit > 0:
		events = e.Store.Recent(limit)
	default:
		events = e.Store.All()
	}

	now := time.Now()
	out := make([]core.SerializedEvent, len(events))
	for i, ev := range events {
		out[i] = e.serialize(ev, now)
	}
	return out
}

// GetEvent returns one serialized event by id, or false when the id is
// unknown or already evicted.
func (e *Engine) GetEvent(id int64) (core.SerializedEvent, bool) {
	ev := e.Store.ByID(id)
	if ev == nil {
		return core.SerializedEvent{}, false
	}
	return e.serialize(ev, time.Now()), true
}

// Dashboard is the aggregate view served to clients: the current posture,
// whole-buffer severity counts, and per-severity deltas over the trailing
// window. Recomputed from scratch on every call.
type Dashboard struct {
	Posture        analysis.Posture      `json:"posture"`
	Recommendation string                `json:"recommendation"`
	Counts         map[core.Severity]int `json:"counts"`
	Total          int                   `json:"total"`
	Delta          map[core.Severity]int `json:"delta"`
}

// GetDashboard computes the dashboard snapshot. With no intervening writes,
// two consecutive calls return identical output.
func (e *Engine) GetDashboard() Dashboard {
	window := e.Config.Window()
	recent := e.Store.InWindow(window)
	chains := analysis.SummarizeChains(recent)
	posture := analysis.DeterminePosture(recent, chains, time.Now())
	counts := e.Store.Counts()

	return Dashboard{
		Posture:        posture,
		Recommendation: analysis.RecommendForPosture(posture).Action,
		Counts:         counts.BySeverity,
		Total:          counts.Total,
		Delta:          e.Store.Deltas(window),
	}
}
