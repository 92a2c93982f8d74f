package analysis

import (
	"testing"

	"github.com/threatstage/threatstage/internal/core"
)

func TestRecommendForEvent_StageMapping(t *testing.T) {
	cases := []struct {
		stage    core.Stage
		action   string
		priority int
	}{
		{core.StageNoise, "watch", 1},
		{core.StageRecon, "investigate", 2},
		{core.StageIntrusion, "block", 4},
		{core.StageExploit, "isolate", 5},
	}
	for _, tc := range cases {
		e := &core.Event{Stage: tc.stage}
		rec := RecommendForEvent(e, Classification{Risk: RiskLow})
		if rec.Action != tc.action || rec.Priority != tc.priority {
			t.Errorf("stage %s: got %s/%d, want %s/%d",
				tc.stage, rec.Action, rec.Priority, tc.action, tc.priority)
		}
	}
}

func TestRecommendForEvent_StagePrecedesRisk(t *testing.T) {
	// A recon event stays "investigate" even under a critical classification.
	e := &core.Event{Stage: core.StageRecon}
	rec := RecommendForEvent(e, Classification{Risk: RiskCritical})
	if rec.Action != "investigate" {
		t.Errorf("stage should take precedence, got %s", rec.Action)
	}
}

func TestRecommendForEvent_RiskFallback(t *testing.T) {
	e := &core.Event{Stage: core.Stage("telemetry")}
	if rec := RecommendForEvent(e, Classification{Risk: RiskHigh}); rec.Action != "block" {
		t.Errorf("high risk fallback should block, got %s", rec.Action)
	}
	if rec := RecommendForEvent(e, Classification{Risk: RiskCritical}); rec.Action != "isolate" {
		t.Errorf("critical risk fallback should isolate, got %s", rec.Action)
	}
	if rec := RecommendForEvent(e, Classification{Risk: RiskLow}); rec.Action != "watch" || rec.Priority != 1 {
		t.Errorf("default should watch/1, got %s/%d", rec.Action, rec.Priority)
	}
}

func TestRecommendForChain_ReconOnlyWatches(t *testing.T) {
	summary := ChainSummary{Risk: RiskMedium, Stages: []core.Stage{core.StageRecon}}
	rec := RecommendForChain(summary)
	if rec.Action != "watch" || rec.Priority != 2 {
		t.Errorf("recon-only chain: got %s/%d", rec.Action, rec.Priority)
	}
}

func TestRecommendForChain_ExploitIsolates(t *testing.T) {
	summary := ChainSummary{
		Risk:   RiskCritical,
		Stages: []core.Stage{core.StageRecon, core.StageIntrusion, core.StageExploit},
	}
	if rec := RecommendForChain(summary); rec.Action != "isolate" || rec.Priority != 5 {
		t.Errorf("exploit chain: got %s/%d", rec.Action, rec.Priority)
	}
}

func TestRecommendForChain_IntrusionBlocks(t *testing.T) {
	summary := ChainSummary{
		Risk:   RiskHigh,
		Stages: []core.Stage{core.StageRecon, core.StageIntrusion},
	}
	if rec := RecommendForChain(summary); rec.Action != "block" || rec.Priority != 4 {
		t.Errorf("intrusion chain: got %s/%d", rec.Action, rec.Priority)
	}
}

func TestRecommendForChain_RiskFallback(t *testing.T) {
	high := ChainSummary{Risk: RiskHigh, Stages: []core.Stage{core.Stage("telemetry")}}
	if rec := RecommendForChain(high); rec.Action != "block" {
		t.Errorf("high-risk fallback: got %s", rec.Action)
	}
	low := ChainSummary{Risk: RiskLow, Stages: []core.Stage{}}
	if rec := RecommendForChain(low); rec.Action != "watch" || rec.Priority != 1 {
		t.Errorf("default chain: got %s/%d", rec.Action, rec.Priority)
	}
}

func TestRecommendForPosture_Table(t *testing.T) {
	cases := []struct {
		posture Posture
		action  string
	}{
		{PostureMonitor, "none"},
		{PostureElevated, "enhance_logging"},
		{PostureRestrict, "rate_limit"},
		{PostureLockdown, "close_external_interfaces"},
		{Posture("UNHEARD_OF"), "none"},
	}
	for _, tc := range cases {
		if rec := RecommendForPosture(tc.posture); rec.Action != tc.action {
			t.Errorf("posture %s: got %s, want %s", tc.posture, rec.Action, tc.action)
		}
	}
}
