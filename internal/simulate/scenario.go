package simulate

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/threatstage/threatstage/internal/core"
)

// PlanEntry is one timed step of a chain: emit event after delay from the
// plan's start.
type PlanEntry struct {
	Delay time.Duration `json:"delay"`
	Event *core.Event   `json:"event"`
}

// Scenario is one self-consistent attack chain as produced by the generator:
// shared identity plus an ordered timed plan. Pure data, no timing side
// effects.
type Scenario struct {
	ChainID  string        `json:"chain_id"`
	SourceIP string        `json:"source_ip"`
	DestPort int           `json:"dest_port"`
	Surface  Surface       `json:"surface"`
	Duration time.Duration `json:"duration"`
	Entries  []PlanEntry   `json:"plan"`
}

// Generator builds attack scenarios. The injected rand source makes chains
// reproducible under a fixed seed.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a scenario generator over the given rand source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// stageSequence builds the ordered stage list for one attacker. Always
// recon → intrusion → exploit, never shuffled; length 3–5 with the extra
// steps duplicating the leading recon and/or trailing exploit. Every chain
// therefore has exactly one intrusion stage.
func (g *Generator) stageSequence() []core.Stage {
	base := []core.Stage{core.StageRecon, core.StageIntrusion, core.StageExploit}
	length := 3 + g.rng.Intn(3)

	switch length {
	case 3:
		return base
	case 4:
		if g.rng.Intn(2) == 0 {
			return []core.Stage{core.StageRecon, core.StageRecon, core.StageIntrusion, core.StageExploit}
		}
		return []core.Stage{core.StageRecon, core.StageIntrusion, core.StageExploit, core.StageExploit}
	default:
		return []core.Stage{core.StageRecon, core.StageRecon, core.StageIntrusion, core.StageExploit, core.StageExploit}
	}
}

// severityForStage keeps chain scoring consistent: recon is suspicious,
// intrusion malicious, exploit critical.
func severityForStage(stage core.Stage) core.Severity {
	switch stage {
	case core.StageRecon:
		return core.SeveritySuspicious
	case core.StageIntrusion:
		return core.SeverityMalicious
	case core.StageExploit:
		return core.SeverityCritical
	}
	return core.SeverityBenign
}

// sampleDuration picks a chain duration uniformly from 20–40 seconds.
func sampleDuration(rng *rand.Rand) time.Duration {
	secs := 20.0 + rng.Float64()*20.0
	return time.Duration(secs * float64(time.Second))
}

// spaceEvenly assigns non-decreasing delays from 0 to duration across count
// entries. The final delay always lands on the duration itself.
func spaceEvenly(count int, duration time.Duration) []time.Duration {
	if count <= 0 {
		return nil
	}
	delays := make([]time.Duration, count)
	if count == 1 {
		return delays
	}
	step := duration / time.Duration(count-1)
	for i := range delays {
		delays[i] = time.Duration(i) * step
	}
	return delays
}

// Scenario generates a single coherent attack chain as a timed plan. All
// events share source IP, dest port, surface and an 8-character chain id;
// stages are sequential and delays evenly spaced across the sampled duration.
func (g *Generator) Scenario() *Scenario {
	sourceIP := RandomIP(g.rng)
	destPort := RandomCommonPort(g.rng)
	surface := surfaces[g.rng.Intn(len(surfaces))]
	chainID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	stages := g.stageSequence()
	events := make([]*core.Event, 0, len(stages))
	for _, stage := range stages {
		tpl := pickTemplate(g.rng, stage, surface)
		events = append(events, &core.Event{
			SourceIP: sourceIP,
			DestPort: destPort,
			Phase:    core.PhaseAttack,
			Category: string(stage),
			Severity: severityForStage(stage),
			ChainID:  chainID,
			Stage:    stage,
			Raw:      tpl.raw,
			Parsed:   tpl.parsed,
		})
	}

	scenario := &Scenario{
		ChainID:  chainID,
		SourceIP: sourceIP,
		DestPort: destPort,
		Surface:  surface,
	}

	// An empty stage sequence cannot occur under the policy above, but fail
	// soft with a zero-duration empty plan rather than panicking.
	if len(events) == 0 {
		return scenario
	}

	scenario.Duration = sampleDuration(g.rng)
	delays := spaceEvenly(len(events), scenario.Duration)
	scenario.Entries = make([]PlanEntry, len(events))
	for i, ev := range events {
		scenario.Entries[i] = PlanEntry{Delay: delays[i], Event: ev}
	}
	return scenario
}
