package simulate

import (
	"math/rand"
	"time"

	"github.com/threatstage/threatstage/internal/core"
)

// NoiseGenerator produces the continuous low-risk background of the feed:
// standalone benign events with no chain.
type NoiseGenerator struct {
	rng *rand.Rand
}

// NewNoiseGenerator creates a noise generator over the given rand source.
func NewNoiseGenerator(rng *rand.Rand) *NoiseGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &NoiseGenerator{rng: rng}
}

// Event builds one benign background event. Never fails; the store assigns
// id and timestamp on add.
func (n *NoiseGenerator) Event() *core.Event {
	tpl := noiseTemplates[n.rng.Intn(len(noiseTemplates))]
	return &core.Event{
		SourceIP: RandomIP(n.rng),
		DestPort: RandomCommonPort(n.rng),
		Phase:    core.PhaseNoise,
		Category: "noise",
		Severity: core.SeverityBenign,
		Stage:    core.StageNoise,
		Raw:      tpl.raw,
		Parsed: map[string]any{
			"surface": "noise",
			"action":  tpl.action,
		},
	}
}

// Wait samples the pause before the next noise emission, uniform between min
// and max.
func (n *NoiseGenerator) Wait(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(n.rng.Int63n(int64(max-min)))
}
