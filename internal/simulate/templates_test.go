package simulate

import (
	"math/rand"
	"testing"

	"github.com/threatstage/threatstage/internal/core"
)

func TestPickTemplate_StageSurfacePairs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, surface := range surfaces {
		for _, stage := range []core.Stage{core.StageRecon, core.StageIntrusion, core.StageExploit} {
			tpl := pickTemplate(rng, stage, surface)
			if tpl.raw == "" {
				t.Errorf("%s/%s: empty raw line", stage, surface)
			}
			if tpl.parsed["stage"] != string(stage) {
				t.Errorf("%s/%s: parsed stage is %v", stage, surface, tpl.parsed["stage"])
			}
		}
	}
}

func TestPickTemplate_UnknownSurfaceFallsBackToHTTP(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tpl := pickTemplate(rng, core.StageRecon, Surface("bluetooth"))
	if tpl.parsed["vector"] != "http" {
		t.Errorf("expected http fallback, got %v", tpl.parsed["vector"])
	}
}

func TestPickTemplate_UnknownStageFallsBackToRecon(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tpl := pickTemplate(rng, core.Stage("pivot"), SurfaceSSH)
	if tpl.parsed["stage"] != "recon" {
		t.Errorf("expected recon fallback, got %v", tpl.parsed["stage"])
	}
}

func TestPickTemplate_ParsedMapIsACopy(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := pickTemplate(rng, core.StageRecon, SurfaceSSH)
	a.parsed["stage"] = "tampered"

	for i := 0; i < 10; i++ {
		b := pickTemplate(rng, core.StageRecon, SurfaceSSH)
		if b.parsed["stage"] != "recon" {
			t.Fatal("mutating one pick must not leak into the templates")
		}
	}
}
