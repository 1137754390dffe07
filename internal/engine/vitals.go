package engine

import (
	"math/rand"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/rules"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
)

// VitalsSimulator jitters the sprite's cosmetic vitals while it sleeps.
// Each metric ticks on its own interval.
type VitalsSimulator struct {
	specs   []rules.VitalSpec
	samples []rules.Sample
	rng     *rand.Rand
	rec     *recorder
}

// NewVitalsSimulator creates a simulator drawing deltas from rng.
func NewVitalsSimulator(specs []rules.VitalSpec, rng *rand.Rand, rec *recorder) *VitalsSimulator {
	v := &VitalsSimulator{specs: specs, rng: rng, rec: rec}
	v.reset()
	return v
}

func (v *VitalsSimulator) reset() {
	v.samples = make([]rules.Sample, len(v.specs))
	for i, spec := range v.specs {
		v.samples[i] = spec.NewSample()
	}
}

// Start restores initial values and schedules one repeating tick per metric.
func (v *VitalsSimulator) Start(scope *Scope) {
	v.reset()
	for i, spec := range v.specs {
		scope.Every(spec.Interval, func() {
			v.tick(i)
		})
	}
}

func (v *VitalsSimulator) tick(i int) {
	v.samples[i] = rules.Perturb(v.samples[i], v.specs[i].Jitter, v.rng.Float64())
	v.rec.record(events.EventTypeVitalSampled, events.SystemActor, v.samples[i])
}

// Samples returns the current values.
func (v *VitalsSimulator) Samples() []rules.Sample {
	out := make([]rules.Sample, len(v.samples))
	copy(out, v.samples)
	return out
}
