// Package rules contains the pure calculation logic for session mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"fmt"
	"math"
	"time"
)

// VitalSpec configures one simulated metric.
type VitalSpec struct {
	Name     string        `json:"name" yaml:"name"`
	Unit     string        `json:"unit" yaml:"unit"`
	Initial  float64       `json:"initial" yaml:"initial"`
	Min      float64       `json:"min" yaml:"min"`
	Max      float64       `json:"max" yaml:"max"`
	Jitter   float64       `json:"jitter" yaml:"jitter"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// Validate rejects ranges a sample could not stay inside.
func (v VitalSpec) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("vital: empty name")
	}
	if v.Min > v.Max {
		return fmt.Errorf("vital %s: min %.2f above max %.2f", v.Name, v.Min, v.Max)
	}
	if v.Initial < v.Min || v.Initial > v.Max {
		return fmt.Errorf("vital %s: initial %.2f outside [%.2f, %.2f]", v.Name, v.Initial, v.Min, v.Max)
	}
	if v.Jitter < 0 {
		return fmt.Errorf("vital %s: negative jitter", v.Name)
	}
	if v.Interval <= 0 {
		return fmt.Errorf("vital %s: interval must be positive", v.Name)
	}
	return nil
}

// Sample is the current value of a metric.
type Sample struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// NewSample returns the sample in its initial state.
func (v VitalSpec) NewSample() Sample {
	return Sample{Name: v.Name, Unit: v.Unit, Value: v.Initial, Min: v.Min, Max: v.Max}
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Perturb shifts the sample by a delta in [-jitter, +jitter] derived from
// u, a uniform draw in [0, 1), and clamps the result.
func Perturb(s Sample, jitter, u float64) Sample {
	delta := u*2*jitter - jitter
	s.Value = Clamp(s.Value+delta, s.Min, s.Max)
	return s
}

// DefaultVitals returns the sprite's heart rate and temperature.
func DefaultVitals() []VitalSpec {
	return []VitalSpec{
		{Name: "heart_rate", Unit: "bpm", Initial: 68, Min: 55, Max: 75, Jitter: 2, Interval: 2 * time.Second},
		{Name: "temperature", Unit: "°C", Initial: 36.8, Min: 36.5, Max: 37.5, Jitter: 0.1, Interval: 3 * time.Second},
	}
}
