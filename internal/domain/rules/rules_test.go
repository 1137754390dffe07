package rules

import (
	"math/rand"
	"testing"
	"time"
)

func TestPerturbStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, spec := range DefaultVitals() {
		if err := spec.Validate(); err != nil {
			t.Fatalf("Default vital %s invalid: %v", spec.Name, err)
		}
		s := spec.NewSample()
		for i := 0; i < 10000; i++ {
			s = Perturb(s, spec.Jitter, rng.Float64())
			if s.Value < spec.Min || s.Value > spec.Max {
				t.Fatalf("%s left range after %d ticks: %.3f", spec.Name, i, s.Value)
			}
		}
	}
}

func TestPerturbDeltaBounds(t *testing.T) {
	s := Sample{Value: 50, Min: 0, Max: 100}
	if got := Perturb(s, 2, 0).Value; got != 48 {
		t.Errorf("Expected -jitter at u=0, got %.2f", got)
	}
	if got := Perturb(s, 2, 0.5).Value; got != 50 {
		t.Errorf("Expected no change at u=0.5, got %.2f", got)
	}
	if got := Perturb(Sample{Value: 99.5, Min: 0, Max: 100}, 2, 0.999).Value; got != 100 {
		t.Errorf("Expected clamp at max, got %.2f", got)
	}
}

func TestVitalSpecValidate(t *testing.T) {
	bad := []VitalSpec{
		{Name: "", Min: 0, Max: 1, Interval: time.Second},
		{Name: "x", Min: 2, Max: 1, Initial: 1, Interval: time.Second},
		{Name: "x", Min: 0, Max: 1, Initial: 5, Interval: time.Second},
		{Name: "x", Min: 0, Max: 1, Jitter: -1, Interval: time.Second},
		{Name: "x", Min: 0, Max: 1},
	}
	for i, v := range bad {
		if err := v.Validate(); err == nil {
			t.Errorf("Case %d: expected error for %+v", i, v)
		}
	}
}

func TestBrewingWindowProgress(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }

	tests := []struct {
		t    time.Time
		want float64
	}{
		{at(12, 0), 0},
		{at(20, 0), 0},
		{at(22, 0), 25},
		{at(0, 0), 50},
		{at(3, 0), 87.5},
		{at(4, 0), 0},
	}
	for _, tt := range tests {
		if got := BrewingWindowProgress(tt.t); got != tt.want {
			t.Errorf("At %s: expected %.1f, got %.1f", tt.t.Format("15:04"), tt.want, got)
		}
	}
}

func TestFormatSleepDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m 0s"},
		{75 * time.Second, "1m 15s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{-time.Second, "0m 0s"},
	}
	for _, tt := range tests {
		if got := FormatSleepDuration(tt.d); got != tt.want {
			t.Errorf("FormatSleepDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
