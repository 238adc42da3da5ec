package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/particles/gpu"
)

func texels(vs ...gpu.Texel) []float32 {
	out := make([]float32, len(vs)*gpu.Channels)
	for i, v := range vs {
		gpu.Put(out, i, v)
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestSummarizeState(t *testing.T) {
	pos := texels(
		gpu.Texel{3, 4, 0, 0},
		gpu.Texel{-3, -4, 0, 0},
		gpu.Texel{0, 0, 10, 0},
		gpu.Texel{0, 0, -10, 0},
	)
	vel := texels(
		gpu.Texel{1, 0, 0, 0},
		gpu.Texel{0, 2, 0, 0},
		gpu.Texel{0, 0, 3, 0},
		gpu.Texel{0, 0, 0, 0},
	)

	s := SummarizeState(42, pos, vel)
	if s.Tick != 42 || s.Particles != 4 {
		t.Errorf("unexpected tick/particles: %d/%d", s.Tick, s.Particles)
	}
	if !near(s.MeanRadius, 7.5) {
		t.Errorf("mean radius = %f, want 7.5", s.MeanRadius)
	}
	if !near(s.MaxRadius, 10) {
		t.Errorf("max radius = %f, want 10", s.MaxRadius)
	}
	if !near(s.CentroidX, 0) || !near(s.CentroidY, 0) || !near(s.CentroidZ, 0) {
		t.Errorf("centroid = (%f,%f,%f), want origin", s.CentroidX, s.CentroidY, s.CentroidZ)
	}
	if !near(s.MeanSpeed, 1.5) || !near(s.MaxSpeed, 3) {
		t.Errorf("speed mean/max = %f/%f, want 1.5/3", s.MeanSpeed, s.MaxSpeed)
	}
	if s.StdRadius <= 0 {
		t.Errorf("expected positive radius spread, got %f", s.StdRadius)
	}
}

func TestSummarizeStateSkipsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	pos := texels(gpu.Texel{1, 0, 0, 0}, gpu.Texel{nan, 0, 0, 0})

	s := SummarizeState(1, pos, nil)
	if s.NonFinite != 1 {
		t.Errorf("expected 1 non-finite particle, got %d", s.NonFinite)
	}
	if !near(s.MeanRadius, 1) || s.StdRadius != 0 {
		t.Errorf("expected stats over the finite particle only, got mean %f std %f", s.MeanRadius, s.StdRadius)
	}
	if s.MeanSpeed != 0 {
		t.Errorf("expected zero speed without velocity, got %f", s.MeanSpeed)
	}
}
