package telemetry

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/particles/gpu"
)

// StateSummary aggregates one readback of the position and velocity textures.
type StateSummary struct {
	Tick       uint64  `csv:"tick"`
	Particles  int     `csv:"particles"`
	NonFinite  int     `csv:"non_finite"`
	MeanRadius float64 `csv:"mean_radius"`
	StdRadius  float64 `csv:"std_radius"`
	MaxRadius  float64 `csv:"max_radius"`
	CentroidX  float64 `csv:"centroid_x"`
	CentroidY  float64 `csv:"centroid_y"`
	CentroidZ  float64 `csv:"centroid_z"`
	MeanSpeed  float64 `csv:"mean_speed"`
	MaxSpeed   float64 `csv:"max_speed"`
}

// norms returns the XYZ length of every finite texel and the count of
// texels skipped for NaN or Inf components.
func norms(texels []float32) ([]float64, int) {
	n := len(texels) / gpu.Channels
	out := make([]float64, 0, n)
	bad := 0
	for i := 0; i < n; i++ {
		xyz := texels[i*gpu.Channels : i*gpu.Channels+3]
		if !finite(xyz) {
			bad++
			continue
		}
		out = append(out, float64(blas32.Nrm2(blas32.Vector{N: 3, Inc: 1, Data: xyz})))
	}
	return out, bad
}

func finite(v []float32) bool {
	for _, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return false
		}
	}
	return true
}

// SummarizeState computes radius, centroid and speed statistics. velocity may be nil.
func SummarizeState(tick uint64, position, velocity []float32) StateSummary {
	s := StateSummary{Tick: tick, Particles: len(position) / gpu.Channels}

	radii, bad := norms(position)
	s.NonFinite = bad
	if len(radii) > 0 {
		s.MeanRadius, s.StdRadius = stat.MeanStdDev(radii, nil)
		s.MaxRadius = floats.Max(radii)
		if len(radii) == 1 {
			s.StdRadius = 0
		}

		var cx, cy, cz []float64
		for i := 0; i < s.Particles; i++ {
			p := gpu.At(position, i)
			if !finite(p[:3]) {
				continue
			}
			cx = append(cx, float64(p[0]))
			cy = append(cy, float64(p[1]))
			cz = append(cz, float64(p[2]))
		}
		s.CentroidX = stat.Mean(cx, nil)
		s.CentroidY = stat.Mean(cy, nil)
		s.CentroidZ = stat.Mean(cz, nil)
	}

	if velocity != nil {
		speeds, vbad := norms(velocity)
		s.NonFinite += vbad
		if len(speeds) > 0 {
			s.MeanSpeed = stat.Mean(speeds, nil)
			s.MaxSpeed = floats.Max(speeds)
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s StateSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("tick", s.Tick),
		slog.Int("particles", s.Particles),
		slog.Int("non_finite", s.NonFinite),
		slog.Float64("mean_radius", s.MeanRadius),
		slog.Float64("max_radius", s.MaxRadius),
		slog.Float64("mean_speed", s.MeanSpeed),
		slog.Float64("max_speed", s.MaxSpeed),
	)
}
