package seed

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/particles/gpu"
)

func TestPointInSphereStaysInside(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const r = 100.0
	for i := 0; i < 10000; i++ {
		x, y, z := PointInSphere(rng, r)
		if d := math.Sqrt(x*x + y*y + z*z); d > r*(1+1e-9) {
			t.Fatalf("sample %d at distance %f exceeds radius %f", i, d, r)
		}
	}
}

// radialCDF returns sorted (d/R)^3 for n samples; uniform in volume means
// these are uniform on [0, 1].
func radialCDF(n int, r float64, sample func() (float64, float64, float64)) []float64 {
	out := make([]float64, n)
	for i := range out {
		x, y, z := sample()
		d := math.Sqrt(x*x+y*y+z*z) / r
		out[i] = d * d * d
	}
	sort.Float64s(out)
	return out
}

func uniformGrid(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (float64(i) + 0.5) / float64(n)
	}
	return out
}

func TestPointInSphereVolumetricUniformity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 20000
	const r = 5.0

	got := radialCDF(n, r, func() (float64, float64, float64) { return PointInSphere(rng, r) })
	ks := stat.KolmogorovSmirnov(got, nil, uniformGrid(n), nil)
	if ks > 0.03 {
		t.Errorf("radial distribution not volumetric: KS distance %.4f", ks)
	}

	// A linear-in-radius sampler piles points at the centre and must be rejected.
	naive := radialCDF(n, r, func() (float64, float64, float64) {
		x, y, z := PointInSphere(rng, 1)
		d := math.Sqrt(x*x + y*y + z*z)
		if d == 0 {
			return 0, 0, 0
		}
		s := r * rng.Float64() / d
		return x * s, y * s, z * s
	})
	if ks := stat.KolmogorovSmirnov(naive, nil, uniformGrid(n), nil); ks < 0.1 {
		t.Errorf("test cannot distinguish a radially biased sampler: KS %.4f", ks)
	}
}

func TestPointInSphereIsCentred(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const n = 20000
	xs := make([]float64, n)
	zs := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i], _, zs[i] = PointInSphere(rng, 1)
	}
	if m := stat.Mean(xs, nil); math.Abs(m) > 0.02 {
		t.Errorf("mean x = %f, expected near 0", m)
	}
	if m := stat.Mean(zs, nil); math.Abs(m) > 0.02 {
		t.Errorf("mean z = %f, expected near 0", m)
	}
}

func TestSphereReservedChannelZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	texels := Sphere(rng, 64, 100)
	if len(texels) != 64*gpu.Channels {
		t.Fatalf("expected %d floats, got %d", 64*gpu.Channels, len(texels))
	}
	for i := 0; i < 64; i++ {
		if w := gpu.At(texels, i)[3]; w != 0 {
			t.Errorf("particle %d: w = %f, want 0", i, w)
		}
	}
}

func TestSphereDeterministicForSeed(t *testing.T) {
	a := Sphere(rand.New(rand.NewSource(99)), 16, 10)
	b := Sphere(rand.New(rand.NewSource(99)), 16, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("float %d differs: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestUniform(t *testing.T) {
	v := gpu.Texel{0, 0, 1, 0}
	texels := Uniform(5, v)
	for i := 0; i < 5; i++ {
		if got := gpu.At(texels, i); got != v {
			t.Errorf("particle %d = %v, want %v", i, got, v)
		}
	}
}

func TestPointsGeometry(t *testing.T) {
	g := Points(10)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if g.VertexCount() != 10 {
		t.Errorf("expected 10 vertices, got %d", g.VertexCount())
	}
	for i, idx := range g.Indices {
		if int(idx) != i {
			t.Errorf("vertex %d carries index %v", i, idx)
		}
	}
	for _, o := range g.Offsets {
		if o != 0 {
			t.Fatal("point geometry must have zero offsets")
		}
	}
}

func TestCubeGeometry(t *testing.T) {
	const n = 3
	const size = 5
	g := Cube(n, size)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if g.VertexCount() != n*CubeVertices {
		t.Fatalf("expected %d vertices, got %d", n*CubeVertices, g.VertexCount())
	}

	for p := 0; p < n; p++ {
		var sum [3]float32
		for v := 0; v < CubeVertices; v++ {
			k := p*CubeVertices + v
			if int(g.Indices[k]) != p {
				t.Fatalf("vertex %d of particle %d tagged %v", v, p, g.Indices[k])
			}
			for c := 0; c < 3; c++ {
				o := g.Offsets[3*k+c]
				if o != size/2 && o != -size/2 {
					t.Fatalf("offset component %f is not a cube corner", o)
				}
				sum[c] += o
			}
		}
		// Every face is balanced by its opposite face.
		if sum != [3]float32{} {
			t.Errorf("particle %d: cube not centred, offset sum %v", p, sum)
		}
	}
}

func TestGeometrySelectsMode(t *testing.T) {
	if g := Geometry(gpu.PointGeometry, 4, 5); g.Mode != gpu.PointGeometry || g.VertexCount() != 4 {
		t.Errorf("point geometry: mode %v, %d vertices", g.Mode, g.VertexCount())
	}
	if g := Geometry(gpu.SolidGeometry, 4, 5); g.Mode != gpu.SolidGeometry || g.VertexCount() != 4*CubeVertices {
		t.Errorf("solid geometry: mode %v, %d vertices", g.Mode, g.VertexCount())
	}
}
