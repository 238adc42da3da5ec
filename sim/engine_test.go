package sim

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/pthm-cable/particles/camera"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/gpu"
	"github.com/pthm-cable/particles/kernels"
	"github.com/pthm-cable/particles/seed"
	"github.com/pthm-cable/particles/softgpu"
	"github.com/pthm-cable/particles/telemetry"
)

var testViewport = gpu.Viewport{Width: 64, Height: 40}

func mustBuiltin(t *testing.T, kind kernels.Kind, name string) gpu.Source {
	t.Helper()
	src, err := kernels.Builtin(kind, name)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func testKernels(t *testing.T, position, velocity string) Kernels {
	return Kernels{
		Render:   mustBuiltin(t, kernels.Render, "render"),
		Position: mustBuiltin(t, kernels.Position, position),
		Velocity: mustBuiltin(t, kernels.Velocity, velocity),
	}
}

func testOptions(grid int) Options {
	return Options{
		GridSize:           grid,
		Geometry:           gpu.PointGeometry,
		EnableVelocityPass: true,
		CubeSize:           5,
	}
}

func newTestEngine(t *testing.T, opts Options, k Kernels, initial Seed) (*Engine, *softgpu.Device) {
	t.Helper()
	dev := softgpu.New(2, testViewport.Width, testViewport.Height)
	cam := camera.New(config.Defaults().Camera, testViewport.Width, testViewport.Height)
	e, err := New(dev, opts, k, initial, cam)
	if err != nil {
		dev.Close()
		t.Fatalf("creating engine: %v", err)
	}
	t.Cleanup(func() {
		e.Close()
		dev.Close()
	})
	return e, dev
}

func TestIdentityKernelsPreserveState(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	initial := Seed{
		Position: seed.Sphere(rng, 64, 100),
		Velocity: seed.Sphere(rng, 64, 5),
	}
	e, _ := newTestEngine(t, testOptions(8), testKernels(t, "identity", "identity"), initial)

	for i := 0; i < 10; i++ {
		if err := e.Tick(testViewport); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	pos, err := e.Position().Read()
	if err != nil {
		t.Fatal(err)
	}
	for i := range pos {
		if pos[i] != initial.Position[i] {
			t.Fatalf("float %d changed: got %f, want %f", i, pos[i], initial.Position[i])
		}
	}
	if e.Ticks() != 10 {
		t.Errorf("expected 10 ticks, got %d", e.Ticks())
	}
}

func TestDriftKernel(t *testing.T) {
	initial := Seed{Position: seed.Uniform(16, gpu.Texel{})}
	e, _ := newTestEngine(t, testOptions(4), testKernels(t, "drift", "identity"), initial)

	for i := 0; i < 5; i++ {
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}

	pos, _ := e.Position().Read()
	for i := 0; i < 16; i++ {
		got := gpu.At(pos, i)
		if got != (gpu.Texel{0, 0, 5, 0}) {
			t.Fatalf("particle %d: got %v, want (0,0,5,0)", i, got)
		}
	}
}

func TestDisabledVelocityPassLeavesVelocity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	initial := Seed{
		Position: seed.Sphere(rng, 16, 100),
		Velocity: seed.Uniform(16, gpu.Texel{1, 2, 3, 0}),
	}
	opts := testOptions(4)
	opts.EnableVelocityPass = false
	e, _ := newTestEngine(t, opts, testKernels(t, "integrate", "attract"), initial)

	for i := 0; i < 3; i++ {
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}

	vel, _ := e.Velocity().Read()
	for i := range vel {
		if vel[i] != initial.Velocity[i] {
			t.Fatalf("velocity float %d changed with pass disabled", i)
		}
	}
	if e.Velocity().Swaps() != 0 {
		t.Errorf("expected no velocity swaps, got %d", e.Velocity().Swaps())
	}

	// Position still integrates the constant velocity.
	pos, _ := e.Position().Read()
	for i := 0; i < 16; i++ {
		p := gpu.At(pos, i)
		p0 := gpu.At(initial.Position, i)
		want := gpu.Texel{p0[0] + 3, p0[1] + 6, p0[2] + 9, p0[3]}
		for c := 0; c < 3; c++ {
			if math.Abs(float64(p[c]-want[c])) > 1e-3 {
				t.Fatalf("particle %d: got %v, want %v", i, p, want)
			}
		}
	}
}

func TestPositionReadsFreshVelocity(t *testing.T) {
	initial := Seed{
		Position: seed.Uniform(4, gpu.Texel{}),
		Velocity: seed.Uniform(4, gpu.Texel{0, 0, 1, 0}),
	}
	k := testKernels(t, "integrate", "identity")
	k.Velocity = gpu.Source{
		Name: "velocity/double",
		Texel: func(in gpu.Samples, x, y int) gpu.Texel {
			return in.Fetch(kernels.VelocityTexture, x, y).Scale(2)
		},
		Reads: []string{kernels.VelocityTexture},
	}
	e, _ := newTestEngine(t, testOptions(2), k, initial)

	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	pos, _ := e.Position().Read()
	if got := gpu.At(pos, 0); got[2] != 2 {
		t.Errorf("expected z=2 from the updated velocity, got %v", got)
	}
}

func TestSwapCounts(t *testing.T) {
	e, _ := newTestEngine(t, testOptions(2), testKernels(t, "identity", "identity"), Seed{})

	for i := 0; i < 4; i++ {
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}
	e.SetVelocityPass(false)
	if err := e.Step(); err != nil {
		t.Fatal(err)
	}

	if got := e.Position().Swaps(); got != 5 {
		t.Errorf("expected 5 position swaps, got %d", got)
	}
	if got := e.Velocity().Swaps(); got != 4 {
		t.Errorf("expected 4 velocity swaps, got %d", got)
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func() []float32 {
		rng := rand.New(rand.NewSource(9))
		initial := Seed{
			Position: seed.Sphere(rng, 64, 100),
			Velocity: seed.Sphere(rng, 64, 5),
		}
		e, _ := newTestEngine(t, testOptions(8), testKernels(t, "integrate", "attract"), initial)
		for i := 0; i < 20; i++ {
			if err := e.Step(); err != nil {
				t.Fatal(err)
			}
		}
		pos, _ := e.Position().Read()
		return pos
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverge at float %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestDeviceErrorCadence(t *testing.T) {
	k := testKernels(t, "integrate", "identity")
	k.Velocity = gpu.Source{
		Name: "velocity/nan",
		Texel: func(in gpu.Samples, x, y int) gpu.Texel {
			return gpu.Texel{float32(math.NaN()), 0, 0, 0}
		},
		Reads: []string{kernels.VelocityTexture},
	}
	opts := testOptions(2)
	opts.ErrorCheckInterval = 3
	e, _ := newTestEngine(t, opts, k, Seed{})

	for i := 1; i <= 2; i++ {
		if err := e.Tick(testViewport); err != nil {
			t.Fatalf("tick %d: unexpected error before check: %v", i, err)
		}
	}

	err := e.Tick(testViewport)
	var rde *gpu.RuntimeDeviceError
	if !errors.As(err, &rde) {
		t.Fatalf("expected RuntimeDeviceError on tick 3, got %v", err)
	}
}

func TestNewFailsOnBadKernel(t *testing.T) {
	k := testKernels(t, "integrate", "attract")
	k.Position = gpu.Source{Name: "position/empty"}

	dev := softgpu.New(1, 16, 16)
	defer dev.Close()
	cam := camera.New(config.Defaults().Camera, 16, 16)

	_, err := New(dev, testOptions(2), k, Seed{}, cam)
	var sce *gpu.ShaderCompileError
	if !errors.As(err, &sce) {
		t.Fatalf("expected ShaderCompileError, got %v", err)
	}
	if !IsStartupError(err) {
		t.Error("compile failure should be a startup error")
	}
}

func TestNewRejectsBadSeed(t *testing.T) {
	dev := softgpu.New(1, 16, 16)
	defer dev.Close()
	cam := camera.New(config.Defaults().Camera, 16, 16)

	_, err := New(dev, testOptions(2), testKernels(t, "integrate", "attract"), Seed{Position: make([]float32, 5)}, cam)
	if !errors.Is(err, gpu.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestRenderDoesNotTouchState(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	initial := Seed{Position: seed.Sphere(rng, 16, 100)}
	e, dev := newTestEngine(t, testOptions(4), testKernels(t, "integrate", "attract"), initial)

	for _, mode := range []gpu.GeometryMode{gpu.PointGeometry, gpu.SolidGeometry} {
		e.SetGeometry(mode)
		if err := e.Render(testViewport); err != nil {
			t.Fatalf("render %s: %v", mode, err)
		}
	}
	if dev.Draws() != 2 {
		t.Errorf("expected 2 draws, got %d", dev.Draws())
	}
	if e.Ticks() != 0 || e.Position().Swaps() != 0 {
		t.Error("render advanced the simulation")
	}
	pos, _ := e.Position().Read()
	for i := range pos {
		if pos[i] != initial.Position[i] {
			t.Fatal("render modified position state")
		}
	}
}

func TestSummary(t *testing.T) {
	initial := Seed{
		Position: seed.Uniform(4, gpu.Texel{3, 4, 0, 0}),
		Velocity: seed.Uniform(4, gpu.Texel{0, 0, 2, 0}),
	}
	e, _ := newTestEngine(t, testOptions(2), testKernels(t, "identity", "identity"), initial)
	e.SetPerf(telemetry.NewPerfCollector(4))
	if err := e.Tick(testViewport); err != nil {
		t.Fatal(err)
	}

	s, err := e.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s.Particles != 4 || s.Tick != 1 {
		t.Errorf("unexpected summary header: %+v", s)
	}
	if math.Abs(s.MeanRadius-5) > 1e-4 || math.Abs(s.MeanSpeed-2) > 1e-4 {
		t.Errorf("expected radius 5 and speed 2, got %f / %f", s.MeanRadius, s.MeanSpeed)
	}
}

func TestSnapshotResume(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	initial := Seed{
		Position: seed.Sphere(rng, 16, 100),
		Velocity: seed.Sphere(rng, 16, 5),
	}
	k := testKernels(t, "integrate", "attract")

	// Straight run of 6 steps.
	straight, _ := newTestEngine(t, testOptions(4), k, initial)
	for i := 0; i < 6; i++ {
		if err := straight.Step(); err != nil {
			t.Fatal(err)
		}
	}

	// 3 steps, snapshot, resume in a fresh engine, 3 more.
	first, _ := newTestEngine(t, testOptions(4), k, initial)
	for i := 0; i < 3; i++ {
		if err := first.Step(); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := first.Snapshot(11)
	if err != nil {
		t.Fatal(err)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("snapshot invalid: %v", err)
	}
	resumed, _ := newTestEngine(t, testOptions(4), k, SnapshotSeed(snap))
	for i := 0; i < 3; i++ {
		if err := resumed.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if resumed.Ticks() != 6 {
		t.Errorf("expected resumed tick 6, got %d", resumed.Ticks())
	}
	want, _ := straight.Position().Read()
	got, _ := resumed.Position().Read()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resumed run diverges at float %d: %f vs %f", i, got[i], want[i])
		}
	}
}

func TestAdvanceSkipsRender(t *testing.T) {
	e, dev := newTestEngine(t, testOptions(2), testKernels(t, "drift", "identity"), Seed{})

	for i := 0; i < 3; i++ {
		if err := e.Advance(); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Tick(testViewport); err != nil {
		t.Fatal(err)
	}

	if e.Ticks() != 4 {
		t.Errorf("expected 4 ticks, got %d", e.Ticks())
	}
	if dev.Draws() != 1 {
		t.Errorf("expected 1 draw, got %d", dev.Draws())
	}
}

func TestPausedRenderLeavesTickTiming(t *testing.T) {
	e, _ := newTestEngine(t, testOptions(2), testKernels(t, "drift", "identity"), Seed{})
	perf := telemetry.NewPerfCollector(4)
	e.SetPerf(perf)

	if err := e.Tick(testViewport); err != nil {
		t.Fatal(err)
	}
	before := perf.Stats()

	for i := 0; i < 3; i++ {
		time.Sleep(5 * time.Millisecond)
		if err := e.Render(testViewport); err != nil {
			t.Fatal(err)
		}
	}

	after := perf.Stats()
	if after.PhasePct[telemetry.PhaseRender] != before.PhasePct[telemetry.PhaseRender] {
		t.Errorf("render share moved from %.1f%% to %.1f%% without a tick",
			before.PhasePct[telemetry.PhaseRender], after.PhasePct[telemetry.PhaseRender])
	}
	if after.PhasePct[telemetry.PhaseRender] > 100 {
		t.Errorf("render share exceeds tick: %.1f%%", after.PhasePct[telemetry.PhaseRender])
	}
}
