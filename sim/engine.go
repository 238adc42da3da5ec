package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/particles/camera"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/gpu"
	"github.com/pthm-cable/particles/kernels"
	"github.com/pthm-cable/particles/seed"
	"github.com/pthm-cable/particles/state"
	"github.com/pthm-cable/particles/telemetry"
)

// Options configures an Engine.
type Options struct {
	GridSize           int
	Geometry           gpu.GeometryMode
	EnableVelocityPass bool
	CubeSize           float32
	// ErrorCheckInterval is the tick cadence of device error polls (0 = never).
	ErrorCheckInterval int
}

// OptionsFromConfig extracts engine options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	// Load has already validated the mode.
	mode, err := gpu.ParseGeometryMode(cfg.Simulation.GeometryMode)
	if err != nil {
		mode = gpu.PointGeometry
	}
	return Options{
		GridSize:           cfg.Simulation.GridSize,
		Geometry:           mode,
		EnableVelocityPass: cfg.Simulation.EnableVelocityPass,
		CubeSize:           float32(cfg.Simulation.CubeSize),
		ErrorCheckInterval: cfg.GPU.ErrorCheckInterval,
	}
}

// Kernels are the three injected kernel sources.
type Kernels struct {
	Render   gpu.Source
	Position gpu.Source
	Velocity gpu.Source
}

// LoadKernels resolves the configured kernel slots.
func LoadKernels(cfg config.KernelsConfig) (Kernels, error) {
	var k Kernels
	var err error
	if k.Render, err = kernels.Load(kernels.Render, cfg.Render); err != nil {
		return k, err
	}
	if k.Position, err = kernels.Load(kernels.Position, cfg.Position); err != nil {
		return k, err
	}
	if k.Velocity, err = kernels.Load(kernels.Velocity, cfg.Velocity); err != nil {
		return k, err
	}
	return k, nil
}

// Seed is the initial texel data for both state axes. Nil zero-fills.
type Seed struct {
	Position []float32
	Velocity []float32
	// Tick the run resumes from; zero for a fresh run.
	Tick uint64
}

// SnapshotSeed resumes from a saved snapshot.
func SnapshotSeed(s *telemetry.Snapshot) Seed {
	return Seed{Position: s.Position, Velocity: s.Velocity, Tick: s.Tick}
}

// SphereSeed samples positions and velocities uniformly inside spheres of
// the configured radii.
func SphereSeed(rng *rand.Rand, cfg *config.Config) Seed {
	n := cfg.Derived.ParticleCount
	return Seed{
		Position: seed.Sphere(rng, n, cfg.Simulation.PositionSphereRadius),
		Velocity: seed.Sphere(rng, n, cfg.Simulation.VelocitySphereRadius),
	}
}

// Engine owns the state buffers, kernel programs and passes, and advances
// the simulation one tick at a time. It is driven by a host loop and never
// schedules itself.
type Engine struct {
	dev  gpu.Device
	cam  *camera.Camera
	perf *telemetry.PerfCollector

	position *state.DoubleBuffer
	velocity *state.DoubleBuffer

	renderProg   *gpu.Program
	positionProg *gpu.Program
	velocityProg *gpu.Program

	update *UpdatePass
	render *RenderPass

	kernelNames   [3]string
	geometry      gpu.GeometryMode
	velocityPass  bool
	checkInterval int
	ticks         uint64
}

// New builds every kernel, allocates and seeds both state axes and uploads
// geometry. Any failure is fatal for the caller; partially created
// resources are released.
func New(dev gpu.Device, opts Options, k Kernels, initial Seed, cam *camera.Camera) (e *Engine, err error) {
	if opts.GridSize < 1 {
		return nil, fmt.Errorf("grid size must be positive, got %d", opts.GridSize)
	}

	e = &Engine{
		dev:           dev,
		cam:           cam,
		geometry:      opts.Geometry,
		velocityPass:  opts.EnableVelocityPass,
		checkInterval: opts.ErrorCheckInterval,
		ticks:         initial.Tick,
		kernelNames:   [3]string{k.Render.Name, k.Position.Name, k.Velocity.Name},
		update:        NewUpdatePass(dev, opts.GridSize),
	}
	defer func() {
		if err != nil {
			e.Close()
			e = nil
		}
	}()

	build := func(kind kernels.Kind, src gpu.Source) (*gpu.Program, error) {
		p, err := gpu.Build(dev, src, kind.Inputs(), kind.Outputs())
		if err != nil {
			return nil, fmt.Errorf("building %s kernel: %w", kind, err)
		}
		return p, nil
	}
	if e.renderProg, err = build(kernels.Render, k.Render); err != nil {
		return e, err
	}
	if e.positionProg, err = build(kernels.Position, k.Position); err != nil {
		return e, err
	}
	if e.velocityProg, err = build(kernels.Velocity, k.Velocity); err != nil {
		return e, err
	}

	if e.position, err = state.New(dev, "position", opts.GridSize, initial.Position); err != nil {
		return e, err
	}
	if e.velocity, err = state.New(dev, "velocity", opts.GridSize, initial.Velocity); err != nil {
		return e, err
	}

	if e.render, err = NewRenderPass(dev, opts.GridSize*opts.GridSize, opts.CubeSize); err != nil {
		return e, err
	}

	slog.Info("engine ready",
		"particles", opts.GridSize*opts.GridSize,
		"geometry", opts.Geometry.String(),
		"velocity_pass", opts.EnableVelocityPass,
		"render_kernel", k.Render.Name,
		"position_kernel", k.Position.Name,
		"velocity_kernel", k.Velocity.Name,
	)
	return e, nil
}

// SetPerf attaches a perf collector. Nil disables timing.
func (e *Engine) SetPerf(p *telemetry.PerfCollector) { e.perf = p }

// Step runs the update passes of one tick: velocity then position, each
// followed by a swap. Position integrates the freshly swapped velocity.
func (e *Engine) Step() error {
	if e.velocityPass {
		e.perf.StartPhase(telemetry.PhaseVelocityUpdate)
		err := e.update.Run(e.velocityProg, e.velocity.Target(), []gpu.Binding{
			{Slot: kernels.PositionTexture, Texture: e.position.Current()},
			{Slot: kernels.VelocityTexture, Texture: e.velocity.Current()},
		})
		if err != nil {
			return fmt.Errorf("velocity update: %w", err)
		}
		e.velocity.Swap()
	}

	e.perf.StartPhase(telemetry.PhasePositionUpdate)
	err := e.update.Run(e.positionProg, e.position.Target(), []gpu.Binding{
		{Slot: kernels.PositionTexture, Texture: e.position.Current()},
		{Slot: kernels.VelocityTexture, Texture: e.velocity.Current()},
	})
	if err != nil {
		return fmt.Errorf("position update: %w", err)
	}
	e.position.Swap()

	e.ticks++
	return nil
}

// Render draws the current position state without advancing it.
func (e *Engine) Render(vp gpu.Viewport) error {
	e.perf.StartPhase(telemetry.PhaseRender)
	if e.cam.Resize(vp.Width, vp.Height) {
		slog.Debug("projection recomputed", "width", vp.Width, "height", vp.Height)
	}
	if err := e.render.Render(e.renderProg, e.position.Current(), e.cam, e.geometry, vp); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Tick advances one step and renders the result. Every ErrorCheckInterval
// ticks the device is polled and a pending fault is returned.
func (e *Engine) Tick(vp gpu.Viewport) error {
	return e.tick(&vp)
}

// Advance runs one tick without rendering, for hosts that display only
// the last of several ticks per frame.
func (e *Engine) Advance() error {
	return e.tick(nil)
}

func (e *Engine) tick(vp *gpu.Viewport) error {
	e.perf.StartTick()
	defer e.perf.EndTick()

	if err := e.Step(); err != nil {
		return err
	}
	if vp != nil {
		if err := e.Render(*vp); err != nil {
			return err
		}
	}
	return e.checkDevice()
}

func (e *Engine) checkDevice() error {
	if e.checkInterval <= 0 || e.ticks%uint64(e.checkInterval) != 0 {
		return nil
	}
	e.perf.StartPhase(telemetry.PhaseDeviceCheck)
	if err := e.dev.CheckError(); err != nil {
		return fmt.Errorf("tick %d: %w", e.ticks, err)
	}
	return nil
}

// Ticks returns the number of completed steps.
func (e *Engine) Ticks() uint64 { return e.ticks }

// Position returns the position state buffer.
func (e *Engine) Position() *state.DoubleBuffer { return e.position }

// Velocity returns the velocity state buffer.
func (e *Engine) Velocity() *state.DoubleBuffer { return e.velocity }

// Camera returns the render camera.
func (e *Engine) Camera() *camera.Camera { return e.cam }

// Geometry returns the current render geometry mode.
func (e *Engine) Geometry() gpu.GeometryMode { return e.geometry }

// SetGeometry switches between point and solid rendering.
func (e *Engine) SetGeometry(mode gpu.GeometryMode) { e.geometry = mode }

// VelocityPass reports whether the velocity update runs each step.
func (e *Engine) VelocityPass() bool { return e.velocityPass }

// SetVelocityPass enables or disables the velocity update.
func (e *Engine) SetVelocityPass(on bool) { e.velocityPass = on }

// KernelNames returns the render, position and velocity kernel names.
func (e *Engine) KernelNames() [3]string { return e.kernelNames }

// Snapshot reads back both axes into a resumable snapshot.
func (e *Engine) Snapshot(rngSeed int64) (*telemetry.Snapshot, error) {
	pos, err := e.position.Read()
	if err != nil {
		return nil, fmt.Errorf("reading position: %w", err)
	}
	vel, err := e.velocity.Read()
	if err != nil {
		return nil, fmt.Errorf("reading velocity: %w", err)
	}
	return &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		RNGSeed:  rngSeed,
		Tick:     e.ticks,
		GridSize: e.position.Size(),
		Kernels:  e.kernelNames,
		Position: pos,
		Velocity: vel,
	}, nil
}

// Summary reads back both axes and aggregates them.
func (e *Engine) Summary() (telemetry.StateSummary, error) {
	pos, err := e.position.Read()
	if err != nil {
		return telemetry.StateSummary{}, fmt.Errorf("reading position: %w", err)
	}
	vel, err := e.velocity.Read()
	if err != nil {
		return telemetry.StateSummary{}, fmt.Errorf("reading velocity: %w", err)
	}
	return telemetry.SummarizeState(e.ticks, pos, vel), nil
}

// Close releases state textures and programs.
func (e *Engine) Close() {
	for _, b := range []*state.DoubleBuffer{e.position, e.velocity} {
		if b != nil {
			b.Release()
		}
	}
	for _, p := range []*gpu.Program{e.renderProg, e.positionProg, e.velocityProg} {
		if p != nil {
			p.Release(e.dev)
		}
	}
}

// IsStartupError reports whether err is one of the fatal setup failures.
func IsStartupError(err error) bool {
	var sce *gpu.ShaderCompileError
	var ple *gpu.ProgramLinkError
	var rce *gpu.ResourceCreationError
	return errors.As(err, &sce) || errors.As(err, &ple) || errors.As(err, &rce)
}
