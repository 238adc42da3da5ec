// Package game hosts the particle engine: it owns the device, the window
// loop or headless loop, input, HUD and run telemetry.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/camera"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/gpu"
	"github.com/pthm-cable/particles/renderer"
	"github.com/pthm-cable/particles/sim"
	"github.com/pthm-cable/particles/softgpu"
	"github.com/pthm-cable/particles/telemetry"
	"github.com/pthm-cable/particles/ui"
)

// Options configures a Game.
type Options struct {
	Seed        int64
	LogStats    bool
	SnapshotDir string // PNG frames and state snapshots
	OutputDir   string // CSV logs and config snapshot
	ResumePath  string // state snapshot to resume from
	Headless    bool
}

// Game is the host driving the engine one frame at a time.
type Game struct {
	cfg    *config.Config
	dev    gpu.Device
	soft   *softgpu.Device // set in headless mode
	engine *sim.Engine

	perf   *telemetry.PerfCollector
	output *telemetry.OutputManager

	hud       *ui.HUD
	controls  *ui.ControlsPanel
	perfPanel *ui.PerfPanel

	seed          int64
	logStats      bool
	snapshotDir   string
	headless      bool
	paused        bool
	stepOnce      bool
	showHUD       bool
	ticksPerFrame int

	width, height int
}

// NewGameWithOptions builds the device, engine and telemetry. In
// graphical mode the raylib window must already be open. Any error is a
// startup failure the caller should treat as fatal.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()

	g := &Game{
		cfg:           cfg,
		seed:          opts.Seed,
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		headless:      opts.Headless,
		showHUD:       cfg.UI.ShowHUD,
		ticksPerFrame: cfg.Simulation.TicksPerFrame,
	}

	if opts.Headless {
		g.soft = softgpu.New(cfg.GPU.Workers, cfg.GPU.SoftFrameWidth, cfg.GPU.SoftFrameHeight)
		g.dev = g.soft
		g.width, g.height = cfg.GPU.SoftFrameWidth, cfg.GPU.SoftFrameHeight
	} else {
		g.dev = renderer.NewDevice()
		g.width, g.height = rl.GetScreenWidth(), rl.GetScreenHeight()
		g.hud = ui.NewHUD()
		g.controls = ui.NewControlsPanel(240, cfg.UI.ShowControls)
		g.perfPanel = ui.NewPerfPanel(10, 120, 300)
	}

	k, err := sim.LoadKernels(cfg.Kernels)
	if err != nil {
		g.dev.Close()
		return nil, err
	}

	initial, err := g.initialState(opts.ResumePath)
	if err != nil {
		g.dev.Close()
		return nil, err
	}

	cam := camera.New(cfg.Camera, g.width, g.height)
	g.engine, err = sim.New(g.dev, sim.OptionsFromConfig(cfg), k, initial, cam)
	if err != nil {
		g.dev.Close()
		return nil, err
	}

	g.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	g.engine.SetPerf(g.perf)

	g.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		g.Unload()
		return nil, err
	}
	if err := g.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	return g, nil
}

// initialState seeds from a snapshot when resuming, otherwise samples
// both axes inside their configured spheres.
func (g *Game) initialState(resume string) (sim.Seed, error) {
	if resume == "" {
		return sim.SphereSeed(rand.New(rand.NewSource(g.seed)), g.cfg), nil
	}
	snap, err := telemetry.LoadSnapshot(resume)
	if err != nil {
		return sim.Seed{}, err
	}
	if snap.GridSize != g.cfg.Simulation.GridSize {
		return sim.Seed{}, fmt.Errorf("snapshot grid %d does not match simulation.grid_size %d: %w",
			snap.GridSize, g.cfg.Simulation.GridSize, gpu.ErrSizeMismatch)
	}
	g.seed = snap.RNGSeed
	slog.Info("resuming from snapshot", "path", resume, "tick", snap.Tick)
	return sim.SnapshotSeed(snap), nil
}

func (g *Game) viewport() gpu.Viewport {
	return gpu.Viewport{Width: g.width, Height: g.height}
}

// Update handles input for the next frame.
func (g *Game) Update() {
	g.handleInput()
}

// step runs the ticks for one displayed frame, rendering only the last.
func (g *Game) step() error {
	if g.paused && !g.stepOnce {
		return g.engine.Render(g.viewport())
	}
	n := g.ticksPerFrame
	if g.paused {
		n = 1
		g.stepOnce = false
	}
	for i := 1; i < n; i++ {
		if err := g.engine.Advance(); err != nil {
			return err
		}
		g.flushTelemetry()
	}
	if err := g.engine.Tick(g.viewport()); err != nil {
		return err
	}
	g.flushTelemetry()
	return nil
}

// UpdateHeadless runs one tick on the software device.
func (g *Game) UpdateHeadless() error {
	if err := g.engine.Tick(g.viewport()); err != nil {
		return err
	}
	g.flushTelemetry()
	g.saveFrame()
	return nil
}

// Unload releases all resources.
func (g *Game) Unload() {
	if g.output != nil {
		if err := g.output.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}
	if g.engine != nil {
		g.engine.Close()
	}
	g.dev.Close()
}

// Tick returns the current simulation tick.
func (g *Game) Tick() uint64 {
	return g.engine.Ticks()
}
