package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/game"
	"github.com/pthm-cable/particles/renderer"
	"github.com/pthm-cable/particles/sim"
)

func init() {
	// GL calls must stay on the thread that created the context.
	runtime.LockOSThread()
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run on the software device without a window")
	logStats := flag.Bool("log-stats", false, "Output perf and state summaries via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for PNG frames and state snapshots")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	resume := flag.String("resume", "", "State snapshot to resume from")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	gridSize := flag.Int("grid-size", 0, "Override simulation.grid_size (0 = use config)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *gridSize > 0 {
		cfg.Simulation.GridSize = *gridSize
		if err := cfg.Refresh(); err != nil {
			slog.Error("invalid -grid-size", "error", err)
			os.Exit(1)
		}
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.Options{
		Seed:        rngSeed,
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
		OutputDir:   *outputDir,
		ResumePath:  *resume,
		Headless:    *headless,
	}

	if *headless {
		runHeadless(opts, *maxTicks)
	} else {
		runWindowed(cfg, opts, *maxTicks)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err, "startup", sim.IsStartupError(err))
	os.Exit(1)
}

func runHeadless(opts game.Options, maxTicks int) {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		fatal("failed to start simulation", err)
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"seed", opts.Seed,
		"max_ticks", maxTicks,
		"particles", config.Cfg().Derived.ParticleCount,
	)

	for {
		if err := g.UpdateHeadless(); err != nil {
			g.Unload()
			fatal("simulation failed", err)
		}
		if maxTicks > 0 && g.Tick() >= uint64(maxTicks) {
			slog.Info("max ticks reached", "tick", g.Tick())
			g.Finish()
			return
		}
	}
}

func runWindowed(cfg *config.Config, opts game.Options, maxTicks int) {
	renderer.InstallLogBridge(slog.Default())

	var flags uint32
	if cfg.Screen.Resizable {
		flags |= rl.FlagWindowResizable
	}
	if cfg.Screen.VSync {
		flags |= rl.FlagVsyncHint
	}
	rl.SetConfigFlags(flags)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		rl.CloseWindow()
		fatal("failed to start simulation", err)
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		if err := g.Draw(); err != nil {
			g.Unload()
			rl.CloseWindow()
			fatal("simulation failed", err)
		}

		if maxTicks > 0 && g.Tick() >= uint64(maxTicks) {
			break
		}
	}
	g.Finish()
}
