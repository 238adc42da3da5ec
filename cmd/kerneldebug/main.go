// Kernel debug tool - runs one state kernel on the GPU and on the software
// device from the same seed, reports the largest difference and dumps the
// GPU result to CSV.
//
// Usage: go run ./cmd/kerneldebug -kind velocity -kernel attract -grid 16 -out texels.csv
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/gpu"
	"github.com/pthm-cable/particles/kernels"
	"github.com/pthm-cable/particles/renderer"
	"github.com/pthm-cable/particles/seed"
	"github.com/pthm-cable/particles/sim"
	"github.com/pthm-cable/particles/softgpu"
	"github.com/pthm-cable/particles/state"
)

func init() {
	runtime.LockOSThread()
}

// texelRow is one particle of the dumped state.
type texelRow struct {
	Index int     `csv:"index"`
	X     float32 `csv:"x"`
	Y     float32 `csv:"y"`
	Z     float32 `csv:"z"`
	W     float32 `csv:"w"`
	Diff  float32 `csv:"max_abs_diff"`
}

func parseKind(s string) (kernels.Kind, error) {
	switch s {
	case "position":
		return kernels.Position, nil
	case "velocity":
		return kernels.Velocity, nil
	}
	return 0, fmt.Errorf("kind must be position or velocity, got %q", s)
}

// runKernel seeds both axes on dev and runs src once into the axis it updates.
func runKernel(dev gpu.Device, kind kernels.Kind, src gpu.Source, grid int, pos, vel []float32) ([]float32, error) {
	prog, err := gpu.Build(dev, src, kind.Inputs(), kind.Outputs())
	if err != nil {
		return nil, err
	}
	defer prog.Release(dev)

	p, err := state.New(dev, "position", grid, pos)
	if err != nil {
		return nil, err
	}
	defer p.Release()
	v, err := state.New(dev, "velocity", grid, vel)
	if err != nil {
		return nil, err
	}
	defer v.Release()

	out := p
	if kind == kernels.Velocity {
		out = v
	}
	pass := sim.NewUpdatePass(dev, grid)
	err = pass.Run(prog, out.Target(), []gpu.Binding{
		{Slot: kernels.PositionTexture, Texture: p.Current()},
		{Slot: kernels.VelocityTexture, Texture: v.Current()},
	})
	if err != nil {
		return nil, err
	}
	out.Swap()
	if err := dev.CheckError(); err != nil {
		return nil, err
	}
	return out.Read()
}

func main() {
	kindName := flag.String("kind", "velocity", "Kernel kind: position or velocity")
	name := flag.String("kernel", "attract", "Built-in kernel name")
	vsPath := flag.String("vs", "", "Vertex shader file (overrides -kernel)")
	fsPath := flag.String("fs", "", "Fragment shader file (overrides -kernel)")
	grid := flag.Int("grid", 16, "State texture edge length")
	rngSeed := flag.Int64("seed", 1, "RNG seed")
	outPath := flag.String("out", "", "CSV output path (empty = no dump)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	kind, err := parseKind(*kindName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slot := config.KernelSlot{Builtin: *name}
	if *vsPath != "" || *fsPath != "" {
		slot = config.KernelSlot{Vertex: *vsPath, Fragment: *fsPath}
	}
	src, err := kernels.Load(kind, slot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load kernel: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*rngSeed))
	n := *grid * *grid
	pos := seed.Sphere(rng, n, 100)
	vel := seed.Sphere(rng, n, 5)

	// Initialize raylib with hidden window
	renderer.InstallLogBridge(slog.Default())
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(256, 256, "Kernel Debug")
	defer rl.CloseWindow()

	dev := renderer.NewDevice()
	defer dev.Close()

	got, err := runKernel(dev, kind, src, *grid, pos, vel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "GPU run failed: %v\n", err)
		os.Exit(1)
	}

	var want []float32
	if src.Texel != nil {
		soft := softgpu.New(0, 1, 1)
		defer soft.Close()
		want, err = runKernel(soft, kind, src, *grid, pos, vel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Software run failed: %v\n", err)
			os.Exit(1)
		}
	}

	rows := make([]texelRow, n)
	var worst float32
	for i := range rows {
		t := gpu.At(got, i)
		rows[i] = texelRow{Index: i, X: t[0], Y: t[1], Z: t[2], W: t[3]}
		if want != nil {
			w := gpu.At(want, i)
			for c := range t {
				rows[i].Diff = max(rows[i].Diff, float32(math.Abs(float64(t[c]-w[c]))))
			}
			worst = max(worst, rows[i].Diff)
		}
	}

	if want != nil {
		fmt.Printf("%s: %d texels, max |gpu - soft| = %g\n", src.Name, n, worst)
	} else {
		fmt.Printf("%s: %d texels (no software reference for file kernels)\n", src.Name, n)
	}

	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *outPath, err)
			os.Exit(1)
		}
		defer f.Close()
		if err := gocsv.MarshalFile(&rows, f); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Texels written to: %s\n", *outPath)
	}
}
