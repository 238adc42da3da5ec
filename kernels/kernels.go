// Package kernels ships the built-in particle kernels. Each is GLSL for the
// raylib device plus an equivalent texel function for the software device.
package kernels

import (
	"embed"
	"fmt"
	"os"
	"slices"

	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/gpu"
)

//go:embed shaders/*.vs shaders/*.fs
var shaderFS embed.FS

// Slot names shared by every kernel.
const (
	PositionTexture = "positionTexture"
	VelocityTexture = "velocityTexture"
	Perspective     = "perspective"
	LookAt          = "lookAt"
	FinalColor      = "finalColor"
)

// Kind is one of the three kernel slots.
type Kind int

const (
	Render Kind = iota
	Position
	Velocity
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Position:
		return "position"
	case Velocity:
		return "velocity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Inputs returns the input slots a kernel of kind k is built with.
func (k Kind) Inputs() []string {
	if k == Render {
		return []string{PositionTexture, Perspective, LookAt}
	}
	return []string{PositionTexture, VelocityTexture}
}

// Outputs returns the output slots a kernel of kind k is built with.
func (k Kind) Outputs() []string {
	return []string{FinalColor}
}

// Texel kernel constants, kept in step with the GLSL.
const (
	attractPull = 0.0005
	dampKeep    = 0.98
)

type builtin struct {
	vertex   string
	fragment string
	texel    gpu.TexelFunc
	reads    []string
}

var builtins = map[Kind]map[string]builtin{
	Render: {
		"render": {vertex: "render.vs", fragment: "render.fs"},
	},
	Position: {
		"integrate": {"update.vs", "integrate.fs", integrate, []string{PositionTexture, VelocityTexture}},
		"drift":     {"update.vs", "drift.fs", drift, []string{PositionTexture}},
		"identity":  {"update.vs", "identity_position.fs", identity(PositionTexture), []string{PositionTexture}},
	},
	Velocity: {
		"attract":  {"update.vs", "attract.fs", attract, []string{PositionTexture, VelocityTexture}},
		"damp":     {"update.vs", "damp.fs", damp, []string{VelocityTexture}},
		"identity": {"update.vs", "identity_velocity.fs", identity(VelocityTexture), []string{VelocityTexture}},
	},
}

// Names lists the built-in kernels for kind in sorted order.
func Names(kind Kind) []string {
	var names []string
	for name := range builtins[kind] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Builtin returns the named built-in kernel for kind.
func Builtin(kind Kind, name string) (gpu.Source, error) {
	b, ok := builtins[kind][name]
	if !ok {
		return gpu.Source{}, fmt.Errorf("no built-in %s kernel %q (have %v)", kind, name, Names(kind))
	}
	vs, err := shaderFS.ReadFile("shaders/" + b.vertex)
	if err != nil {
		return gpu.Source{}, err
	}
	fs, err := shaderFS.ReadFile("shaders/" + b.fragment)
	if err != nil {
		return gpu.Source{}, err
	}
	return gpu.Source{
		Name:     kind.String() + "/" + name,
		Vertex:   string(vs),
		Fragment: string(fs),
		Texel:    b.texel,
		Reads:    b.reads,
	}, nil
}

// Load resolves a configured kernel slot: a built-in name, or a pair of
// GLSL files. File kernels carry no texel function and only run on the
// raylib device.
func Load(kind Kind, slot config.KernelSlot) (gpu.Source, error) {
	if slot.Builtin != "" {
		return Builtin(kind, slot.Builtin)
	}
	vs, err := os.ReadFile(slot.Vertex)
	if err != nil {
		return gpu.Source{}, fmt.Errorf("reading %s vertex kernel: %w", kind, err)
	}
	fs, err := os.ReadFile(slot.Fragment)
	if err != nil {
		return gpu.Source{}, fmt.Errorf("reading %s fragment kernel: %w", kind, err)
	}
	return gpu.Source{
		Name:     kind.String() + "/" + slot.Fragment,
		Vertex:   string(vs),
		Fragment: string(fs),
	}, nil
}

func integrate(in gpu.Samples, x, y int) gpu.Texel {
	p := in.Fetch(PositionTexture, x, y)
	v := in.Fetch(VelocityTexture, x, y)
	return gpu.Texel{p[0] + v[0], p[1] + v[1], p[2] + v[2], p[3]}
}

func drift(in gpu.Samples, x, y int) gpu.Texel {
	p := in.Fetch(PositionTexture, x, y)
	return gpu.Texel{p[0], p[1], p[2] + 1, p[3]}
}

func attract(in gpu.Samples, x, y int) gpu.Texel {
	p := in.Fetch(PositionTexture, x, y)
	v := in.Fetch(VelocityTexture, x, y)
	return gpu.Texel{
		v[0] - p[0]*attractPull,
		v[1] - p[1]*attractPull,
		v[2] - p[2]*attractPull,
		v[3],
	}
}

func damp(in gpu.Samples, x, y int) gpu.Texel {
	return in.Fetch(VelocityTexture, x, y).Scale(dampKeep)
}

func identity(slot string) gpu.TexelFunc {
	return func(in gpu.Samples, x, y int) gpu.Texel {
		return in.Fetch(slot, x, y)
	}
}
