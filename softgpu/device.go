// Package softgpu is a CPU reference implementation of gpu.Device. It runs
// kernels' texel functions over host-side float textures and splats the
// scene into an RGBA image. It needs no window, so tests and headless runs
// use it.
package softgpu

import (
	"fmt"
	"image"
	"math"
	"slices"
	"sync/atomic"

	"github.com/pthm-cable/particles/gpu"
)

type texture struct {
	size int
	data []float32
}

type program struct {
	src   gpu.Source
	locs  map[string]int32
	names []string // slot name by location
}

// Device is a software gpu.Device. Like a real context it must be driven
// from a single goroutine; passes fan out internally and complete before
// returning.
type Device struct {
	textures map[uint32]*texture
	targets  map[uint32]uint32 // render target -> texture
	programs map[uint32]*program
	meshes   map[uint32]gpu.Geometry
	nextID   uint32

	pool  *rowPool
	frame *image.RGBA
	depth []float32

	fault  string
	passes uint64
	draws  uint64
}

// New creates a software device. workers <= 0 uses GOMAXPROCS.
// The frame buffer starts at width x height and follows the scene viewport.
func New(workers, width, height int) *Device {
	d := &Device{
		textures: make(map[uint32]*texture),
		targets:  make(map[uint32]uint32),
		programs: make(map[uint32]*program),
		meshes:   make(map[uint32]gpu.Geometry),
		pool:     newRowPool(workers),
	}
	d.resizeFrame(width, height)
	return d
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

// Compile registers src. A source with neither GLSL nor a texel function
// cannot execute and fails at the vertex stage.
func (d *Device) Compile(src gpu.Source) (uint32, error) {
	if src.Vertex == "" && src.Fragment == "" && src.Texel == nil {
		return 0, &gpu.ShaderCompileError{Program: src.Name, Stage: gpu.StageVertex, Log: "empty kernel source"}
	}
	id := d.id()
	d.programs[id] = &program{src: src, locs: make(map[string]int32)}
	return id, nil
}

// Location assigns locations in first-query order. Slots outside
// Source.Reads resolve to -1.
func (d *Device) Location(prog uint32, name string) int32 {
	p, ok := d.programs[prog]
	if !ok {
		return -1
	}
	if p.src.Reads != nil && !slices.Contains(p.src.Reads, name) {
		return -1
	}
	if loc, ok := p.locs[name]; ok {
		return loc
	}
	loc := int32(len(p.names))
	p.locs[name] = loc
	p.names = append(p.names, name)
	return loc
}

func (d *Device) ReleaseProgram(prog uint32) {
	delete(d.programs, prog)
}

func (d *Device) NewStateTarget(size int, texels []float32) (gpu.RenderTarget, error) {
	if size < 1 {
		return gpu.RenderTarget{}, &gpu.ResourceCreationError{Resource: "state texture", Size: size, Reason: "size must be positive"}
	}
	data := make([]float32, size*size*gpu.Channels)
	if texels != nil {
		if len(texels) != len(data) {
			return gpu.RenderTarget{}, fmt.Errorf("uploading %d floats to %dx%d texture: %w", len(texels), size, size, gpu.ErrSizeMismatch)
		}
		copy(data, texels)
	}

	texID := d.id()
	d.textures[texID] = &texture{size: size, data: data}
	rtID := d.id()
	d.targets[rtID] = texID
	return gpu.RenderTarget{ID: rtID, Texture: gpu.Texture{ID: texID, Size: size}}, nil
}

func (d *Device) ReleaseTarget(rt gpu.RenderTarget) {
	delete(d.targets, rt.ID)
	delete(d.textures, rt.Texture.ID)
}

func (d *Device) ReadTexture(tex gpu.Texture) ([]float32, error) {
	t, ok := d.textures[tex.ID]
	if !ok {
		return nil, fmt.Errorf("softgpu: unknown texture %d", tex.ID)
	}
	return slices.Clone(t.data), nil
}

// samples binds slot names to textures for one pass. It is only read
// while workers run.
type samples map[string]*texture

func (s samples) Fetch(slot string, x, y int) gpu.Texel {
	t := s[slot]
	if t == nil || x < 0 || y < 0 || x >= t.size || y >= t.size {
		return gpu.Texel{}
	}
	return gpu.At(t.data, gpu.TexelIndex(x, y, t.size))
}

// RunFullDomain evaluates the program's texel function once per texel of dst.
func (d *Device) RunFullDomain(prog *gpu.Program, dst gpu.RenderTarget, inputs []gpu.Input) error {
	p, ok := d.programs[prog.ID]
	if !ok {
		return fmt.Errorf("softgpu: unknown program %q", prog.Name)
	}
	if p.src.Texel == nil {
		return fmt.Errorf("softgpu: program %q has no texel function", prog.Name)
	}
	texID, ok := d.targets[dst.ID]
	if !ok {
		return fmt.Errorf("softgpu: unknown render target %d", dst.ID)
	}
	out := d.textures[texID]

	bound := make(samples, len(inputs))
	for _, in := range inputs {
		if in.Texture.ID == texID {
			return gpu.ErrFeedbackLoop
		}
		t, ok := d.textures[in.Texture.ID]
		if !ok {
			return fmt.Errorf("softgpu: unknown texture %d", in.Texture.ID)
		}
		if t.size != out.size {
			return gpu.ErrSizeMismatch
		}
		if in.Location < 0 || int(in.Location) >= len(p.names) {
			continue
		}
		bound[p.names[in.Location]] = t
	}

	var nonFinite atomic.Bool
	fn := p.src.Texel
	n := out.size
	d.pool.run(n, func(start, end int) {
		bad := false
		for y := start; y < end; y++ {
			for x := 0; x < n; x++ {
				t := fn(bound, x, y)
				for _, c := range t {
					if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
						bad = true
					}
				}
				gpu.Put(out.data, gpu.TexelIndex(x, y, n), t)
			}
		}
		if bad {
			nonFinite.Store(true)
		}
	})
	d.passes++

	if nonFinite.Load() && d.fault == "" {
		d.fault = fmt.Sprintf("program %q wrote non-finite texels", prog.Name)
	}
	return nil
}

func (d *Device) UploadGeometry(g gpu.Geometry) (gpu.Mesh, error) {
	if err := g.Validate(); err != nil {
		return gpu.Mesh{}, &gpu.ResourceCreationError{Resource: g.Mode.String() + " mesh", Reason: err.Error()}
	}
	id := d.id()
	d.meshes[id] = gpu.Geometry{
		Mode:    g.Mode,
		Offsets: slices.Clone(g.Offsets),
		Indices: slices.Clone(g.Indices),
	}
	return gpu.Mesh{ID: id, Mode: g.Mode, VertexCount: g.VertexCount()}, nil
}

// CheckError reports and clears a pending fault.
func (d *Device) CheckError() error {
	if d.fault == "" {
		return nil
	}
	err := &gpu.RuntimeDeviceError{Detail: d.fault}
	d.fault = ""
	return err
}

// Passes returns the number of full-domain passes executed.
func (d *Device) Passes() uint64 { return d.passes }

// Draws returns the number of scenes drawn.
func (d *Device) Draws() uint64 { return d.draws }

// Close stops the worker pool and drops all resources.
func (d *Device) Close() {
	d.pool.stop()
	clear(d.textures)
	clear(d.targets)
	clear(d.programs)
	clear(d.meshes)
}
