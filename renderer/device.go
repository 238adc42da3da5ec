// Package renderer implements the GPU device on top of raylib and rlgl.
// State textures are RGBA32F colour attachments of raw framebuffers;
// kernels run as a full-target rectangle under a custom blend that
// replaces every channel.
package renderer

import (
	"fmt"
	"slices"
	"strings"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/particles/gpu"
)

// Device is a gpu.Device backed by the raylib OpenGL context. It must be
// created after the window is initialised and used from the main thread.
type Device struct {
	programs map[uint32]rl.Shader
	textures map[uint32]rl.Texture2D
	targets  map[uint32]rl.RenderTexture2D
	meshes   map[uint32]rl.Mesh
	nextMesh uint32

	material rl.Material
}

var _ gpu.Device = (*Device)(nil)

// NewDevice creates a device on the current raylib context.
func NewDevice() *Device {
	return &Device{
		programs: make(map[uint32]rl.Shader),
		textures: make(map[uint32]rl.Texture2D),
		targets:  make(map[uint32]rl.RenderTexture2D),
		meshes:   make(map[uint32]rl.Mesh),
		material: rl.LoadMaterialDefault(),
	}
}

// Compile loads src as a shader program. Driver diagnostics are read from
// the trace log, so InstallLogBridge must have been called first.
func (d *Device) Compile(src gpu.Source) (uint32, error) {
	if src.Vertex == "" && src.Fragment == "" {
		return 0, &gpu.ShaderCompileError{Program: src.Name, Stage: gpu.StageVertex, Log: "empty kernel source"}
	}

	driverLog.BeginCapture()
	sh := rl.LoadShaderFromMemory(src.Vertex, src.Fragment)
	lines := driverLog.EndCapture()

	fallback := sh.ID == 0 || sh.ID == rl.GetShaderIdDefault()
	if err := gpu.ShaderLoadError(src.Name, lines); err != nil {
		if !fallback {
			rl.UnloadShader(sh)
		}
		return 0, err
	}
	if fallback {
		return 0, &gpu.ProgramLinkError{Program: src.Name, Log: "driver fell back to the default shader"}
	}

	d.programs[sh.ID] = sh
	return sh.ID, nil
}

func (d *Device) Location(prog uint32, name string) int32 {
	sh, ok := d.programs[prog]
	if !ok {
		return -1
	}
	return rl.GetShaderLocation(sh, name)
}

func (d *Device) ReleaseProgram(prog uint32) {
	if sh, ok := d.programs[prog]; ok {
		rl.UnloadShader(sh)
		delete(d.programs, prog)
	}
}

// NewStateTarget creates an RGBA32F texture attached to its own
// framebuffer. texels seeds the texture; nil leaves it zeroed.
func (d *Device) NewStateTarget(size int, texels []float32) (gpu.RenderTarget, error) {
	if size < 1 {
		return gpu.RenderTarget{}, &gpu.ResourceCreationError{Resource: "state texture", Size: size, Reason: "size must be positive"}
	}
	if texels != nil && len(texels) != size*size*gpu.Channels {
		return gpu.RenderTarget{}, fmt.Errorf("state texture %dx%d needs %d floats, got %d: %w",
			size, size, size*size*gpu.Channels, len(texels), gpu.ErrSizeMismatch)
	}

	// Build the image in C memory so the upload never hands Go pointers to C.
	img := rl.GenImageColor(size, size, rl.Blank)
	rl.ImageFormat(img, rl.UncompressedR32g32b32a32)
	if img.Data == nil {
		rl.UnloadImage(img)
		return gpu.RenderTarget{}, &gpu.ResourceCreationError{Resource: "state image", Size: size, Reason: "float image allocation failed"}
	}
	data := unsafe.Slice((*float32)(img.Data), size*size*gpu.Channels)
	if texels != nil {
		copy(data, texels)
	} else {
		clear(data)
	}
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	if tex.ID == 0 {
		return gpu.RenderTarget{}, &gpu.ResourceCreationError{Resource: "state texture", Size: size, Reason: "driver rejected RGBA32F texture"}
	}
	rl.SetTextureFilter(tex, rl.FilterPoint)

	fbo := rl.LoadFramebuffer()
	if fbo == 0 {
		rl.UnloadTexture(tex)
		return gpu.RenderTarget{}, &gpu.ResourceCreationError{Resource: "framebuffer", Size: size, Reason: "driver returned no framebuffer"}
	}
	rl.FramebufferAttach(fbo, tex.ID, rl.AttachmentColorChannel0, rl.AttachmentTexture2d, 0)
	if !rl.FramebufferComplete(fbo) {
		rl.UnloadFramebuffer(fbo)
		rl.UnloadTexture(tex)
		return gpu.RenderTarget{}, &gpu.ResourceCreationError{Resource: "framebuffer", Size: size, Reason: "incomplete with RGBA32F colour attachment"}
	}

	d.textures[tex.ID] = tex
	d.targets[fbo] = rl.RenderTexture2D{ID: fbo, Texture: tex}
	return gpu.RenderTarget{ID: fbo, Texture: gpu.Texture{ID: tex.ID, Size: size}}, nil
}

func (d *Device) ReleaseTarget(rt gpu.RenderTarget) {
	if _, ok := d.targets[rt.ID]; ok {
		rl.UnloadFramebuffer(rt.ID)
		delete(d.targets, rt.ID)
	}
	if tex, ok := d.textures[rt.Texture.ID]; ok {
		rl.UnloadTexture(tex)
		delete(d.textures, rt.Texture.ID)
	}
}

// ReadTexture copies a state texture back to host memory.
func (d *Device) ReadTexture(t gpu.Texture) ([]float32, error) {
	tex, ok := d.textures[t.ID]
	if !ok {
		return nil, fmt.Errorf("renderer: unknown texture %d", t.ID)
	}
	img := rl.LoadImageFromTexture(tex)
	defer rl.UnloadImage(img)
	if img.Data == nil || img.Format != rl.UncompressedR32g32b32a32 {
		return nil, &gpu.RuntimeDeviceError{Detail: fmt.Sprintf("readback of texture %d returned format %d", t.ID, img.Format)}
	}
	n := int(img.Width) * int(img.Height) * gpu.Channels
	return slices.Clone(unsafe.Slice((*float32)(img.Data), n)), nil
}

// RunFullDomain draws one rectangle covering dst with prog bound. Blending
// is set to ONE/ZERO so every channel, alpha included, is written as the
// kernel produced it.
func (d *Device) RunFullDomain(prog *gpu.Program, dst gpu.RenderTarget, inputs []gpu.Input) error {
	sh, ok := d.programs[prog.ID]
	if !ok {
		return fmt.Errorf("renderer: unknown program %q", prog.Name)
	}
	rt, ok := d.targets[dst.ID]
	if !ok {
		return fmt.Errorf("renderer: unknown render target %d", dst.ID)
	}

	samplers := make([]rl.Texture2D, len(inputs))
	for i, in := range inputs {
		if in.Texture.ID == rt.Texture.ID {
			return gpu.ErrFeedbackLoop
		}
		tex, ok := d.textures[in.Texture.ID]
		if !ok {
			return fmt.Errorf("renderer: unknown texture %d", in.Texture.ID)
		}
		if tex.Width != rt.Texture.Width || tex.Height != rt.Texture.Height {
			return gpu.ErrSizeMismatch
		}
		samplers[i] = tex
	}

	rl.BeginTextureMode(rt)
	rl.SetBlendFactors(rl.One, rl.Zero, rl.FuncAdd)
	rl.BeginBlendMode(rl.BlendCustom)
	rl.BeginShaderMode(sh)
	for i, in := range inputs {
		rl.SetShaderValueTexture(sh, in.Location, samplers[i])
	}
	rl.DrawRectangle(0, 0, rt.Texture.Width, rt.Texture.Height, rl.White)
	rl.EndShaderMode()
	rl.EndBlendMode()
	rl.EndTextureMode()
	return nil
}

// UploadGeometry stores offsets as vertex positions and particle indices
// in texcoord.x. Point geometry is drawn as triangles in point polygon
// mode, so its vertex count is padded to a multiple of three.
func (d *Device) UploadGeometry(g gpu.Geometry) (gpu.Mesh, error) {
	if err := g.Validate(); err != nil {
		return gpu.Mesh{}, &gpu.ResourceCreationError{Resource: g.Mode.String() + " mesh", Reason: err.Error()}
	}
	count := g.VertexCount()
	padded := count
	if r := padded % 3; r != 0 {
		padded += 3 - r
	}

	vertices := make([]float32, padded*3)
	texcoords := make([]float32, padded*2)
	copy(vertices, g.Offsets)
	for i := 0; i < padded; i++ {
		src := min(i, count-1)
		if i >= count {
			copy(vertices[i*3:i*3+3], g.Offsets[src*3:src*3+3])
		}
		texcoords[i*2] = g.Indices[src]
	}

	mesh := rl.Mesh{
		VertexCount:   int32(padded),
		TriangleCount: int32(padded / 3),
		Vertices:      &vertices[0],
		Texcoords:     &texcoords[0],
	}
	rl.UploadMesh(&mesh, false)
	if mesh.VboID == nil || *mesh.VboID == 0 {
		return gpu.Mesh{}, &gpu.ResourceCreationError{Resource: g.Mode.String() + " mesh", Reason: "vertex buffer upload failed"}
	}
	// Vertex data lives in the VBOs from here on.
	mesh.Vertices, mesh.Texcoords = nil, nil

	d.nextMesh++
	d.meshes[d.nextMesh] = mesh
	return gpu.Mesh{ID: d.nextMesh, Mode: g.Mode, VertexCount: count}, nil
}

func toMatrix(m mgl32.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}

// DrawScene draws the mesh to the current framebuffer with depth testing.
// The caller owns BeginDrawing/EndDrawing and the clear.
func (d *Device) DrawScene(s gpu.Scene) error {
	sh, ok := d.programs[s.Program.ID]
	if !ok {
		return fmt.Errorf("renderer: unknown program %q", s.Program.Name)
	}
	mesh, ok := d.meshes[s.Mesh.ID]
	if !ok {
		return fmt.Errorf("renderer: unknown mesh %d", s.Mesh.ID)
	}
	pos, ok := d.textures[s.Position.Texture.ID]
	if !ok {
		return fmt.Errorf("renderer: unknown texture %d", s.Position.Texture.ID)
	}

	// DrawMesh binds material maps through the shader's map locations.
	sh.UpdateLocation(rl.ShaderLocMapDiffuse, s.Position.Location)
	d.material.Shader = sh
	d.material.GetMap(rl.MapDiffuse).Texture = pos

	rl.BeginShaderMode(sh)
	for _, m := range s.Matrices {
		if m.Location >= 0 {
			rl.SetShaderValueMatrix(sh, m.Location, toMatrix(m.Value))
		}
	}
	rl.EndShaderMode()

	rl.EnableDepthTest()
	rl.DisableBackfaceCulling()
	if s.Mesh.Mode == gpu.PointGeometry {
		rl.EnablePointMode()
	}
	rl.DrawMesh(mesh, d.material, rl.MatrixIdentity())
	if s.Mesh.Mode == gpu.PointGeometry {
		rl.DisableWireMode()
	}
	rl.EnableBackfaceCulling()
	rl.DisableDepthTest()
	return nil
}

// CheckError polls the GL error queue and reports anything raylib logged.
func (d *Device) CheckError() error {
	rl.CheckErrors()
	faults := driverLog.DrainFaults()
	if len(faults) == 0 {
		return nil
	}
	return &gpu.RuntimeDeviceError{Detail: strings.Join(faults, "; ")}
}

// Close releases every resource the device still owns.
func (d *Device) Close() {
	for id := range d.targets {
		rl.UnloadFramebuffer(id)
	}
	for _, tex := range d.textures {
		rl.UnloadTexture(tex)
	}
	for _, sh := range d.programs {
		rl.UnloadShader(sh)
	}
	for id, mesh := range d.meshes {
		rl.UnloadMesh(&mesh)
		delete(d.meshes, id)
	}
	clear(d.targets)
	clear(d.textures)
	clear(d.programs)

	// The material only borrows state textures and programs.
	d.material.Shader = rl.Shader{ID: rl.GetShaderIdDefault()}
	d.material.GetMap(rl.MapDiffuse).Texture = rl.Texture2D{ID: rl.GetTextureIdDefault()}
	rl.UnloadMaterial(d.material)
}
