// Package gpu defines the device abstraction the particle engine runs on:
// state textures bound to render targets, compiled kernel programs,
// full-domain passes and the scene draw.
package gpu

import "github.com/go-gl/mathgl/mgl32"

// Texture is a square RGBA32F state texture owned by a Device.
type Texture struct {
	ID   uint32
	Size int // Edge length in texels
}

// RenderTarget is a framebuffer permanently bound to one texture.
type RenderTarget struct {
	ID      uint32
	Texture Texture
}

// Viewport is the drawable surface size in pixels.
type Viewport struct {
	Width, Height int
}

// Aspect returns width/height, or 1 for a degenerate viewport.
func (v Viewport) Aspect() float32 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// Binding associates a named kernel input slot with a texture.
type Binding struct {
	Slot    string
	Texture Texture
}

// Input is a Binding after slot resolution: a program location and the texture to sample there.
type Input struct {
	Location int32
	Texture  Texture
}

// MatrixInput is a 4x4 matrix uniform at a resolved program location.
type MatrixInput struct {
	Location int32
	Value    mgl32.Mat4
}

// Mesh is an uploaded, immutable geometry buffer.
type Mesh struct {
	ID          uint32
	Mode        GeometryMode
	VertexCount int
}

// Scene is everything the render pass hands the device for one frame.
type Scene struct {
	Program  *Program
	Position Input
	Matrices []MatrixInput
	Mesh     Mesh
	Viewport Viewport
}

// Compiler turns kernel sources into device programs and resolves their slots.
type Compiler interface {
	// Compile compiles both stages and links them. Failures are reported as
	// *ShaderCompileError or *ProgramLinkError.
	Compile(src Source) (uint32, error)
	// Location returns the input slot location, or -1 if the linked
	// program does not use it.
	Location(program uint32, name string) int32
	ReleaseProgram(program uint32)
}

// Device is the execution substrate for state passes and the scene draw.
// Implementations are not safe for concurrent use; every call must come
// from the goroutine that created the device.
type Device interface {
	Compiler

	// NewStateTarget allocates a size x size RGBA32F texture bound to its
	// own render target and uploads texels (nil zero-fills).
	NewStateTarget(size int, texels []float32) (RenderTarget, error)
	// ReadTexture copies a state texture back to host memory.
	ReadTexture(tex Texture) ([]float32, error)
	// RunFullDomain executes prog once per texel of dst with blending
	// disabled, sampling inputs at their locations.
	RunFullDomain(prog *Program, dst RenderTarget, inputs []Input) error
	UploadGeometry(g Geometry) (Mesh, error)
	DrawScene(s Scene) error
	// CheckError reports a pending device fault as *RuntimeDeviceError.
	CheckError() error
	ReleaseTarget(rt RenderTarget)
	Close()
}
