// Package sim drives the particle simulation: full-domain update passes
// over double-buffered state textures, the scene render pass, and the
// per-tick scheduler that sequences them.
package sim

import (
	"fmt"

	"github.com/pthm-cable/particles/camera"
	"github.com/pthm-cable/particles/gpu"
	"github.com/pthm-cable/particles/kernels"
	"github.com/pthm-cable/particles/seed"
)

// UpdatePass runs a state kernel once per particle by covering an N x N
// render target with a single quad.
type UpdatePass struct {
	dev  gpu.Device
	size int
}

// NewUpdatePass creates a pass over size x size state textures.
func NewUpdatePass(dev gpu.Device, size int) *UpdatePass {
	return &UpdatePass{dev: dev, size: size}
}

// Run executes prog into dst. Every input must be a different physical
// texture from dst and match the pass size; violations are rejected
// before any device work is issued.
func (u *UpdatePass) Run(prog *gpu.Program, dst gpu.RenderTarget, inputs []gpu.Binding) error {
	if dst.Texture.Size != u.size {
		return fmt.Errorf("%s: target is %dx%d, pass is %dx%d: %w",
			prog.Name, dst.Texture.Size, dst.Texture.Size, u.size, u.size, gpu.ErrSizeMismatch)
	}
	for _, in := range inputs {
		if in.Texture.ID == dst.Texture.ID {
			return fmt.Errorf("%s: slot %s samples its own target: %w", prog.Name, in.Slot, gpu.ErrFeedbackLoop)
		}
		if in.Texture.Size != u.size {
			return fmt.Errorf("%s: slot %s is %dx%d, pass is %dx%d: %w",
				prog.Name, in.Slot, in.Texture.Size, in.Texture.Size, u.size, u.size, gpu.ErrSizeMismatch)
		}
	}
	return u.dev.RunFullDomain(prog, dst, prog.Resolve(inputs))
}

// RenderPass draws the particles under the camera. Point and solid
// geometry are both uploaded at creation so the mode can change per frame.
type RenderPass struct {
	dev    gpu.Device
	meshes map[gpu.GeometryMode]gpu.Mesh
}

// NewRenderPass uploads point and cube geometry for count particles.
func NewRenderPass(dev gpu.Device, count int, cubeSize float32) (*RenderPass, error) {
	r := &RenderPass{dev: dev, meshes: make(map[gpu.GeometryMode]gpu.Mesh, 2)}
	for _, mode := range []gpu.GeometryMode{gpu.PointGeometry, gpu.SolidGeometry} {
		mesh, err := dev.UploadGeometry(seed.Geometry(mode, count, cubeSize))
		if err != nil {
			return nil, fmt.Errorf("uploading %s geometry: %w", mode, err)
		}
		r.meshes[mode] = mesh
	}
	return r, nil
}

// Mesh returns the uploaded mesh for mode.
func (r *RenderPass) Mesh(mode gpu.GeometryMode) gpu.Mesh {
	return r.meshes[mode]
}

// Render draws the readable position texture to the default surface.
// It never writes to state textures.
func (r *RenderPass) Render(prog *gpu.Program, position gpu.Texture, cam *camera.Camera, mode gpu.GeometryMode, vp gpu.Viewport) error {
	mesh, ok := r.meshes[mode]
	if !ok {
		return fmt.Errorf("render: no geometry for mode %s", mode)
	}

	scene := gpu.Scene{
		Program:  prog,
		Position: gpu.Input{Location: prog.Input(kernels.PositionTexture), Texture: position},
		Matrices: []gpu.MatrixInput{
			{Location: prog.Input(kernels.Perspective), Value: cam.Projection()},
			{Location: prog.Input(kernels.LookAt), Value: cam.View()},
		},
		Mesh:     mesh,
		Viewport: vp,
	}
	return r.dev.DrawScene(scene)
}
