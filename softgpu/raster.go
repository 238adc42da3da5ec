package softgpu

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/particles/gpu"
)

var background = color.RGBA{R: 8, G: 8, B: 16, A: 255}

func (d *Device) resizeFrame(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if d.frame != nil && d.frame.Rect.Dx() == width && d.frame.Rect.Dy() == height {
		return
	}
	d.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	d.depth = make([]float32, width*height)
}

func (d *Device) clearFrame() {
	pix := d.frame.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = background.R, background.G, background.B, background.A
	}
	for i := range d.depth {
		d.depth[i] = math.MaxFloat32
	}
}

// DrawScene splats every vertex of the mesh as a depth-tested point.
// Scene matrices compose left to right into the clip transform, matching
// perspective*lookAt in the render kernel.
func (d *Device) DrawScene(s gpu.Scene) error {
	if _, ok := d.programs[s.Program.ID]; !ok {
		return fmt.Errorf("softgpu: unknown program %q", s.Program.Name)
	}
	mesh, ok := d.meshes[s.Mesh.ID]
	if !ok {
		return fmt.Errorf("softgpu: unknown mesh %d", s.Mesh.ID)
	}
	pos, ok := d.textures[s.Position.Texture.ID]
	if !ok {
		return fmt.Errorf("softgpu: unknown texture %d", s.Position.Texture.ID)
	}

	d.resizeFrame(s.Viewport.Width, s.Viewport.Height)
	d.clearFrame()

	clip := mgl32.Ident4()
	for _, m := range s.Matrices {
		clip = clip.Mul4(m.Value)
	}

	w := d.frame.Rect.Dx()
	h := d.frame.Rect.Dy()
	count := pos.size * pos.size
	for k, idx := range mesh.Indices {
		i := int(idx)
		if i < 0 || i >= count {
			continue
		}
		c := gpu.At(pos.data, i)
		world := mgl32.Vec4{
			c[0] + mesh.Offsets[3*k],
			c[1] + mesh.Offsets[3*k+1],
			c[2] + mesh.Offsets[3*k+2],
			1,
		}
		p := clip.Mul4x1(world)
		if !(p[3] > 0) {
			continue
		}
		nx, ny, nz := p[0]/p[3], p[1]/p[3], p[2]/p[3]
		// Negated form also rejects NaN.
		if !(nx >= -1 && nx <= 1 && ny >= -1 && ny <= 1 && nz >= -1 && nz <= 1) {
			continue
		}
		px := int((nx + 1) / 2 * float32(w))
		py := int((1 - ny) / 2 * float32(h))
		if px >= w {
			px = w - 1
		}
		if py >= h {
			py = h - 1
		}
		o := py*w + px
		if nz >= d.depth[o] {
			continue
		}
		d.depth[o] = nz
		d.frame.SetRGBA(px, py, tint(i, count))
	}
	d.draws++
	return nil
}

// tint matches the render kernel's per-particle colour ramp.
func tint(i, count int) color.RGBA {
	t := float32(i) / float32(count)
	return color.RGBA{
		R: uint8(255 * (0.35 + 0.65*t)),
		G: 140,
		B: uint8(255 * (1 - 0.6*t)),
		A: 255,
	}
}

// Frame returns the last drawn frame. The image is reused by the next draw.
func (d *Device) Frame() *image.RGBA { return d.frame }

// WritePNG encodes the last drawn frame to path.
func (d *Device) WritePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := png.Encode(f, d.frame); err != nil {
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return f.Close()
}
