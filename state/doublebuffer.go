// Package state holds the texture-resident particle state: one
// double-buffered texture pair per state axis.
package state

import (
	"fmt"

	"github.com/pthm-cable/particles/gpu"
)

// DoubleBuffer owns two interchangeable state textures for one axis. One
// is readable (Current), the other is the write target of the next
// update pass. Swap exchanges the roles without touching texel data.
type DoubleBuffer struct {
	dev     gpu.Device
	axis    string
	targets [2]gpu.RenderTarget
	front   int
	swaps   uint64
}

// New allocates both buffers at size x size and uploads texels into each.
// A nil texels slice zero-fills.
func New(dev gpu.Device, axis string, size int, texels []float32) (*DoubleBuffer, error) {
	if texels != nil && len(texels) != size*size*gpu.Channels {
		return nil, fmt.Errorf("%s buffer: %d floats for %dx%d texture: %w",
			axis, len(texels), size, size, gpu.ErrSizeMismatch)
	}

	b := &DoubleBuffer{dev: dev, axis: axis}
	for i := range b.targets {
		rt, err := dev.NewStateTarget(size, texels)
		if err != nil {
			b.Release()
			return nil, fmt.Errorf("%s buffer %d: %w", axis, i, err)
		}
		b.targets[i] = rt
	}
	return b, nil
}

// Axis returns the state axis name ("position", "velocity").
func (b *DoubleBuffer) Axis() string { return b.axis }

// Size returns the texture edge length.
func (b *DoubleBuffer) Size() int { return b.targets[0].Texture.Size }

// Current returns the readable texture.
func (b *DoubleBuffer) Current() gpu.Texture {
	return b.targets[b.front].Texture
}

// Target returns the render target the next update writes into.
func (b *DoubleBuffer) Target() gpu.RenderTarget {
	return b.targets[1-b.front]
}

// Swap makes the last written target readable.
func (b *DoubleBuffer) Swap() {
	b.front = 1 - b.front
	b.swaps++
}

// Swaps returns the number of completed swaps.
func (b *DoubleBuffer) Swaps() uint64 { return b.swaps }

// Read copies the readable texture back to host memory.
func (b *DoubleBuffer) Read() ([]float32, error) {
	return b.dev.ReadTexture(b.Current())
}

// Release frees both render targets.
func (b *DoubleBuffer) Release() {
	for i, rt := range b.targets {
		if rt.ID != 0 || rt.Texture.ID != 0 {
			b.dev.ReleaseTarget(rt)
			b.targets[i] = gpu.RenderTarget{}
		}
	}
}
