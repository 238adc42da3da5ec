// Package seed generates initial particle state and the immutable
// geometry buffers consumed by the render pass.
package seed

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/particles/gpu"
)

// PointInSphere samples a point uniformly inside a sphere of radius r.
// Cube-root radius scaling keeps the density uniform in volume.
func PointInSphere(rng *rand.Rand, r float64) (x, y, z float64) {
	zc := rng.Float64()*2 - 1
	phi := rng.Float64() * 2 * math.Pi
	rad := r * math.Cbrt(rng.Float64())
	ring := math.Sqrt(1 - zc*zc)
	return rad * ring * math.Cos(phi), rad * ring * math.Sin(phi), rad * zc
}

// Sphere returns n RGBA texels sampled uniformly inside a sphere of radius r.
// W is zero.
func Sphere(rng *rand.Rand, n int, r float64) []float32 {
	texels := make([]float32, n*gpu.Channels)
	for i := 0; i < n; i++ {
		x, y, z := PointInSphere(rng, r)
		gpu.Put(texels, i, gpu.Texel{float32(x), float32(y), float32(z), 0})
	}
	return texels
}

// Uniform returns n texels all holding v.
func Uniform(n int, v gpu.Texel) []float32 {
	texels := make([]float32, n*gpu.Channels)
	for i := 0; i < n; i++ {
		gpu.Put(texels, i, v)
	}
	return texels
}

// Points builds point-mode geometry: one vertex per particle at zero offset.
func Points(n int) gpu.Geometry {
	g := gpu.Geometry{
		Mode:    gpu.PointGeometry,
		Offsets: make([]float32, 3*n),
		Indices: make([]float32, n),
	}
	for i := range g.Indices {
		g.Indices[i] = float32(i)
	}
	return g
}

// CubeVertices is the vertex count of one solid-mode particle.
const CubeVertices = 36

// cubeFaces lists each face as corners a, b, c, d of a unit cube centred
// on the origin, wound counter-clockwise seen from outside.
var cubeFaces = [6][4][3]float32{
	{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}},     // +z
	{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}, // -z
	{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}},     // +x
	{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}, // -x
	{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}},     // +y
	{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}, // -y
}

// faceOrder splits a quad abcd into triangles abc, cda.
var faceOrder = [6]int{0, 1, 2, 2, 3, 0}

// Cube builds solid-mode geometry: a cube of edge size around every
// particle, each vertex tagged with its owner's index.
func Cube(n int, size float32) gpu.Geometry {
	half := size / 2
	g := gpu.Geometry{
		Mode:    gpu.SolidGeometry,
		Offsets: make([]float32, 0, 3*CubeVertices*n),
		Indices: make([]float32, 0, CubeVertices*n),
	}
	for i := 0; i < n; i++ {
		idx := float32(i)
		for _, face := range cubeFaces {
			for _, corner := range faceOrder {
				v := face[corner]
				g.Offsets = append(g.Offsets, v[0]*half, v[1]*half, v[2]*half)
				g.Indices = append(g.Indices, idx)
			}
		}
	}
	return g
}

// Geometry builds the buffer for mode.
func Geometry(mode gpu.GeometryMode, n int, cubeSize float32) gpu.Geometry {
	if mode == gpu.SolidGeometry {
		return Cube(n, cubeSize)
	}
	return Points(n)
}
