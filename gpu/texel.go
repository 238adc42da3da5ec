package gpu

// Texel is one particle's state vector. XYZ carry state, W is reserved.
type Texel [4]float32

// Channels per texel in host-side state slices.
const Channels = 4

// TexelCoord maps particle index i to its texel in an n x n state texture.
func TexelCoord(i, n int) (x, y int) {
	return i % n, i / n
}

// TexelIndex is the inverse of TexelCoord.
func TexelIndex(x, y, n int) int {
	return y*n + x
}

// At returns the texel for particle i from a host-side RGBA slice.
func At(texels []float32, i int) Texel {
	o := i * Channels
	return Texel{texels[o], texels[o+1], texels[o+2], texels[o+3]}
}

// Put writes t as particle i into a host-side RGBA slice.
func Put(texels []float32, i int, t Texel) {
	o := i * Channels
	texels[o], texels[o+1], texels[o+2], texels[o+3] = t[0], t[1], t[2], t[3]
}

// Add returns the component-wise sum of t and u.
func (t Texel) Add(u Texel) Texel {
	return Texel{t[0] + u[0], t[1] + u[1], t[2] + u[2], t[3] + u[3]}
}

// Scale returns t with XYZ multiplied by s. W is kept.
func (t Texel) Scale(s float32) Texel {
	return Texel{t[0] * s, t[1] * s, t[2] * s, t[3]}
}
