package gpu

import "fmt"

// GeometryMode selects how the render pass expands each particle.
type GeometryMode int

const (
	// PointGeometry draws one vertex per particle.
	PointGeometry GeometryMode = iota
	// SolidGeometry draws a 36-vertex cube per particle.
	SolidGeometry
)

func (m GeometryMode) String() string {
	switch m {
	case PointGeometry:
		return "point"
	case SolidGeometry:
		return "solid"
	default:
		return fmt.Sprintf("geometry(%d)", int(m))
	}
}

// ParseGeometryMode accepts the config spelling of a geometry mode.
func ParseGeometryMode(s string) (GeometryMode, error) {
	switch s {
	case "point":
		return PointGeometry, nil
	case "solid":
		return SolidGeometry, nil
	}
	return 0, fmt.Errorf("unknown geometry mode %q", s)
}

// Geometry is host-side vertex data. Every vertex carries a local offset
// (XYZ, zero in point mode) and the index of the particle that owns it.
type Geometry struct {
	Mode    GeometryMode
	Offsets []float32
	Indices []float32
}

// VertexCount returns the number of vertices in g.
func (g Geometry) VertexCount() int {
	return len(g.Indices)
}

// Validate checks that offsets and indices describe the same vertices.
func (g Geometry) Validate() error {
	if len(g.Offsets) != 3*len(g.Indices) {
		return fmt.Errorf("geometry: %d offset components for %d vertices", len(g.Offsets), len(g.Indices))
	}
	return nil
}
