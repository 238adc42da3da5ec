// Package camera provides the perspective/look-at camera the scene is drawn with.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/particles/config"
)

// maxPitchCos keeps the eye from reaching the up axis, where look-at degenerates.
const maxPitchCos = 0.995

// Camera holds projection and view matrices for the scene draw.
// Supports orbit and zoom around the look-at center.
type Camera struct {
	// Vertical field of view in radians
	FOV       float32
	Near, Far float32

	Eye, Center, Up mgl32.Vec3

	// RecomputeOnResize rebuilds the projection whenever the viewport
	// aspect changes. When false the startup aspect is kept.
	RecomputeOnResize bool

	// Distance constraints for Zoom
	MinDistance, MaxDistance float32

	aspect     float32
	projection mgl32.Mat4
	view       mgl32.Mat4

	homeEye, homeCenter mgl32.Vec3
}

func vec3(v [3]float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// New creates a camera from config, projecting for the given viewport.
func New(cfg config.CameraConfig, width, height int) *Camera {
	c := &Camera{
		FOV:               mgl32.DegToRad(float32(cfg.FOV)),
		Near:              float32(cfg.Near),
		Far:               float32(cfg.Far),
		Eye:               vec3(cfg.Eye),
		Center:            vec3(cfg.Center),
		Up:                vec3(cfg.Up).Normalize(),
		RecomputeOnResize: cfg.RecomputeOnResize,
		MinDistance:       float32(cfg.MinDistance),
		MaxDistance:       float32(cfg.MaxDistance),
	}
	c.homeEye, c.homeCenter = c.Eye, c.Center
	c.project(aspectOf(width, height))
	c.look()
	return c
}

func aspectOf(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

func (c *Camera) project(aspect float32) {
	c.aspect = aspect
	c.projection = mgl32.Perspective(c.FOV, aspect, c.Near, c.Far)
}

func (c *Camera) look() {
	c.view = mgl32.LookAtV(c.Eye, c.Center, c.Up)
}

// Resize rebuilds the projection for a new viewport when RecomputeOnResize is set.
// It returns true if the projection changed.
func (c *Camera) Resize(width, height int) bool {
	if !c.RecomputeOnResize {
		return false
	}
	aspect := aspectOf(width, height)
	if aspect == c.aspect {
		return false
	}
	c.project(aspect)
	return true
}

// Aspect returns the aspect ratio the projection was built for.
func (c *Camera) Aspect() float32 { return c.aspect }

// Projection returns the perspective matrix.
func (c *Camera) Projection() mgl32.Mat4 { return c.projection }

// View returns the look-at matrix.
func (c *Camera) View() mgl32.Mat4 { return c.view }

// Distance returns the eye-to-center distance.
func (c *Camera) Distance() float32 {
	return c.Eye.Sub(c.Center).Len()
}

// Orbit rotates the eye around the center: yaw about the up axis, pitch
// about the camera's right axis. Pitch that would cross the up axis is dropped.
func (c *Camera) Orbit(yaw, pitch float32) {
	offset := c.Eye.Sub(c.Center)
	if yaw != 0 {
		offset = mgl32.HomogRotate3D(yaw, c.Up).Mul4x1(offset.Vec4(0)).Vec3()
	}
	if pitch != 0 {
		right := offset.Cross(c.Up)
		if right.Len() > 1e-6 {
			pitched := mgl32.HomogRotate3D(pitch, right.Normalize()).Mul4x1(offset.Vec4(0)).Vec3()
			if cos := pitched.Normalize().Dot(c.Up); float32(math.Abs(float64(cos))) < maxPitchCos {
				offset = pitched
			}
		}
	}
	c.Eye = c.Center.Add(offset)
	c.look()
}

// Zoom scales the eye distance by factor, clamped to min/max distance.
func (c *Camera) Zoom(factor float32) {
	offset := c.Eye.Sub(c.Center)
	d := offset.Len()
	nd := mgl32.Clamp(d*factor, c.MinDistance, c.MaxDistance)
	if d == 0 || nd == d {
		return
	}
	c.Eye = c.Center.Add(offset.Mul(nd / d))
	c.look()
}

// Reset returns the camera to its configured eye and center.
func (c *Camera) Reset() {
	c.Eye, c.Center = c.homeEye, c.homeCenter
	c.look()
}
