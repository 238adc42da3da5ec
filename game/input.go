package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/gpu"
	"github.com/pthm-cable/particles/ui"
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}
	if g.paused && rl.IsKeyPressed(rl.KeyN) {
		g.stepOnce = true
	}

	// Ticks per frame with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.ticksPerFrame > 1 {
		g.ticksPerFrame--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.ticksPerFrame < ui.MaxTicksPerFrame {
		g.ticksPerFrame++
	}

	if rl.IsKeyPressed(rl.KeyV) {
		g.engine.SetVelocityPass(!g.engine.VelocityPass())
	}
	if rl.IsKeyPressed(rl.KeyG) {
		g.toggleGeometry()
	}
	if rl.IsKeyPressed(rl.KeyC) {
		cam := g.engine.Camera()
		cam.RecomputeOnResize = !cam.RecomputeOnResize
	}
	if rl.IsKeyPressed(rl.KeyH) {
		g.showHUD = !g.showHUD
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		g.saveSnapshot()
	}

	g.handleCameraInput()
}

func (g *Game) toggleGeometry() {
	if g.engine.Geometry() == gpu.SolidGeometry {
		g.engine.SetGeometry(gpu.PointGeometry)
	} else {
		g.engine.SetGeometry(gpu.SolidGeometry)
	}
}

// handleResize tracks the window size. The camera decides on the next
// render whether the projection follows.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	g.width = rl.GetScreenWidth()
	g.height = rl.GetScreenHeight()
}

// handleCameraInput processes orbit and zoom controls.
func (g *Game) handleCameraInput() {
	cam := g.engine.Camera()
	cc := g.cfg.Camera

	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !g.controls.Contains(int32(g.width), rl.GetMousePosition()) {
		d := rl.GetMouseDelta()
		speed := float32(cc.OrbitSpeed)
		cam.Orbit(-d.X*speed, d.Y*speed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		step := float32(cc.ZoomStep)
		if wheel > 0 {
			cam.Zoom(step)
		} else {
			cam.Zoom(1 / step)
		}
	}

	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		cam.Zoom(float32(cc.ZoomStep))
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		cam.Zoom(1 / float32(cc.ZoomStep))
	}

	if rl.IsKeyPressed(rl.KeyR) || rl.IsKeyPressed(rl.KeyHome) {
		cam.Reset()
	}
}
