package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/gpu"
	"github.com/pthm-cable/particles/ui"
)

var background = rl.Color{R: 8, G: 8, B: 16, A: 255}

const controlsLegend = "[Space] Pause  [N] Step  [</>] Speed  [V] Velocity  [G] Geometry  [C] Resize policy  [R] Reset camera  [S] Snapshot  [H] HUD  [Tab] Controls"

// Draw runs this frame's ticks inside the drawing pass and overlays the UI.
func (g *Game) Draw() error {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(background)

	if err := g.step(); err != nil {
		return err
	}
	g.perf.RecordFrame()

	if g.showHUD {
		g.drawHUD()
	}
	g.drawControls()
	return nil
}

func (g *Game) drawHUD() {
	cam := g.engine.Camera()
	g.hud.Draw(ui.HUDData{
		Title:             g.cfg.Screen.Title,
		Particles:         g.cfg.Derived.ParticleCount,
		GridSize:          g.cfg.Simulation.GridSize,
		Tick:              g.engine.Ticks(),
		TicksPerFrame:     g.ticksPerFrame,
		FPS:               rl.GetFPS(),
		Paused:            g.paused,
		Geometry:          g.engine.Geometry().String(),
		VelocityPass:      g.engine.VelocityPass(),
		RecomputeOnResize: cam.RecomputeOnResize,
		CameraDistance:    cam.Distance(),
		Kernels:           g.engine.KernelNames(),
	})
	g.perfPanel.Draw(g.perf.Stats())
	g.hud.DrawControls(int32(g.height), controlsLegend)
}

func (g *Game) drawControls() {
	cam := g.engine.Camera()
	st := ui.ControlState{
		Paused:            g.paused,
		VelocityPass:      g.engine.VelocityPass(),
		Solid:             g.engine.Geometry() == gpu.SolidGeometry,
		RecomputeOnResize: cam.RecomputeOnResize,
		TicksPerFrame:     g.ticksPerFrame,
	}
	act := g.controls.Draw(int32(g.width), &st)

	g.paused = st.Paused
	g.engine.SetVelocityPass(st.VelocityPass)
	if st.Solid {
		g.engine.SetGeometry(gpu.SolidGeometry)
	} else {
		g.engine.SetGeometry(gpu.PointGeometry)
	}
	cam.RecomputeOnResize = st.RecomputeOnResize
	g.ticksPerFrame = st.TicksPerFrame

	if act.Step {
		g.stepOnce = true
	}
	if act.ResetCamera {
		cam.Reset()
	}
}
