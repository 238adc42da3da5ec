package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title             string
	Particles         int
	GridSize          int
	Tick              uint64
	TicksPerFrame     int
	FPS               int32
	Paused            bool
	Geometry          string
	VelocityPass      bool
	RecomputeOnResize bool
	CameraDistance    float32
	Kernels           [3]string // render, position, velocity
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d (%dx%d) | Geometry: %s | Velocity pass: %s",
			data.Particles, data.GridSize, data.GridSize, data.Geometry, onOff(data.VelocityPass)),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d | Camera: %.0f | Resize recompute: %s",
			data.Tick, data.TicksPerFrame, data.FPS, data.CameraDistance, onOff(data.RecomputeOnResize)),
		10, 55, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Kernels: %s | %s | %s", data.Kernels[0], data.Kernels[1], data.Kernels[2]),
		10, 75, 14, rl.Gray,
	)

	if data.Paused {
		rl.DrawText("PAUSED", 10, 95, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase tick timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	pad := r.Theme.Padding
	height := r.Theme.LineHeight*int32(len(telemetry.Phases)+3) + pad*2
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + pad
	y := r.DrawSectionHeader(x, p.y+pad, "Tick Performance")
	y = r.DrawLabelValue(x, y, "Tick avg", stats.AvgTickDuration.Round(time.Microsecond).String())
	y = r.DrawLabelValue(x, y, "Ticks/s", fmt.Sprintf("%.0f", stats.TicksPerSecond))
	for _, phase := range telemetry.Phases {
		y = r.DrawPercentBar(x, y, phase, stats.PhasePct[phase], 50, p.width-pad*2)
	}
}
