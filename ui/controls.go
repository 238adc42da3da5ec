package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlState is the host state the panel displays and edits.
type ControlState struct {
	Paused            bool
	VelocityPass      bool
	Solid             bool
	RecomputeOnResize bool
	TicksPerFrame     int
}

// ControlActions reports one-shot requests made through the panel.
type ControlActions struct {
	Step        bool
	ResetCamera bool
}

// MaxTicksPerFrame bounds the speed slider and keyboard speed-up.
const MaxTicksPerFrame = 16

// ControlsPanel renders the raygui control panel on the right side.
type ControlsPanel struct {
	renderer *Renderer
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(width int32, visible bool) *ControlsPanel {
	return &ControlsPanel{renderer: NewRenderer(), width: width, visible: visible}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool { return c.visible }

// Contains reports whether a screen point lies over the panel, so the
// host can ignore camera drags that start on it.
func (c *ControlsPanel) Contains(screenWidth int32, p rl.Vector2) bool {
	if !c.visible {
		return false
	}
	return p.X >= float32(screenWidth-c.width) && p.Y <= float32(c.height())
}

func (c *ControlsPanel) height() int32 {
	return 330
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}

// Draw renders the panel and applies edits to st.
func (c *ControlsPanel) Draw(screenWidth int32, st *ControlState) ControlActions {
	var act ControlActions
	if !c.visible {
		return act
	}

	r := c.renderer
	pad := float32(r.Theme.Padding)
	x0 := screenWidth - c.width
	r.DrawPanel(x0, 0, c.width, c.height())

	x := float32(x0) + pad
	y := pad
	w := float32(c.width) - pad*2
	rl.DrawText("Controls", int32(x), int32(y), 16, rl.White)
	y += 26

	button := func(label string) bool {
		hit := gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 26}, label)
		y += 32
		return hit
	}

	if button(toggleText(st.Paused, "Resume [Space]", "Pause [Space]")) {
		st.Paused = !st.Paused
	}
	if st.Paused && button("Step [N]") {
		act.Step = true
	}
	if button(toggleText(st.VelocityPass, "Velocity pass: on [V]", "Velocity pass: off [V]")) {
		st.VelocityPass = !st.VelocityPass
	}
	if button(toggleText(st.Solid, "Geometry: solid [G]", "Geometry: point [G]")) {
		st.Solid = !st.Solid
	}
	if button(toggleText(st.RecomputeOnResize, "Resize recompute: on [C]", "Resize recompute: off [C]")) {
		st.RecomputeOnResize = !st.RecomputeOnResize
	}
	if button("Reset camera [R]") {
		act.ResetCamera = true
	}

	y += 4
	rl.DrawText(fmt.Sprintf("Ticks per frame: %d", st.TicksPerFrame), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x + 20, Y: y, Width: w - 40, Height: 20},
		"1", fmt.Sprint(MaxTicksPerFrame),
		float32(st.TicksPerFrame), 1, MaxTicksPerFrame,
	)
	st.TicksPerFrame = max(1, min(int(v+0.5), MaxTicksPerFrame))

	return act
}
