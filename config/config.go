// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Camera     CameraConfig     `yaml:"camera"`
	Kernels    KernelsConfig    `yaml:"kernels"`
	GPU        GPUConfig        `yaml:"gpu"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	UI         UIConfig         `yaml:"ui"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Geometry modes for the render pass.
const (
	GeometryPoint = "point"
	GeometrySolid = "solid"
)

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
	Resizable bool   `yaml:"resizable"`
	VSync     bool   `yaml:"vsync"`
}

// SimulationConfig holds the particle state parameters.
type SimulationConfig struct {
	GridSize             int     `yaml:"grid_size"` // State texture edge length; particle count = grid_size^2
	GeometryMode         string  `yaml:"geometry_mode"`
	EnableVelocityPass   bool    `yaml:"enable_velocity_pass"`
	PositionSphereRadius float64 `yaml:"position_sphere_radius"`
	VelocitySphereRadius float64 `yaml:"velocity_sphere_radius"`
	CubeSize             float64 `yaml:"cube_size"` // Edge length of the solid-mode cube
	TicksPerFrame        int     `yaml:"ticks_per_frame"`
}

// CameraConfig holds the perspective/look-at camera parameters.
type CameraConfig struct {
	FOV               float64    `yaml:"fov"` // Vertical field of view in degrees
	Near              float64    `yaml:"near"`
	Far               float64    `yaml:"far"`
	Eye               [3]float64 `yaml:"eye"`
	Center            [3]float64 `yaml:"center"`
	Up                [3]float64 `yaml:"up"`
	RecomputeOnResize bool       `yaml:"recompute_on_resize"`
	OrbitSpeed        float64    `yaml:"orbit_speed"` // Radians per pixel of mouse drag
	ZoomStep          float64    `yaml:"zoom_step"`   // Distance multiplier per wheel notch
	MinDistance       float64    `yaml:"min_distance"`
	MaxDistance       float64    `yaml:"max_distance"`
}

// KernelSlot selects one kernel program. Either Builtin names a kernel
// shipped with the binary, or Vertex/Fragment point at GLSL files.
type KernelSlot struct {
	Builtin  string `yaml:"builtin,omitempty"`
	Vertex   string `yaml:"vertex,omitempty"`
	Fragment string `yaml:"fragment,omitempty"`
}

// UnmarshalYAML replaces the whole slot, so a file pair in a user config
// is not merged with the default builtin name.
func (s *KernelSlot) UnmarshalYAML(node *yaml.Node) error {
	type plain KernelSlot
	var in plain
	if err := node.Decode(&in); err != nil {
		return err
	}
	*s = KernelSlot(in)
	return nil
}

// IsFile reports whether the slot names GLSL files rather than a builtin.
func (s KernelSlot) IsFile() bool {
	return s.Vertex != "" || s.Fragment != ""
}

// KernelsConfig holds the three independently configurable kernel slots.
type KernelsConfig struct {
	Render   KernelSlot `yaml:"render"`
	Position KernelSlot `yaml:"position"`
	Velocity KernelSlot `yaml:"velocity"`
}

// GPUConfig holds device parameters.
type GPUConfig struct {
	ErrorCheckInterval int `yaml:"error_check_interval"` // Ticks between device error polls (0 = never)
	Workers            int `yaml:"workers"`              // Software device worker count (0 = GOMAXPROCS)
	SoftFrameWidth     int `yaml:"soft_frame_width"`
	SoftFrameHeight    int `yaml:"soft_frame_height"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow    int `yaml:"perf_window"`    // Ticks averaged by the perf collector
	LogInterval   int `yaml:"log_interval"`   // Ticks between perf/state log lines
	StateInterval int `yaml:"state_interval"` // Ticks between state readbacks (0 = never)
	SnapshotEvery int `yaml:"snapshot_every"` // Ticks between PNG frame snapshots in headless mode
}

// UIConfig holds HUD settings.
type UIConfig struct {
	ShowHUD      bool `yaml:"show_hud"`
	ShowControls bool `yaml:"show_controls"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ParticleCount int // GridSize^2
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// maxGridSize keeps particle indices exactly representable as float32
// vertex attributes (2^24).
const maxGridSize = 4096

// Validate checks option ranges. It is called by Load and again by
// callers that mutate the config after loading (CLI overrides).
func (c *Config) Validate() error {
	var errs []error
	s := c.Simulation
	if s.GridSize < 1 || s.GridSize > maxGridSize {
		errs = append(errs, fmt.Errorf("simulation.grid_size must be in [1, %d], got %d", maxGridSize, s.GridSize))
	}
	if s.GeometryMode != GeometryPoint && s.GeometryMode != GeometrySolid {
		errs = append(errs, fmt.Errorf("simulation.geometry_mode must be %q or %q, got %q", GeometryPoint, GeometrySolid, s.GeometryMode))
	}
	if s.PositionSphereRadius < 0 || s.VelocitySphereRadius < 0 {
		errs = append(errs, errors.New("simulation sphere radii must be non-negative"))
	}
	if s.TicksPerFrame < 1 {
		errs = append(errs, fmt.Errorf("simulation.ticks_per_frame must be >= 1, got %d", s.TicksPerFrame))
	}
	cam := c.Camera
	if cam.FOV <= 0 || cam.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov must be in (0, 180), got %g", cam.FOV))
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		errs = append(errs, fmt.Errorf("camera near/far must satisfy 0 < near < far, got %g/%g", cam.Near, cam.Far))
	}
	if cam.Eye == cam.Center {
		errs = append(errs, errors.New("camera.eye and camera.center must differ"))
	}
	if cam.Up == ([3]float64{}) {
		errs = append(errs, errors.New("camera.up must be non-zero"))
	} else if cam.Eye != cam.Center && parallel(cam.Up, sub(cam.Eye, cam.Center)) {
		errs = append(errs, errors.New("camera.up must not be parallel to the view direction"))
	}
	for name, slot := range map[string]KernelSlot{
		"render":   c.Kernels.Render,
		"position": c.Kernels.Position,
		"velocity": c.Kernels.Velocity,
	} {
		switch {
		case slot.Builtin != "" && slot.IsFile():
			errs = append(errs, fmt.Errorf("kernels.%s sets both builtin %q and shader files", name, slot.Builtin))
		case slot.Builtin == "" && (slot.Vertex == "" || slot.Fragment == ""):
			errs = append(errs, fmt.Errorf("kernels.%s needs a builtin name or both vertex and fragment paths", name))
		}
	}
	if c.GPU.ErrorCheckInterval < 0 {
		errs = append(errs, errors.New("gpu.error_check_interval must be >= 0"))
	}
	return errors.Join(errs...)
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// parallel reports whether a and b point along the same line, to within
// a relative tolerance.
func parallel(a, b [3]float64) bool {
	cx := a[1]*b[2] - a[2]*b[1]
	cy := a[2]*b[0] - a[0]*b[2]
	cz := a[0]*b[1] - a[1]*b[0]
	cross := math.Sqrt(cx*cx + cy*cy + cz*cz)
	la := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
	lb := math.Sqrt(b[0]*b[0] + b[1]*b[1] + b[2]*b[2])
	return cross <= 1e-6*la*lb
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ParticleCount = c.Simulation.GridSize * c.Simulation.GridSize
}

// Refresh re-validates and recomputes derived values after in-place edits.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
