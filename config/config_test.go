package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Simulation.GridSize != 64 {
		t.Errorf("expected grid size 64, got %d", cfg.Simulation.GridSize)
	}
	if cfg.Derived.ParticleCount != 64*64 {
		t.Errorf("expected %d particles, got %d", 64*64, cfg.Derived.ParticleCount)
	}
	if !cfg.Camera.RecomputeOnResize {
		t.Error("expected recompute_on_resize to default to true")
	}
	if cfg.Kernels.Position.Builtin == "" || cfg.Kernels.Velocity.Builtin == "" {
		t.Error("expected position and velocity kernel slots to be configured")
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := "simulation:\n  grid_size: 8\n  geometry_mode: point\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}

	if cfg.Simulation.GridSize != 8 {
		t.Errorf("expected grid size 8, got %d", cfg.Simulation.GridSize)
	}
	if cfg.Simulation.GeometryMode != GeometryPoint {
		t.Error("expected point geometry")
	}
	// Untouched fields keep defaults
	if cfg.Simulation.PositionSphereRadius != 100 {
		t.Errorf("expected default position radius 100, got %g", cfg.Simulation.PositionSphereRadius)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero grid", func(c *Config) { c.Simulation.GridSize = 0 }, "grid_size"},
		{"huge grid", func(c *Config) { c.Simulation.GridSize = maxGridSize + 1 }, "grid_size"},
		{"geometry", func(c *Config) { c.Simulation.GeometryMode = "wire" }, "geometry_mode"},
		{"fov", func(c *Config) { c.Camera.FOV = 180 }, "camera.fov"},
		{"near far", func(c *Config) { c.Camera.Far = c.Camera.Near }, "near/far"},
		{"eye center", func(c *Config) { c.Camera.Eye = c.Camera.Center }, "eye"},
		{"kernel slot", func(c *Config) { c.Kernels.Velocity = KernelSlot{Vertex: "a.vs"} }, "kernels.velocity"},
		{"kernel builtin and files", func(c *Config) {
			c.Kernels.Position = KernelSlot{Builtin: "drift", Vertex: "a.vs", Fragment: "a.fs"}
		}, "kernels.position"},
		{"zero up", func(c *Config) { c.Camera.Up = [3]float64{} }, "camera.up"},
		{"up along view", func(c *Config) { c.Camera.Up = [3]float64{0, -2, 0} }, "camera.up"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg := Defaults()
	cfg.Simulation.GridSize = 16
	if err := cfg.Refresh(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing yaml: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading yaml: %v", err)
	}
	if loaded.Simulation.GridSize != 16 {
		t.Errorf("expected grid size 16 after reload, got %d", loaded.Simulation.GridSize)
	}
}

func TestLoadKernelFilesReplaceDefaultBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernels.yaml")
	data := "kernels:\n  position:\n    vertex: my.vs\n    fragment: my.fs\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading kernel override: %v", err)
	}

	pos := cfg.Kernels.Position
	if pos.Builtin != "" {
		t.Errorf("expected file slot to drop default builtin, got %q", pos.Builtin)
	}
	if pos.Vertex != "my.vs" || pos.Fragment != "my.fs" {
		t.Errorf("expected my.vs/my.fs, got %q/%q", pos.Vertex, pos.Fragment)
	}
	// Slots absent from the file keep their defaults
	if cfg.Kernels.Velocity.Builtin != "attract" {
		t.Errorf("expected default velocity builtin attract, got %q", cfg.Kernels.Velocity.Builtin)
	}
}

func TestLoadRejectsBuiltinWithFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernels.yaml")
	data := "kernels:\n  velocity:\n    builtin: damp\n    vertex: my.vs\n    fragment: my.fs\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "kernels.velocity") {
		t.Errorf("expected kernels.velocity error, got %v", err)
	}
}
