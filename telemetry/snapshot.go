package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pthm-cable/particles/gpu"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds both state textures and enough context to resume a run.
type Snapshot struct {
	Version int    `json:"version"`
	RNGSeed int64  `json:"rng_seed"`
	Tick    uint64 `json:"tick"`

	GridSize int `json:"grid_size"`

	// Kernel names in render, position, velocity order
	Kernels [3]string `json:"kernels"`

	// Row-major RGBA texels, grid_size^2 * 4 floats each
	Position Texels `json:"position"`
	Velocity Texels `json:"velocity"`
}

// Texels is a host-side copy of a state texture. It encodes as a JSON
// array of numbers, with NaN and infinities written as the strings
// "NaN", "+Inf" and "-Inf" so a diverged run can still be saved.
type Texels []float32

// MarshalJSON implements json.Marshaler.
func (t Texels) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(t)*8)
	buf = append(buf, '[')
	for i, v := range t {
		if i > 0 {
			buf = append(buf, ',')
		}
		f := float64(v)
		switch {
		case math.IsNaN(f):
			buf = append(buf, `"NaN"`...)
		case math.IsInf(f, 1):
			buf = append(buf, `"+Inf"`...)
		case math.IsInf(f, -1):
			buf = append(buf, `"-Inf"`...)
		default:
			buf = strconv.AppendFloat(buf, f, 'g', -1, 32)
		}
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Texels) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}
	out := make(Texels, len(raw))
	for i, r := range raw {
		if len(r) > 0 && r[0] == '"' {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				return err
			}
			f, err := strconv.ParseFloat(s, 32)
			if err != nil || !(math.IsNaN(f) || math.IsInf(f, 0)) {
				return fmt.Errorf("texel %d: unexpected string %q", i, s)
			}
			out[i] = float32(f)
			continue
		}
		f, err := strconv.ParseFloat(string(r), 32)
		if err != nil {
			return fmt.Errorf("texel %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	*t = out
	return nil
}

// Validate checks that the texel arrays match the grid size.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	want := s.GridSize * s.GridSize * gpu.Channels
	if s.GridSize < 1 || len(s.Position) != want || len(s.Velocity) != want {
		return fmt.Errorf("snapshot grid %d needs %d floats per axis, got %d/%d: %w",
			s.GridSize, want, len(s.Position), len(s.Velocity), gpu.ErrSizeMismatch)
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads and validates a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return &snapshot, nil
}
