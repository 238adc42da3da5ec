package game

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/particles/telemetry"
)

// flushTelemetry logs and records perf and state summaries on their intervals.
func (g *Game) flushTelemetry() {
	tick := g.engine.Ticks()
	tc := g.cfg.Telemetry

	if tc.LogInterval > 0 && tick%uint64(tc.LogInterval) == 0 {
		stats := g.perf.Stats()
		if g.logStats {
			slog.Info("perf", "tick", tick, "stats", stats)
		}
		if err := g.output.WritePerf(stats, tick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	if tc.StateInterval > 0 && tick%uint64(tc.StateInterval) == 0 {
		summary, err := g.engine.Summary()
		if err != nil {
			slog.Error("failed to read back state", "error", err)
			return
		}
		if g.logStats {
			slog.Info("state", "summary", summary)
		}
		if summary.NonFinite > 0 {
			slog.Warn("non-finite particles in state", "tick", tick, "count", summary.NonFinite)
		}
		if err := g.output.WriteState(summary); err != nil {
			slog.Error("failed to write state", "error", err)
		}
	}
}

// saveFrame writes the software framebuffer as PNG on the snapshot cadence.
func (g *Game) saveFrame() {
	every := g.cfg.Telemetry.SnapshotEvery
	if g.soft == nil || g.snapshotDir == "" || every <= 0 {
		return
	}
	tick := g.engine.Ticks()
	if tick%uint64(every) != 0 {
		return
	}
	if err := os.MkdirAll(g.snapshotDir, 0755); err != nil {
		slog.Error("failed to create snapshot dir", "error", err)
		return
	}
	path := filepath.Join(g.snapshotDir, fmt.Sprintf("frame_%06d.png", tick))
	if err := g.soft.WritePNG(path); err != nil {
		slog.Error("failed to write frame", "error", err)
	}
}

// saveSnapshot writes both state textures so the run can be resumed.
func (g *Game) saveSnapshot() {
	if g.snapshotDir == "" {
		slog.Warn("snapshot requested without -snapshot-dir")
		return
	}
	snap, err := g.engine.Snapshot(g.seed)
	if err != nil {
		slog.Error("failed to read back state", "error", err)
		return
	}
	path, err := telemetry.SaveSnapshot(snap, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", snap.Tick)
}

// Finish saves a final state snapshot when a snapshot directory is set.
func (g *Game) Finish() {
	if g.snapshotDir != "" {
		g.saveSnapshot()
	}
}
