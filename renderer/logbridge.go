package renderer

import (
	"context"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/gpu"
)

// driverLog receives every raylib trace line once the bridge is installed.
var driverLog = &gpu.DriverLog{}

// InstallLogBridge routes raylib trace logging through logger. Call it
// before opening the window so startup lines are included.
func InstallLogBridge(logger *slog.Logger) {
	logger = logger.With("source", "raylib")
	rl.SetTraceLogCallback(func(level int, msg string) {
		driverLog.Record(msg)
		logger.Log(context.Background(), slogLevel(rl.TraceLogLevel(level)), msg)
	})
}

func slogLevel(level rl.TraceLogLevel) slog.Level {
	switch level {
	case rl.LogAll, rl.LogTrace, rl.LogDebug:
		return slog.LevelDebug
	case rl.LogInfo:
		return slog.LevelInfo
	case rl.LogWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
