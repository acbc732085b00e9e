package util

import (
	"log/slog"
	"time"
)

// Trace 用法：defer util.Trace("name")()
func Trace(name string) func() {
	start := time.Now()
	slog.Debug("trace start", "name", name)
	return func() {
		slog.Info("trace done", "name", name, "elapsed", time.Since(start))
	}
}
