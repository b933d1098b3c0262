package logger

import (
	"log/slog"
	"os"

	"snapfeed/internal/platform/config"
)

// New returns a structured JSON logger writing to stdout. Test runs get
// debug-level output so limiter failover decisions show up in suite logs.
func New(env config.Environment) *slog.Logger {
	level := slog.LevelInfo
	if env == config.EnvTest {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("env", string(env)))
}
