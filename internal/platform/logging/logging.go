package logging

import (
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/automaxprocs/maxprocs"
)

// New installs a JSON logger on w as the default and sizes GOMAXPROCS to the
// container quota. Debug lowers the level and adds source locations.
func New(w io.Writer, component string, debug bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: debug,
			Level:     level,
		}),
	)
	slog.SetDefault(logger)

	printf := func(format string, v ...any) {
		logger.Info(fmt.Sprintf(format, v...), "component", component)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(printf)); err != nil {
		return nil, fmt.Errorf("set maxprocs: %w", err)
	}
	return logger, nil
}
