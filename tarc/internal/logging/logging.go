package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	slogmulti "github.com/samber/slog-multi"
)

// Setup configures the global slog logger. Console output goes to console,
// which is stderr for tarc so archives can be written to stdout.
// If logOutputDir is non-empty, logs are also written as JSON to a
// timestamped file in that directory.
func Setup(levelStr string, logOutputDir string, console io.Writer) error {
	level := ParseLevel(levelStr)

	consoleHandler := tint.NewHandler(console, &tint.Options{Level: level})

	if logOutputDir != "" {
		logDir := os.ExpandEnv(logOutputDir)

		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create log output directory")
		}

		timestamp := time.Now().Format("20060102_150405")
		logFilePath := filepath.Join(logDir, fmt.Sprintf("tarc_%s.log", timestamp))

		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "failed to create log file")
		}

		fileHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level})

		slog.SetDefault(slog.New(
			slogmulti.Fanout(consoleHandler, fileHandler),
		))

		slog.Debug("logging to file", "path", logFilePath)
	} else {
		slog.SetDefault(slog.New(consoleHandler))
	}

	return nil
}

// ParseLevel converts a string log level to slog.Level
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
