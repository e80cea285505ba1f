package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// GetDebugLevel converts a debug level name to an slog.Level.
func GetDebugLevel(debugStr string) (slog.Level, error) {
	var debugLevel slog.Level
	switch debugStr {
	case "info":
		debugLevel = slog.LevelInfo
	case "warn":
		debugLevel = slog.LevelWarn
	case "error":
		debugLevel = slog.LevelError
	case "debug":
		debugLevel = slog.LevelDebug
	default:
		l, ok := slog.LevelFromString(debugStr)
		if !ok {
			return 0, fmt.Errorf("unknown debug level: %s", debugStr)
		}
		debugLevel = l
	}
	return debugLevel, nil
}

// LogConfig configures the log backend.
type LogConfig struct {
	LogFile     string
	DebugLevel  string
	MaxLogFiles int
	// UseStderr mirrors log lines to stderr so stdout stays reserved for
	// command output.
	UseStderr bool
}

// LogBackend writes every subsystem logger to a rotated log file.
type LogBackend struct {
	rotator *rotator.Rotator
	backend *slog.Backend
	level   slog.Level
}

// NewLogBackend creates the log directory and opens the rotator.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	level, err := GetDebugLevel(cfg.DebugLevel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	maxRolls := cfg.MaxLogFiles
	if maxRolls <= 0 {
		maxRolls = 3
	}
	r, err := rotator.New(cfg.LogFile, 10*1024, false, maxRolls)
	if err != nil {
		return nil, fmt.Errorf("open log rotator: %w", err)
	}

	var w io.Writer = r
	if cfg.UseStderr {
		w = io.MultiWriter(os.Stderr, r)
	}
	return &LogBackend{
		rotator: r,
		backend: slog.NewBackend(w),
		level:   level,
	}, nil
}

// Logger returns a logger for subsystem at the configured level.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	l := lb.backend.Logger(subsystem)
	l.SetLevel(lb.level)
	return l
}

// Close flushes and closes the log file.
func (lb *LogBackend) Close() error {
	return lb.rotator.Close()
}
