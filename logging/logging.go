// Package logging provides the shared slog backend for mindvault
// binaries: one backend, per-subsystem loggers, stderr plus a rotating
// log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogBackend multiplexes log output to stderr and a rotating file and
// hands out per-subsystem loggers.
type LogBackend struct {
	backend *slog.Backend
	rotator *rotator.Rotator

	mu           sync.Mutex
	loggers      map[string]slog.Logger
	defaultLevel slog.Level
	levels       map[string]slog.Level
}

// logWriter tees writes to stderr and the rotator.
type logWriter struct {
	r *rotator.Rotator
}

func (w logWriter) Write(p []byte) (int, error) {
	os.Stderr.Write(p)
	if w.r != nil {
		return w.r.Write(p)
	}
	return len(p), nil
}

// NewLogBackend creates a backend writing to logFile (rotated at 32 MB,
// keeping 3 rolls) and stderr. debugLevel is either a single level name
// ("info") or a comma list of subsys=level pairs ("CLNT=debug,WTCH=trace"),
// applied to loggers as they are created.
func NewLogBackend(logFile, debugLevel string) (*LogBackend, error) {
	var r *rotator.Rotator
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		var err error
		r, err = rotator.New(logFile, 32*1024, false, 3)
		if err != nil {
			return nil, fmt.Errorf("create log rotator: %w", err)
		}
	}

	b := &LogBackend{
		backend:      slog.NewBackend(logWriter{r: r}),
		rotator:      r,
		loggers:      make(map[string]slog.Logger),
		defaultLevel: slog.LevelInfo,
		levels:       make(map[string]slog.Level),
	}
	if err := b.setDebugLevels(debugLevel); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LogBackend) setDebugLevels(spec string) error {
	if spec == "" {
		return nil
	}
	if !strings.Contains(spec, "=") {
		lvl, ok := slog.LevelFromString(spec)
		if !ok {
			return fmt.Errorf("unknown log level %q", spec)
		}
		b.defaultLevel = lvl
		return nil
	}
	for _, pair := range strings.Split(spec, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("bad debug level pair %q", pair)
		}
		lvl, ok := slog.LevelFromString(kv[1])
		if !ok {
			return fmt.Errorf("unknown log level %q", kv[1])
		}
		b.levels[strings.ToUpper(kv[0])] = lvl
	}
	return nil
}

// Logger returns the logger for a subsystem, creating it on first use.
func (b *LogBackend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	l := b.backend.Logger(subsystem)
	lvl := b.defaultLevel
	if override, ok := b.levels[strings.ToUpper(subsystem)]; ok {
		lvl = override
	}
	l.SetLevel(lvl)
	b.loggers[subsystem] = l
	return l
}

// Close flushes and closes the rotating file.
func (b *LogBackend) Close() error {
	if b.rotator != nil {
		return b.rotator.Close()
	}
	return nil
}
