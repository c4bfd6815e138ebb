// Package logger is the process-wide zap logger of the CLI. It writes to
// stderr, shows warnings always and debug or info lines only in verbose
// mode. Console output looks like "[WARN] message"; the JSON format is meant
// for piping logs into other tools.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// FormatEnv overrides the log format when set to "json".
const FormatEnv = "CONNECT_LOG_FORMAT"

type state struct {
	mu     sync.RWMutex
	out    io.Writer
	format Format
	level  zap.AtomicLevel
	log    *zap.Logger
}

var std = func() *state {
	s := &state{out: os.Stderr, format: FormatConsole, level: zap.NewAtomicLevelAt(zapcore.WarnLevel)}
	s.rebuild()
	return s
}()

// rebuild must be called with mu held for writing, or before std escapes.
func (s *state) rebuild() {
	cfg := zapcore.EncoderConfig{
		MessageKey: "msg",
		LevelKey:   "level",
		LineEnding: zapcore.DefaultLineEnding,
	}
	var enc zapcore.Encoder
	if s.format == FormatJSON {
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.RFC3339TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg.ConsoleSeparator = " "
		cfg.EncodeLevel = func(l zapcore.Level, pe zapcore.PrimitiveArrayEncoder) {
			pe.AppendString("[" + l.CapitalString() + "]")
		}
		cfg.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	s.log = zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(s.out)), s.level))
}

// SetVerbose switches between debug and warn level.
func SetVerbose(v bool) {
	if v {
		std.level.SetLevel(zapcore.DebugLevel)
	} else {
		std.level.SetLevel(zapcore.WarnLevel)
	}
}

// IsVerbose reports whether debug lines are written.
func IsVerbose() bool {
	return std.level.Enabled(zapcore.DebugLevel)
}

// SetOutput redirects logs, os.Stderr by default.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.out = w
	std.rebuild()
}

// SetFormat selects console or JSON encoding.
func SetFormat(f Format) error {
	switch Format(strings.ToLower(string(f))) {
	case FormatConsole, "":
		f = FormatConsole
	case FormatJSON:
		f = FormatJSON
	default:
		return fmt.Errorf("unknown log format %q", f)
	}
	std.mu.Lock()
	defer std.mu.Unlock()
	std.format = f
	std.rebuild()
	return nil
}

// L returns the zap logger for structured fields.
func L() *zap.Logger {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.log
}

func Debug(format string, args ...any) { logf(zapcore.DebugLevel, format, args) }
func Info(format string, args ...any)  { logf(zapcore.InfoLevel, format, args) }

// Warn is shown even when verbose mode is off.
func Warn(format string, args ...any) { logf(zapcore.WarnLevel, format, args) }

func logf(l zapcore.Level, format string, args []any) {
	if !std.level.Enabled(l) {
		return
	}
	L().Log(l, fmt.Sprintf(format, args...))
}
