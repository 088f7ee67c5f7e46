// Package logger is the process-wide leveled logger.
//
// Call sites use printf-style helpers (Info, Warn, ...). Output is produced by
// a zap SugaredLogger so the same call sites can emit either console text or
// JSON depending on configuration.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config selects the encoder and sink of the global logger.
type Config struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string

	// Format is "text" or "json"
	Format string

	// Output is "stdout", "stderr" or a file path
	Output string
}

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  = newSugar(Config{Format: "text", Output: "stdout"})
	closer func()
)

func parseLevel(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

func newSugar(cfg Config) *zap.SugaredLogger {
	l, _, _ := build(cfg)
	return l
}

func build(cfg Config) (*zap.SugaredLogger, func(), error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	sink, closeSink, err := zap.Open(output)
	if err != nil {
		sink, closeSink, _ = zap.Open("stdout")
		return zap.New(zapcore.NewCore(enc, sink, level)).Sugar(), closeSink,
			fmt.Errorf("failed to open log output %q: %w", output, err)
	}

	return zap.New(zapcore.NewCore(enc, sink, level)).Sugar(), closeSink, nil
}

// Configure rebuilds the global logger from cfg.
//
// An unknown level keeps the current one. If the output cannot be opened the
// logger falls back to stdout and the error is returned.
func Configure(cfg Config) error {
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}

	mu.Lock()
	defer mu.Unlock()

	l, closeSink, err := build(cfg)
	_ = sugar.Sync()
	if closer != nil {
		closer()
	}
	sugar, closer = l, closeSink
	return err
}

// SetLevel sets the minimum level. Unknown values are ignored.
func SetLevel(s string) {
	if l, ok := parseLevel(s); ok {
		level.SetLevel(l.zapLevel())
	}
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	switch level.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

// Sync flushes buffered log entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(format string, v ...any) {
	current().Debugf(format, v...)
}

func Info(format string, v ...any) {
	current().Infof(format, v...)
}

func Warn(format string, v ...any) {
	current().Warnf(format, v...)
}

func Error(format string, v ...any) {
	current().Errorf(format, v...)
}

// With returns a structured child logger carrying the given key/value pairs.
// Used where a line needs machine-readable fields (e.g. event notifications).
func With(keysAndValues ...any) *zap.SugaredLogger {
	return current().With(keysAndValues...)
}
