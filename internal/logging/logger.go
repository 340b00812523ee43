// Package logging provides category-keyed structured logging for fastbot.
// Until Init has configured it, Get returns a no-op logger so call sites
// never need to branch on whether logging is active.
package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a log line belongs to, mirroring the
// four core subsystems plus the ambient CLI/boot surface.
type Category string

const (
	CategoryBoot        Category = "boot"
	CategoryModel       Category = "model"
	CategoryGraph       Category = "graph"
	CategoryAgent       Category = "agent"
	CategoryPreference  Category = "preference"
	CategoryPersistence Category = "persistence"
	CategoryCLI         Category = "cli"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	loggers = make(map[Category]*Logger)
	noop    = &Logger{}
)

// Config controls where and how verbosely the logger writes.
type Config struct {
	Level      string // debug, info, warn, error
	JSONFormat bool
	File       string // empty means stderr only
}

// Init (re)configures the package-level zap logger. Safe to call once at
// process start; a zero Config logs at info level to stderr.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.JSONFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	writer := zapcore.Lock(os.Stderr)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("logging: open %s: %w", cfg.File, err)
		}
		writer = zapcore.NewMultiWriteSyncer(writer, zapcore.AddSync(f))
	}

	core := zapcore.NewCore(encoder, writer, level)
	base = zap.New(core)
	loggers = make(map[Category]*Logger)
	return nil
}

// Logger is a thin, category-scoped wrapper over a zap.SugaredLogger. The
// zero value is a safe no-op, used before Init is called.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Get returns the logger for category, creating and caching it lazily.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	if base == nil {
		return noop
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{sugar: base.Sugar().Named(string(category))}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger with the given key/value pairs attached to every
// subsequent entry, for correlating a run of log lines (e.g. device id,
// state hash) without repeating them in every format string.
func (l *Logger) With(kv ...interface{}) *Logger {
	if l == nil || l.sugar == nil {
		return noop
	}
	return &Logger{sugar: l.sugar.With(kv...)}
}
