// Package logging provides config-driven categorized logging for the
// cortex platform. Every subsystem gets its own zap logger; logging is
// gated by debug_mode the same way the rest of the ambient stack is
// gated: silent in production, structured JSON-per-category when
// enabled.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot          Category = "boot"
	CategoryStorage       Category = "storage"
	CategoryEmbedding     Category = "embedding"
	CategoryMemory        Category = "memory"
	CategoryDecay         Category = "decay"
	CategoryCompression   Category = "compression"
	CategoryRetrieval     Category = "retrieval"
	CategoryConsolidation Category = "consolidation"
	CategoryValidation    Category = "validation"
	CategoryPrivacy       Category = "privacy"
	CategoryCRDT          Category = "crdt"
	CategoryParse         Category = "parse"
	CategoryCallGraph     Category = "callgraph"
	CategoryPattern       Category = "pattern"
	CategoryTaint         Category = "taint"
	CategoryGate          Category = "gate"
	CategoryLearning      Category = "learning"
	CategoryCLI           Category = "cli"
)

// Settings mirrors the relevant fields of config.LoggingConfig. Kept as
// its own small struct to avoid an import cycle with internal/config.
type Settings struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Dir        string
	Categories map[string]bool
}

var (
	mu           sync.RWMutex
	settings     Settings
	initialized  bool
	loggers      = make(map[Category]*zap.SugaredLogger)
	loggersClose []func() error
)

// Initialize configures the logging subsystem. Safe to call once at
// process startup; a zero-value Settings leaves logging disabled.
func Initialize(s Settings) error {
	mu.Lock()
	defer mu.Unlock()

	settings = s
	initialized = true
	loggers = make(map[Category]*zap.SugaredLogger)

	if !s.DebugMode {
		return nil
	}
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			return fmt.Errorf("logging: create log dir: %w", err)
		}
	}
	return nil
}

// Shutdown flushes and closes every opened logger. Call at process exit.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
	for _, closeFn := range loggersClose {
		_ = closeFn()
	}
	loggers = make(map[Category]*zap.SugaredLogger)
	loggersClose = nil
}

func categoryEnabled(c Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !settings.DebugMode {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, ok := settings.Categories[string(c)]
	if !ok {
		return true
	}
	return enabled
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns (creating if necessary) the logger for a category. When
// the category is disabled this returns a discard logger so call sites
// never need to branch on IsEnabled themselves.
func Get(c Category) *zap.SugaredLogger {
	if !categoryEnabled(c) {
		return zap.NewNop().Sugar()
	}

	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}

	l, closeFn := buildLogger(c)
	loggers[c] = l
	if closeFn != nil {
		loggersClose = append(loggersClose, closeFn)
	}
	return l
}

func buildLogger(c Category) (*zap.SugaredLogger, func() error) {
	level := parseLevel(settings.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if settings.JSONFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer
	var closeFn func() error
	if settings.Dir != "" {
		date := time.Now().Format("2006-01-02")
		path := filepath.Join(settings.Dir, fmt.Sprintf("%s_%s.log", date, c))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			ws = zapcore.AddSync(f)
			closeFn = f.Close
		}
	}
	if ws == nil {
		ws = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewCore(encoder, ws, level)
	logger := zap.New(core).With(zap.String("category", string(c))).Sugar()
	return logger, closeFn
}

// Timer measures and logs the duration of an operation at Debug level.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing an operation under a category.
func StartTimer(c Category, operation string) *Timer {
	return &Timer{category: c, operation: operation, start: time.Now()}
}

// Stop logs and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugf("%s completed in %v", t.operation, elapsed)
	return elapsed
}

// StopWithThreshold only logs (at Warn) if the operation exceeded threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnf("%s took %v (threshold %v)", t.operation, elapsed, threshold)
	}
	return elapsed
}

// IsDebugMode reports whether logging is currently enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return settings.DebugMode
}
