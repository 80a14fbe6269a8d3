// Package logging provides config-driven categorized logging for clausecheck.
// Every category shares one zap core; categories can be switched off individually
// and debug output is only emitted when debug_mode is enabled.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config resolution
	CategoryPipeline  Category = "pipeline"  // Orchestrator runs
	CategoryStep      Category = "step"      // Individual reasoning stages
	CategoryRetrieval Category = "retrieval" // Index build and search
	CategoryStore     Category = "store"     // Snapshot persistence
	CategoryEmbedding Category = "embedding" // Embedding engines
	CategoryLLM       Category = "llm"       // Language-model calls
	CategoryExtract   Category = "extract"   // Document-to-text conversion
	CategoryAPI       Category = "api"       // HTTP front door
)

// AllCategories lists every category in a stable order.
var AllCategories = []Category{
	CategoryBoot, CategoryPipeline, CategoryStep, CategoryRetrieval, CategoryStore,
	CategoryEmbedding, CategoryLLM, CategoryExtract, CategoryAPI,
}

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid an import cycle with the config package.
type Options struct {
	DebugMode  bool
	Level      string // debug, info, warn, error
	Format     string // json, console
	Categories map[string]bool
	OutputPath string // empty = stderr
}

// Logger is a category-scoped logger. The zero value is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize builds the shared zap logger from opts and resets the category cache.
// It returns the root logger so the CLI can use it directly.
func Initialize(o Options) (*zap.Logger, error) {
	var cfg zap.Config
	if o.DebugMode {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	level, err := parseLevel(o.Level, o.DebugMode)
	if err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	switch o.Format {
	case "json":
		cfg.Encoding = "json"
	case "console", "text":
		cfg.Encoding = "console"
	case "":
		// zap default for the chosen profile
	default:
		return nil, fmt.Errorf("unsupported log format: %s (use json or console)", o.Format)
	}

	if o.OutputPath != "" {
		cfg.OutputPaths = []string{o.OutputPath}
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	root, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(root, o)
	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s debug_mode=%v", level, cfg.Encoding, o.DebugMode)
	return root, nil
}

// parseLevel maps the configured level. Without debug_mode nothing below warn is emitted.
func parseLevel(level string, debug bool) (zapcore.Level, error) {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info", "":
		lvl = zapcore.InfoLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		return lvl, fmt.Errorf("unsupported log level: %s", level)
	}
	if !debug && lvl < zapcore.WarnLevel {
		lvl = zapcore.WarnLevel
	}
	return lvl, nil
}

// SetLogger installs root as the shared logger. Tests use it with zaptest/observer cores.
func SetLogger(root *zap.Logger, o Options) {
	if root == nil {
		root = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = root
	opts = o
	loggers = make(map[Category]*Logger)
}

// IsCategoryEnabled reports whether a category is switched on.
// Categories absent from the map are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

func categoryEnabled(category Category) bool {
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) the logger for a category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var l *Logger
	if categoryEnabled(category) {
		l = &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	} else {
		l = &Logger{category: category}
	}
	loggers[category] = l
	return l
}

// Zap returns the shared root logger.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Zap().Sync()
}

// With returns a child logger carrying structured fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.Desugar().With(fields...).Sugar()}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Pipeline logs to the pipeline category
func Pipeline(format string, args ...interface{}) {
	Get(CategoryPipeline).Info(format, args...)
}

// PipelineDebug logs debug to the pipeline category
func PipelineDebug(format string, args ...interface{}) {
	Get(CategoryPipeline).Debug(format, args...)
}

// Step logs to the step category
func Step(format string, args ...interface{}) {
	Get(CategoryStep).Info(format, args...)
}

// StepDebug logs debug to the step category
func StepDebug(format string, args ...interface{}) {
	Get(CategoryStep).Debug(format, args...)
}

// Retrieval logs to the retrieval category
func Retrieval(format string, args ...interface{}) {
	Get(CategoryRetrieval).Info(format, args...)
}

// RetrievalDebug logs debug to the retrieval category
func RetrievalDebug(format string, args ...interface{}) {
	Get(CategoryRetrieval).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Embedding logs to the embedding category
func Embedding(format string, args ...interface{}) {
	Get(CategoryEmbedding).Info(format, args...)
}

// EmbeddingDebug logs debug to the embedding category
func EmbeddingDebug(format string, args ...interface{}) {
	Get(CategoryEmbedding).Debug(format, args...)
}

// LLM logs to the llm category
func LLM(format string, args ...interface{}) {
	Get(CategoryLLM).Info(format, args...)
}

// LLMDebug logs debug to the llm category
func LLMDebug(format string, args ...interface{}) {
	Get(CategoryLLM).Debug(format, args...)
}

// LLMError logs an error to the llm category
func LLMError(format string, args ...interface{}) {
	Get(CategoryLLM).Error(format, args...)
}

// Extract logs to the extract category
func Extract(format string, args ...interface{}) {
	Get(CategoryExtract).Info(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration when stopped.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer starts timing an operation in a category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
