// Package logging provides categorized file-based debug logging for
// typeahead. Each category writes its own dated file under the configured
// log directory. When debug mode is off the whole package is a no-op, so
// call sites never guard their log statements.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config, shutdown
	CategoryA11y      Category = "a11y"      // Bridge events, wire decoding
	CategoryMatcher   Category = "matcher"   // Target matching decisions
	CategoryScheduler Category = "scheduler" // Debounce/request state machine
	CategoryAPI       Category = "api"       // Completion backend calls
	CategoryOverlay   Category = "overlay"   // Suggestion presentation
	CategoryInject    Category = "inject"    // Key injection commands
	CategoryStore     Category = "store"     // Prediction history store
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options controls the logging subsystem. Zero value means disabled.
type Options struct {
	Enabled bool
	Dir     string
	Level   string // debug/info/warn/error, defaults to info
}

// Logger wraps a standard logger bound to one category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	opts     Options
	logLevel = LevelInfo
)

// Configure enables or disables file logging. Call once at startup, before
// any Get; reconfiguring later closes nothing and is only meant for tests.
func Configure(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	opts = o
	loggers = make(map[Category]*Logger)

	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	if !o.Enabled {
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("logging: dir required when enabled")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("logging: create log dir: %w", err)
	}
	return nil
}

// Enabled reports whether file logging is active.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.Enabled
}

// Get returns (or creates) the logger for a category. Returns a no-op
// logger when logging is disabled or the file cannot be opened.
func Get(category Category) *Logger {
	mu.RLock()
	if !opts.Enabled || opts.Dir == "" {
		mu.RUnlock()
		return &Logger{category: category}
	}
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

	// Date prefix keeps rotation a matter of deleting old files.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Close flushes and closes all open category files.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message. Errors are always written if a file is open.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// Convenience helpers for the hot categories.

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func Matcher(format string, args ...interface{}) {
	Get(CategoryMatcher).Info(format, args...)
}

func MatcherDebug(format string, args ...interface{}) {
	Get(CategoryMatcher).Debug(format, args...)
}

func Scheduler(format string, args ...interface{}) {
	Get(CategoryScheduler).Info(format, args...)
}

func SchedulerDebug(format string, args ...interface{}) {
	Get(CategoryScheduler).Debug(format, args...)
}

func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}
