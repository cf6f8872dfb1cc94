// Package logging wraps log/slog with a console handler, a weekly rotating
// JSON file and package-level helpers usable before initialization.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/harithra-blueberry/aiprescription/config"
)

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

// Close releases the log file, if any.
func (s *LoggingService) Close() error {
	if s == nil || s.rotating == nil {
		return nil
	}
	return s.rotating.Close()
}

var DefaultLoggingService *LoggingService

// Options configures InitLoggerWithOptions.
type Options struct {
	Dir            string // empty disables the log file
	Env            config.Environment
	Level          string // overrides the environment default except in tests
	Verbose        bool   // test runs log at info instead of error
	RetentionWeeks int
	MaxFileSize    int64
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless
// verbose; production and staging default to warn; an explicit level
// wins everywhere else.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if level != "" {
		return parseLogLevel(level)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is the level of the rotating file, which keeps everything.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// InitLogger initializes the global logger with development defaults
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{Dir: logDir, Env: config.EnvDevelopment, RetentionWeeks: 4})
}

// InitLoggerWithRetentionAndSize initializes the global logger from config values
func InitLoggerWithRetentionAndSize(logDir string, env config.Environment, level string, retentionWeeks int, maxFileSize int64) {
	InitLoggerWithOptions(Options{
		Dir:            logDir,
		Env:            env,
		Level:          level,
		RetentionWeeks: retentionWeeks,
		MaxFileSize:    maxFileSize,
	})
}

// InitLoggerWithOptions replaces the global logger, closing the previous one
func InitLoggerWithOptions(opts Options) {
	previous := DefaultLoggingService

	DefaultLoggingService = newLoggingService(opts)
	slog.SetDefault(DefaultLoggingService.Logger)

	_ = previous.Close()
}

// Close closes the global logger's file
func Close() error {
	return DefaultLoggingService.Close()
}

func newLoggingService(opts Options) *LoggingService {
	consoleLevel := GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose)
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel})

	if opts.RetentionWeeks <= 0 {
		opts.RetentionWeeks = 4
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	// No directory means console only
	if opts.Dir == "" {
		return &LoggingService{Logger: slog.New(console)}
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		logger := slog.New(console)
		logger.Error("Failed to create logs directory, logging to console only", "error", err)
		return &LoggingService{Logger: logger}
	}

	rotating := NewRotatingLoggerWithSizeLimit(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)

	rotating.mu.Lock()
	err := rotating.doRotate(getWeekKey(time.Now()))
	rotating.mu.Unlock()
	if err != nil {
		logger := slog.New(console)
		logger.Error("Failed to open log file, logging to console only", "error", err)
		return &LoggingService{Logger: logger}
	}
	rotating.startCleanup()

	file := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: GetFileLogLevel()})

	return &LoggingService{
		Logger:   slog.New(&multiHandler{handlers: []slog.Handler{console, file}}),
		rotating: rotating,
	}
}

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return fallbackLogger
	}
	return DefaultLoggingService.Logger
}

// fallbackLogger serves calls made before InitLogger
var fallbackLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}

// Logger returns the current global logger
func Logger() *slog.Logger {
	return logger()
}
