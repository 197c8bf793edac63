/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Structured logging for protodec. Wraps logrus with JSON, text and custom
formats, optional timestamped log files with old-file cleanup, and helpers for the events
a decode run produces: captures loaded, spans found, schemas recovered, failures.
Logs go to stderr so schema text on stdout stays clean.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

const filePrefix = "protodec_"

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level     LogLevel  `mapstructure:"level" json:"level" toml:"level"`
	Format    LogFormat `mapstructure:"format" json:"format" toml:"format"`
	OutputDir string    `mapstructure:"output_dir" json:"output_dir" toml:"output_dir"`
	MaxFiles  int       `mapstructure:"max_files" json:"max_files" toml:"max_files"`
	Timestamp bool      `mapstructure:"timestamp" json:"timestamp" toml:"timestamp"`
	Caller    bool      `mapstructure:"caller" json:"caller" toml:"caller"`
	Colors    bool      `mapstructure:"colors" json:"colors" toml:"colors"`
}

// DefaultLoggerConfig logs custom-formatted info lines to the console only.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatCustom,
		MaxFiles:  10,
		Timestamp: true,
		Colors:    true,
	}
}

// Validate checks the LoggerConfig for invalid or missing values.
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" && c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive when output_dir is set")
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	return nil
}

// Logger provides structured logging for decode runs
type Logger struct {
	config     *LoggerConfig
	logger     *logrus.Logger
	fileHandle *os.File
	filePath   string
	startTime  time.Time
}

// NewLogger creates a logger writing to console and, when OutputDir is set,
// to a timestamped file.
func NewLogger(config *LoggerConfig, console io.Writer) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if console == nil {
		console = os.Stderr
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(config.Caller)
	l.setFormatter(colorsEnabled(config.Colors, console))

	l.logger.SetOutput(console)
	if err := l.setupFileOutput(console); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

// colorsEnabled only allows ANSI colors on a terminal.
func colorsEnabled(want bool, w io.Writer) bool {
	if !want {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *Logger) setFormatter(colors bool) {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}
	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      colors,
			DisableColors:    !colors,
			CallerPrettyfier: prettyCaller,
		})
	default:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    colors,
		})
	}
}

// setupFileOutput opens <OutputDir>/protodec_<timestamp>.log and tees output to it.
func (l *Logger) setupFileOutput(console io.Writer) error {
	if l.config.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("%s%s.log", filePrefix, time.Now().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(l.config.OutputDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.fileHandle = file
	l.filePath = path
	l.logger.SetOutput(io.MultiWriter(console, file))

	l.logger.WithFields(logrus.Fields{
		"log_file": path,
		"level":    l.config.Level,
		"format":   l.config.Format,
	}).Debug("protodec logging initialized")
	return nil
}

// FilePath is the active log file, or "" when logging to console only.
func (l *Logger) FilePath() string { return l.filePath }

// cleanup removes the oldest log files beyond MaxFiles.
func (l *Logger) cleanup() error {
	if l.config.OutputDir == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(l.config.OutputDir, filePrefix+"*.log"))
	if err != nil {
		return err
	}
	if len(files) <= l.config.MaxFiles {
		return nil
	}

	// Names embed the start timestamp, so lexical order is age order.
	sort.Strings(files)
	for _, f := range files[:len(files)-l.config.MaxFiles] {
		os.Remove(f)
	}
	return nil
}

// LogCapture logs a capture entering the pipeline.
func (l *Logger) LogCapture(captureID, source string, size int, fields map[string]interface{}) {
	f := withFields(fields)
	f["capture_id"] = captureID
	f["source"] = source
	f["size"] = size
	l.logger.WithFields(f).Info("Capture loaded")
}

// LogSpan logs an embedded message located by the scanner.
func (l *Logger) LogSpan(captureID string, start, end int, fields map[string]interface{}) {
	f := withFields(fields)
	f["capture_id"] = captureID
	f["start"] = start
	f["end"] = end
	l.logger.WithFields(f).Info("Embedded message found")
}

// LogSchema logs a recovered schema.
func (l *Logger) LogSchema(mode string, samples, messages int, fields map[string]interface{}) {
	f := withFields(fields)
	f["mode"] = mode
	f["samples"] = samples
	f["messages"] = messages
	l.logger.WithFields(f).Info("Schema inferred")
}

// LogDecodeFailure logs a capture that could not be decoded.
func (l *Logger) LogDecodeFailure(captureID string, err error, fields map[string]interface{}) {
	f := withFields(fields)
	f["capture_id"] = captureID
	f["error"] = err.Error()
	l.logger.WithFields(f).Warn("Decode failed")
}

// LogStats logs run statistics.
func (l *Logger) LogStats(captures, decoded, failed int64, fields map[string]interface{}) {
	f := withFields(fields)
	f["captures"] = captures
	f["decoded"] = decoded
	f["failed"] = failed
	f["uptime"] = time.Since(l.startTime)
	l.logger.WithFields(f).Info("Statistics update")
}

func withFields(fields map[string]interface{}) logrus.Fields {
	f := make(logrus.Fields, len(fields)+4)
	for k, v := range fields {
		f[k] = v
	}
	return f
}

// Close closes the log file and prunes old ones.
func (l *Logger) Close() error {
	if l.fileHandle != nil {
		l.fileHandle.Close()
		l.fileHandle = nil
	}
	if err := l.cleanup(); err != nil {
		return fmt.Errorf("failed to cleanup log files: %w", err)
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Debug(msg)
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Info(msg)
}

func (l *Logger) Warning(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Error(msg)
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the process-wide logger, creating a console logger on first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger, _ = NewLogger(DefaultLoggerConfig(), os.Stderr)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
