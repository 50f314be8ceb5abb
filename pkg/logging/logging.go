// pkg/logging/logging.go - Timestamped logging package for Tweaker
//
// One append-only plain-text log plus an optional JSON-lines mirror of every
// entry for external tooling. The application never rotates or truncates
// either file.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/windowsadmins/tweaker/pkg/config"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	// Define log levels.
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string onto a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "INFO", "":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LogEntry is one structured record in the JSON-lines mirror.
type LogEntry struct {
	Time       int64                  `json:"time"`
	Timestamp  string                 `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component"`
	PID        int64                  `json:"pid"`
	Hostname   string                 `json:"hostname"`
	SessionID  string                 `json:"session_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// LoggerConfig holds configuration for the file logger
type LoggerConfig struct {
	LogPath       string    // Main log file, opened for append
	EventsPath    string    // JSON-lines mirror, empty to disable
	Level         LogLevel  // Most verbose level written
	Component     string    // Component/module name
	SessionID     string    // Unique session identifier
	EnableConsole bool      // Echo main log lines to Console
	Console       io.Writer // Defaults to os.Stdout
}

// Logger encapsulates the logging functionality.
type Logger struct {
	mu       sync.RWMutex
	logger   *log.Logger
	logLevel LogLevel
	logFile  *os.File
	jsonFile *os.File
	config   LoggerConfig
	hostname string
	closed   bool
	plain    bool // console logger without ANSI colors
}

var (
	instanceMu sync.RWMutex
	instance   *Logger
)

// Init initializes the process-wide Logger from the application configuration.
// Calling it again replaces the previous logger.
func Init(cfg *config.Configuration) error {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Debug {
		level = LevelDebug
	}

	return InitWithConfig(LoggerConfig{
		LogPath:       cfg.LogPath,
		EventsPath:    filepath.Join(filepath.Dir(cfg.LogPath), "events.jsonl"),
		Level:         level,
		Component:     "tweaker",
		SessionID:     uuid.NewString(),
		EnableConsole: cfg.Verbose || cfg.Debug,
	})
}

// InitWithConfig initializes the process-wide Logger with explicit LoggerConfig.
func InitWithConfig(logCfg LoggerConfig) error {
	l, err := NewFileLogger(logCfg)
	if err != nil {
		return err
	}

	instanceMu.Lock()
	prev := instance
	instance = l
	instanceMu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return nil
}

// NewFileLogger opens the configured files and returns a Logger that is not
// installed as the process-wide instance.
func NewFileLogger(cfg LoggerConfig) (*Logger, error) {
	if cfg.LogPath == "" {
		return nil, fmt.Errorf("log path is required")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Component == "" {
		cfg.Component = "tweaker"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	l := &Logger{
		config:   cfg,
		logLevel: cfg.Level,
		hostname: hostname,
	}

	var err error
	l.logFile, err = os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open main log file: %w", err)
	}

	if cfg.EventsPath != "" {
		l.jsonFile, err = os.OpenFile(cfg.EventsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			l.logFile.Close()
			return nil, fmt.Errorf("failed to open JSON log file: %w", err)
		}
	}

	if cfg.EnableConsole {
		console := cfg.Console
		if console == nil {
			console = os.Stdout
		}
		l.logger = log.New(io.MultiWriter(console, l.logFile), "", 0)
	} else {
		l.logger = log.New(l.logFile, "", 0)
	}

	return l, nil
}

// current returns the process-wide instance, or nil before Init.
func current() *Logger {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	return instance
}

// createLogEntry creates a structured log entry
func (l *Logger) createLogEntry(level LogLevel, message string, properties map[string]interface{}) LogEntry {
	now := time.Now()
	return LogEntry{
		Time:       now.Unix(),
		Timestamp:  now.Format(time.RFC3339),
		Level:      level.String(),
		Message:    message,
		Component:  l.config.Component,
		PID:        int64(os.Getpid()),
		Hostname:   l.hostname,
		SessionID:  l.config.SessionID,
		Properties: properties,
	}
}

// Close flushes and closes the files owned by l.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			fmt.Printf("Failed to close main log file: %v\n", err)
		}
		l.logFile = nil
	}
	if l.jsonFile != nil {
		if err := l.jsonFile.Close(); err != nil {
			fmt.Printf("Failed to close JSON log file: %v\n", err)
		}
		l.jsonFile = nil
	}
	l.closed = true
}

// CloseLogger closes all log files if they're open.
func CloseLogger() {
	instanceMu.Lock()
	l := instance
	instance = nil
	instanceMu.Unlock()

	if l != nil {
		l.Close()
	}
}

// Log writes one entry at level to every configured output.
func (l *Logger) Log(level LogLevel, message string, keyValues ...interface{}) {
	l.logMessage(level, message, keyValues...)
}

// logMessage is the core logging method that writes to all configured outputs
func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logger == nil || l.closed {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level.String(), message, keyValues)
		return
	}

	if level > l.logLevel {
		return
	}

	properties := make(map[string]interface{})
	for i := 0; i+1 < len(keyValues); i += 2 {
		properties[fmt.Sprintf("%v", keyValues[i])] = keyValues[i+1]
	}

	entry := l.createLogEntry(level, message, properties)
	l.writeMainLog(entry, keyValues)
	if l.jsonFile != nil {
		l.writeJSONLog(entry)
	}
	l.syncFiles()
}

// writeMainLog writes to the main log file in traditional format
func (l *Logger) writeMainLog(entry LogEntry, keyValues []interface{}) {
	ts := time.Unix(entry.Time, 0).Format("2006-01-02 15:04:05")
	baseLine := fmt.Sprintf("[%s] %-5s %s", ts, entry.Level, entry.Message)

	if len(keyValues)/2 > 4 {
		for i := 0; i+1 < len(keyValues); i += 2 {
			baseLine += fmt.Sprintf("\n        %v: %v", keyValues[i], keyValues[i+1])
		}
	} else {
		for i := 0; i+1 < len(keyValues); i += 2 {
			baseLine += fmt.Sprintf(" %v=%v", keyValues[i], keyValues[i+1])
		}
	}

	l.logger.Println(baseLine)
}

// writeJSONLog writes one JSON object per line
func (l *Logger) writeJSONLog(entry LogEntry) {
	if data, err := json.Marshal(entry); err == nil {
		l.jsonFile.Write(append(data, '\n'))
	}
}

// syncFiles forces sync on all open log files
func (l *Logger) syncFiles() {
	if l.logFile != nil {
		l.logFile.Sync()
	}
	if l.jsonFile != nil {
		l.jsonFile.Sync()
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGreen  = "\033[32m"
)

func logAt(level LogLevel, message string, keyValues []interface{}) {
	l := current()
	if l == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level.String(), message, keyValues)
		return
	}
	l.logMessage(level, message, keyValues...)
}

// Info logs informational messages.
func Info(message string, keyValues ...interface{}) {
	logAt(LevelInfo, message, keyValues)
}

// Debug logs debug messages.
func Debug(message string, keyValues ...interface{}) {
	logAt(LevelDebug, message, keyValues)
}

// Warn logs warning messages.
func Warn(message string, keyValues ...interface{}) {
	logAt(LevelWarn, message, keyValues)
}

// Error logs error messages.
func Error(message string, keyValues ...interface{}) {
	logAt(LevelError, message, keyValues)
}

// LogStructured logs a message with explicit properties.
func LogStructured(level LogLevel, message string, properties map[string]interface{}) {
	keyValues := make([]interface{}, 0, len(properties)*2)
	for k, v := range properties {
		keyValues = append(keyValues, k, v)
	}
	logAt(level, message, keyValues)
}

// GetSessionID returns the current session ID
func GetSessionID() string {
	l := current()
	if l == nil {
		return ""
	}
	return l.config.SessionID
}

// GetLogPath returns the main log file of the process-wide logger.
func GetLogPath() string {
	l := current()
	if l == nil {
		return ""
	}
	return l.config.LogPath
}

// New creates a console-only Logger instance.
func New(verbose bool) *Logger {
	enableColors()

	output := os.Stdout
	if !verbose {
		output = os.Stderr
	}
	return &Logger{
		logger:   log.New(output, "", 0),
		logLevel: LevelInfo,
	}
}

// SetColors turns ANSI colors on or off, e.g. when output is not a terminal.
func (l *Logger) SetColors(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.plain = !on
}

// SetOutput changes the output destination.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// colorPrintf prints a colored message.
func (l *Logger) colorPrintf(color, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	if l.plain {
		l.logger.Printf("[%s] %s", ts, msg)
		return
	}
	l.logger.Printf("%s[%s] %s%s", color, ts, msg, colorReset)
}

// Printf prints a regular message.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	l.logger.Printf("[%s] %s", ts, msg)
}

// Info prints an informational message (instance method counterpart to the package-level Info).
func (l *Logger) Info(format string, v ...interface{}) {
	l.Printf(format, v...)
}

// Success prints a success message in green.
func (l *Logger) Success(format string, v ...interface{}) {
	l.colorPrintf(colorGreen, format, v...)
}

// Error prints an error message in red.
func (l *Logger) Error(format string, v ...interface{}) {
	l.colorPrintf(colorRed, format, v...)
}

// Warning prints a warning message in yellow.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.colorPrintf(colorYellow, format, v...)
}

// Debug prints a debug message in blue.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.colorPrintf(colorBlue, format, v...)
}

// Fatal prints an error message in red and exits.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.Error(format, v...)
	os.Exit(1)
}
