// pkg/logging/logging.go - leveled, session-scoped logging for Remedian.
//
// Each run writes into a timestamped directory under the configured log
// path (YYYY-MM-DD-HHMMss), with a plain-text run.log and a structured
// run.json alongside it. Old session directories are pruned on startup.

package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/windows"

	"github.com/windowsadmins/remedian/pkg/config"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
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

func levelFromString(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// LogEntry is the structured record written to run.json.
type LogEntry struct {
	Time       int64                  `json:"time"`
	Timestamp  string                 `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Item       string                 `json:"item,omitempty"`
	Hostname   string                 `json:"hostname"`
	PID        int                    `json:"pid"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Logger encapsulates file logging for one run plus a console stream.
type Logger struct {
	mu       sync.RWMutex
	logger   *log.Logger
	logLevel LogLevel
	logFile  *os.File
	jsonFile *os.File
	logDir   string
	hostname string
	item     string
}

// retainSessions is how many old session directories survive cleanup.
const retainSessions = 20

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the singleton Logger based on the provided configuration.
// It must be called before any package-level logging functions are used.
func Init(cfg *config.Configuration) error {
	var initErr error
	once.Do(func() {
		instance, initErr = newLogger(cfg)
	})
	return initErr
}

// CloseLogger flushes and closes the singleton's log files.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()
	if instance.logFile != nil {
		instance.logFile.Close()
		instance.logFile = nil
	}
	if instance.jsonFile != nil {
		instance.jsonFile.Close()
		instance.jsonFile = nil
	}
}

// LogDir returns the current session's log directory, or "" before Init.
func LogDir() string {
	if instance == nil {
		return ""
	}
	return instance.logDir
}

func newLogger(cfg *config.Configuration) (*Logger, error) {
	sessionStart := time.Now()
	logDir := filepath.Join(cfg.LogPath, sessionStart.Format("2006-01-02-150405"))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, "run.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run.log: %w", err)
	}

	jsonFile, err := os.OpenFile(filepath.Join(logDir, "run.json"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to open run.json: %w", err)
	}

	level := levelFromString(cfg.LogLevel)
	if cfg.Debug {
		level = LevelDebug
	}

	l := &Logger{
		logger:   log.New(logFile, "", 0),
		logLevel: level,
		logFile:  logFile,
		jsonFile: jsonFile,
		logDir:   logDir,
		hostname: hostname,
		item:     cfg.ItemName,
	}
	l.cleanupOldSessions(cfg.LogPath)
	return l, nil
}

// cleanupOldSessions removes all but the newest retainSessions directories.
func (l *Logger) cleanupOldSessions(baseDir string) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) <= retainSessions {
		return
	}
	sort.Strings(dirs)
	for _, old := range dirs[:len(dirs)-retainSessions] {
		os.RemoveAll(filepath.Join(baseDir, old))
	}
}

// logMessage is the core logging method writing to both files.
func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logger == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level.String(), message, keyValues)
		return
	}
	if level > l.logLevel {
		return
	}

	now := time.Now()
	line := fmt.Sprintf("[%s] %-5s %s", now.Format("2006-01-02 15:04:05"), level.String(), message)
	properties := make(map[string]interface{})
	for i := 0; i+1 < len(keyValues); i += 2 {
		key := fmt.Sprintf("%v", keyValues[i])
		properties[key] = keyValues[i+1]
		line += fmt.Sprintf(" %s=%v", key, keyValues[i+1])
	}
	l.logger.Println(line)

	if l.jsonFile != nil {
		entry := LogEntry{
			Time:       now.Unix(),
			Timestamp:  now.Format(time.RFC3339),
			Level:      level.String(),
			Message:    message,
			Item:       l.item,
			Hostname:   l.hostname,
			PID:        os.Getpid(),
			Properties: properties,
		}
		if data, err := json.Marshal(entry); err == nil {
			l.jsonFile.WriteString(string(data) + "\n")
		}
	}

	if l.logFile != nil {
		l.logFile.Sync()
	}
}

// Info logs informational messages.
func Info(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: INFO %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelInfo, message, keyValues...)
}

// Debug logs debug messages.
func Debug(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: DEBUG %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelDebug, message, keyValues...)
}

// Warn logs warning messages.
func Warn(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: WARN %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelWarn, message, keyValues...)
}

// Error logs error messages.
func Error(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: ERROR %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelError, message, keyValues...)
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGreen  = "\033[32m"
)

// enableColors enables ANSI colors for the Windows console.
func enableColors() {
	if runtime.GOOS == "windows" {
		handle := windows.Handle(windows.STD_OUTPUT_HANDLE)
		var mode uint32
		if err := windows.GetConsoleMode(handle, &mode); err == nil {
			mode |= windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
			_ = windows.SetConsoleMode(handle, mode)
		}
	}
}

// New creates a console Logger for the mains. No file output; the
// singleton handles files once Init has run.
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

// colorPrintf prints a colored message.
func (l *Logger) colorPrintf(color, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
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

// Info prints an informational message.
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
