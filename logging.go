package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LogManager handles console logging with an optional log file
type LogManager struct {
	logFile     *os.File
	logger      *slog.Logger
	logFilePath string
}

// LogLevelForVerbosity maps the -v count to a log level (0: warn, 1: info, 2+: debug)
func LogLevelForVerbosity(verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// NewLogManager creates a log manager writing to the console and, when
// logsDir is set, to a timestamped file in that directory.
func NewLogManager(console io.Writer, level slog.Level, logsDir string) *LogManager {
	lm := &LogManager{}
	out := console

	if logsDir != "" {
		if err := lm.openLogFile(logsDir); err != nil {
			fmt.Fprintf(console, "Warning: Failed to open log file: %v\n", err)
		} else {
			out = io.MultiWriter(console, lm.logFile)
		}
	}

	lm.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	if lm.logFilePath != "" {
		lm.LogInfo("Log file created", "path", lm.logFilePath)
	}
	return lm
}

// NewDiscardLogManager creates a log manager that drops everything (useful for tests)
func NewDiscardLogManager() *LogManager {
	return &LogManager{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (lm *LogManager) openLogFile(logsDir string) error {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return err
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	lm.logFilePath = filepath.Join(logsDir, fmt.Sprintf("cec-input_%s.log", timestamp))

	var err error
	lm.logFile, err = os.OpenFile(lm.logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		lm.logFilePath = ""
	}
	return err
}

// With returns a log manager that adds the key/value pairs to every record
func (lm *LogManager) With(keyValuePairs ...any) *LogManager {
	return &LogManager{
		logFile:     lm.logFile,
		logger:      lm.logger.With(keyValuePairs...),
		logFilePath: lm.logFilePath,
	}
}

// LogDebug logs a debug message
func (lm *LogManager) LogDebug(message string, keyValuePairs ...any) {
	lm.logger.Debug(message, keyValuePairs...)
}

// LogInfo logs an informational message
func (lm *LogManager) LogInfo(message string, keyValuePairs ...any) {
	lm.logger.Info(message, keyValuePairs...)
}

// LogWarning logs a warning message
func (lm *LogManager) LogWarning(message string, keyValuePairs ...any) {
	lm.logger.Warn(message, keyValuePairs...)
}

// LogError logs an error message
func (lm *LogManager) LogError(message string, err error, keyValuePairs ...any) {
	if err != nil {
		keyValuePairs = append([]any{"error", err}, keyValuePairs...)
	}
	lm.logger.Error(message, keyValuePairs...)
}

// LogKeyEvent logs a key transition sent to the input device
func (lm *LogManager) LogKeyEvent(button string, target string, transition Transition) {
	lm.LogInfo("Sending key", "button", button, "key", target, "transition", transition.String())
}

// GetLogFilePath returns the current log file path
func (lm *LogManager) GetLogFilePath() string {
	return lm.logFilePath
}

// Close closes the log file
func (lm *LogManager) Close() {
	if lm.logFile != nil {
		lm.LogInfo("Closing log file")
		lm.logFile.Close()
		lm.logFile = nil
	}
}
