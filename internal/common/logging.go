package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const logFileName = "pagepulse-companion.log"

var (
	logger arbor.ILogger
	mu     sync.RWMutex
)

func GetLogger() arbor.ILogger {
	mu.RLock()
	if logger != nil {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if logger == nil {
		logger = initDefaultLogger()
	}
	return logger
}

// GetLogFilePath returns the actual configured log file path from the arbor logger
func GetLogFilePath() string {
	mu.RLock()
	currentLogger := logger
	mu.RUnlock()

	if currentLogger != nil {
		if logFilePath := currentLogger.GetLogFilePath(); logFilePath != "" {
			return logFilePath
		}
	}

	// Fallback to default path if logger not initialized or no file writer configured
	execPath, err := os.Executable()
	if err != nil {
		return filepath.Join("logs", logFileName)
	}
	execDir := filepath.Dir(execPath)
	return filepath.Join(execDir, "logs", logFileName)
}

func InitLogger(config *LoggingConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		return nil // Already initialized
	}

	var err error
	logger, err = createLogger(config)
	return err
}

func initDefaultLogger() arbor.ILogger {
	config := DefaultLoggingConfig()
	logger, err := createLogger(config)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize default logger: %v\n", err)
		return arbor.NewLogger()
	}
	return logger
}

func createLogger(config *LoggingConfig) (arbor.ILogger, error) {
	// Logs live next to the executable
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	execDir := filepath.Dir(execPath)

	logsDir := filepath.Join(execDir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	l := arbor.NewLogger()

	if config.Output == "both" || config.Output == "file" || config.Output == "" {
		logFile := filepath.Join(logsDir, logFileName)
		l = l.WithFileWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeFile,
			FileName:         logFile,
			TimeFormat:       "15:04:05",
			MaxSize:          int64(config.MaxSize * 1024 * 1024), // Convert MB to bytes
			MaxBackups:       config.MaxBackups,
			TextOutput:       true,
			DisableTimestamp: false,
		})
	}

	if config.Output == "both" || config.Output == "console" || config.Output == "" {
		l = l.WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			TextOutput:       true,
			DisableTimestamp: false,
		})
	}

	l = l.WithLevelFromString(config.Level)

	// Write one line immediately so the log file exists from startup
	l.Info().Msg("PagePulse Companion logger initialized")

	return l, nil
}

func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:      "info",
		Format:     "text",
		Output:     "both",
		MaxSize:    100,
		MaxBackups: 3,
	}
}
