package common

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Companion CompanionConfig `toml:"companion"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	Browser   BrowserConfig   `toml:"browser"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
}

type CompanionConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	Port        int    `toml:"port"`
}

// AnalysisConfig points at the remote scoring service. The endpoint path is
// fixed; only the base URL and timeout are configurable.
type AnalysisConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// BrowserConfig describes how to reach the user's running browser.
// The browser must be started with --remote-debugging-port.
type BrowserConfig struct {
	DebugPort      int `toml:"debug_port"`
	SettleMillis   int `toml:"settle_millis"`
	CaptureTimeout int `toml:"capture_timeout_seconds"`
}

type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

func DefaultConfig() *Config {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	defaultDBPath := filepath.Join(execDir, "data", execName+".db")

	return &Config{
		Companion: CompanionConfig{
			Name:        execName,
			Environment: "development",
			Port:        8675,
		},
		Analysis: AnalysisConfig{
			BaseURL:        "https://api.pagepulse.app",
			TimeoutSeconds: 60,
		},
		Browser: BrowserConfig{
			DebugPort:      9222,
			SettleMillis:   500,
			CaptureTimeout: 30,
		},
		Storage: StorageConfig{
			DatabasePath: defaultDBPath,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
	}
}

func LoadConfig(configFile string) (*Config, error) {
	// Load .env before reading overrides so both sources behave the same
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	config := DefaultConfig()

	if configFile == "" {
		// Auto-detect config file
		execPath, _ := os.Executable()
		execDir := filepath.Dir(execPath)
		execName := filepath.Base(execPath)
		execName = execName[:len(execName)-len(filepath.Ext(execName))]

		possiblePaths := []string{
			filepath.Join(execDir, execName+".toml"),
			filepath.Join(execDir, "config.toml"),
			"pagepulse-companion.toml",
			"config.toml",
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			applyEnvOverrides(config)
			if err := config.Validate(); err != nil {
				return nil, fmt.Errorf("invalid configuration: %w", err)
			}
			return config, nil
		}
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}

	if baseURL := os.Getenv("ANALYSIS_BASE_URL"); baseURL != "" {
		config.Analysis.BaseURL = baseURL
	}
	if timeout := os.Getenv("ANALYSIS_TIMEOUT_SECONDS"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil {
			config.Analysis.TimeoutSeconds = seconds
		}
	}

	if debugPort := os.Getenv("BROWSER_DEBUG_PORT"); debugPort != "" {
		if portNum, err := strconv.Atoi(debugPort); err == nil {
			config.Browser.DebugPort = portNum
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}
	if logOutput := os.Getenv("LOG_OUTPUT"); logOutput != "" {
		config.Logging.Output = logOutput
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if portNum, err := strconv.Atoi(port); err == nil {
			config.Companion.Port = portNum
		}
	}
}

func (c *Config) Validate() error {
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path is required")
	}

	if c.Companion.Port <= 0 {
		c.Companion.Port = 8675
	}

	if c.Analysis.BaseURL == "" {
		return fmt.Errorf("analysis base_url is required")
	}
	parsed, err := url.Parse(c.Analysis.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid analysis base_url: %s", c.Analysis.BaseURL)
	}
	if c.Analysis.TimeoutSeconds < 0 {
		return fmt.Errorf("analysis timeout_seconds must not be negative")
	}

	if c.Browser.DebugPort <= 0 || c.Browser.DebugPort > 65535 {
		return fmt.Errorf("invalid browser debug_port: %d", c.Browser.DebugPort)
	}
	if c.Browser.CaptureTimeout <= 0 {
		c.Browser.CaptureTimeout = 30
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validOutputs := []string{"console", "file", "both"}
	validOutput := false
	for _, output := range validOutputs {
		if c.Logging.Output == output {
			validOutput = true
			break
		}
	}
	if !validOutput {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

// AnalysisEndpoint returns the full URL of the page analysis endpoint
func (c *Config) AnalysisEndpoint() string {
	return c.Analysis.BaseURL + "/analysis/page"
}

func (c *Config) IsProduction() bool {
	return c.Companion.Environment == "production"
}
