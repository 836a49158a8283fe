package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/services"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
)

const (
	serviceName    = "pagepulse-companion"
	serviceVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	var (
		configPath     = flag.String("config", "", "Path to configuration file")
		mode           = flag.String("mode", "dev", "Environment mode: 'dev', 'development', 'prod', or 'production'")
		quiet          = flag.Bool("quiet", false, "Suppress banner output")
		version        = flag.Bool("version", false, "Show version information")
		help           = flag.Bool("help", false, "Show help message")
		validateConfig = flag.Bool("validate", false, "Validate configuration, print the resolved settings, and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s (build: %s)\n", serviceName, common.GetVersion(), common.GetBuild())
		os.Exit(0)
	}

	if *help {
		showHelp()
		os.Exit(0)
	}

	environment := parseMode(*mode)

	if *configPath != "" {
		if _, err := os.Stat(*configPath); os.IsNotExist(err) {
			common.PrintWarning(fmt.Sprintf("Config file not found at %s, using defaults", *configPath))
		}
	}

	// Load configuration with priority: defaults -> TOML -> environment
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		common.PrintError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	// Update environment from command line
	cfg.Companion.Environment = environment

	if *validateConfig {
		common.PrintSuccess("Configuration is valid")
		rendered, err := toml.Marshal(cfg)
		if err != nil {
			common.PrintError(fmt.Sprintf("Failed to render configuration: %v", err))
			os.Exit(1)
		}
		fmt.Println()
		fmt.Print(string(rendered))
		os.Exit(0)
	}

	if err := common.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger := common.GetLogger()

	// Log startup information first to ensure log file is created
	logger.Info().
		Str("version", common.GetVersion()).
		Str("build", common.GetBuild()).
		Str("environment", environment).
		Msg("Starting PagePulse Companion")

	logger.Info().
		Str("config_path", *configPath).
		Msg("Configuration loaded")

	if !*quiet {
		logFilePath := common.GetLogFilePath()
		common.PrintBanner(serviceName, environment, cfg.Companion.Port, cfg.Analysis.BaseURL, logFilePath)
	}

	logger.Info().Msg("Initializing services...")

	store, err := services.NewHistoryStorage(&cfg.Storage, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize storage")
		os.Exit(1)
	}
	defer store.Close()

	// Load persisted history up front so any schema migration happens
	// before the first request arrives
	entries, err := store.LoadOrMigrate()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load history")
		os.Exit(1)
	}
	logger.Info().Int("entries", len(entries)).Msg("History loaded")

	analyzer := services.NewAnalyzer(cfg, store, logger)

	logger.Info().Msg("Services initialized successfully")

	runServerMode(cfg, store, analyzer, logger)

	if !*quiet {
		common.PrintShutdownBanner(serviceName)
	}

	logger.Info().Msg("PagePulse Companion shutdown complete")
}

func runServerMode(cfg *common.Config, store interfaces.HistoryStore, analyzer interfaces.Analyzer, logger arbor.ILogger) {
	logger.Info().Msg("Starting in server mode")

	webServer, err := services.NewWebServer(cfg, store, analyzer, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create web server")
		return
	}

	ctx := context.Background()
	if err := webServer.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start web server")
		return
	}

	logger.Info().
		Int("port", cfg.Companion.Port).
		Msg("Web server started successfully")

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("Server running - press Ctrl+C to stop")

	<-sigChan
	logger.Info().Msg("Shutdown signal received")

	if err := webServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping web server")
	}

	logger.Info().Msg("Server mode shutdown complete")
}

func parseMode(mode string) string {
	mode = strings.ToLower(mode)
	switch mode {
	case "prod", "production":
		return "production"
	case "dev", "development":
		return "development"
	default:
		return "development"
	}
}

func showHelp() {
	fmt.Printf("%s v%s - Page Analysis Companion\n\n", serviceName, serviceVersion)
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags]\n\n", os.Args[0])
	fmt.Println("Flags:")
	fmt.Println("  -mode string        Environment mode: 'dev', 'development', 'prod', or 'production' (default \"dev\")")
	fmt.Println("  -config string      Configuration file path")
	fmt.Println("  -quiet              Suppress banner output")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show help message")
	fmt.Println("  -validate           Validate configuration, print the resolved settings, and exit")
	fmt.Println("\nExamples:")
	fmt.Printf("  %s                                  # Run in server mode\n", os.Args[0])
	fmt.Printf("  %s -mode prod                       # Run server in production mode\n", os.Args[0])
	fmt.Printf("  %s -config /path/to/config.toml     # Use custom config file\n", os.Args[0])
	fmt.Println("\nNote: Tab analysis needs the browser started with --remote-debugging-port=9222.")
}
