package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/handlers"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/middleware"

	"github.com/ternarybob/arbor"
)

// webServer provides the HTTP surface the extension popup talks to
type webServer struct {
	config      *common.Config
	store       interfaces.HistoryStore
	server      *http.Server
	logger      arbor.ILogger
	apiHandlers *handlers.APIHandlers
	uiHandlers  *handlers.UIHandlers
	wsHub       *handlers.WebSocketHub
	running     bool
	startTime   time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(cfg *common.Config, store interfaces.HistoryStore, analyzer interfaces.Analyzer, logger arbor.ILogger) (interfaces.WebService, error) {
	mux := http.NewServeMux()

	// WebSocket hub first, the API handlers broadcast through it
	wsHub := handlers.NewWebSocketHub(logger, analyzer.Busy)

	apiHandlers := handlers.NewAPIHandlers(cfg, store, analyzer, logger, wsHub)

	uiHandlers, err := handlers.NewUIHandlers(cfg, store, analyzer, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize status page, only API endpoints will be available")
	}

	ws := &webServer{
		config:      cfg,
		store:       store,
		logger:      logger,
		apiHandlers: apiHandlers,
		uiHandlers:  uiHandlers,
		wsHub:       wsHub,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Companion.Port),
			Handler: mux,
		},
	}

	logMiddleware := middleware.Logging(logger)
	corsMiddleware := middleware.CORS

	// Service endpoints
	mux.HandleFunc("/health", logMiddleware(corsMiddleware(apiHandlers.HealthHandler)))
	mux.HandleFunc("/version", logMiddleware(corsMiddleware(apiHandlers.VersionHandler)))
	mux.HandleFunc("/status", logMiddleware(corsMiddleware(apiHandlers.StatusHandler)))
	mux.HandleFunc("/config", logMiddleware(corsMiddleware(apiHandlers.ConfigHandler)))

	// Analysis endpoints
	mux.HandleFunc("/analyze", logMiddleware(corsMiddleware(apiHandlers.AnalyzeHandler)))
	mux.HandleFunc("/analyze/tab", logMiddleware(corsMiddleware(apiHandlers.AnalyzeTabHandler)))
	mux.HandleFunc("/analyze/url", logMiddleware(corsMiddleware(apiHandlers.AnalyzeURLHandler)))

	// History endpoints
	mux.HandleFunc("/history", logMiddleware(corsMiddleware(apiHandlers.HistoryHandler)))
	mux.HandleFunc("/database", logMiddleware(corsMiddleware(apiHandlers.DatabaseHandler)))

	// WebSocket endpoint for popup live updates
	mux.HandleFunc("/ws", corsMiddleware(wsHub.WebSocketHandler))

	// Status page
	if uiHandlers != nil {
		mux.HandleFunc("/", logMiddleware(uiHandlers.IndexHandler))
	}

	return ws, nil
}

// Start starts the web server
func (ws *webServer) Start(ctx context.Context) error {
	ws.running = true
	ws.startTime = time.Now()

	go func() {
		ws.logger.Info().Int("port", ws.config.Companion.Port).Msg("Starting web server")
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error().Err(err).Msg("Web server error")
		}
	}()
	return nil
}

// Stop stops the web server
func (ws *webServer) Stop() error {
	ws.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws.logger.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// IsRunning returns true if the web server is running
func (ws *webServer) IsRunning() bool {
	return ws.running
}

// Handler exposes the route table so tests can drive the full middleware
// and handler chain without binding a port
func (ws *webServer) Handler() http.Handler {
	return ws.server.Handler
}
