package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// APIHandlers contains all API endpoint handlers
type APIHandlers struct {
	config    *common.Config
	store     interfaces.HistoryStore
	analyzer  interfaces.Analyzer
	logger    arbor.ILogger
	startTime time.Time
	wsHub     *WebSocketHub
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Build     string    `json:"build"`
	Uptime    float64   `json:"uptime_seconds"`
	Services  struct {
		Database bool `json:"database"`
		Analysis bool `json:"analysis"`
	} `json:"services"`
}

// VersionResponse represents server version information
type VersionResponse struct {
	Server struct {
		Version string `json:"version"`
		Build   string `json:"build"`
		Commit  string `json:"commit"`
	} `json:"server"`
}

// StatusResponse represents the companion status response
type StatusResponse struct {
	Companion struct {
		Running bool    `json:"running"`
		Busy    bool    `json:"busy"`
		Uptime  float64 `json:"uptime"`
	} `json:"companion"`
	History HistoryStats `json:"history"`
}

// HistoryStats represents overall history statistics
type HistoryStats struct {
	TotalEntries int    `json:"total_entries"`
	LastAnalysis string `json:"last_analysis"`
	LastUpdate   string `json:"last_update"`
}

// ConfigResponse represents the configuration display response
type ConfigResponse struct {
	Companion *common.CompanionConfig `json:"companion"`
	Analysis  *common.AnalysisConfig  `json:"analysis"`
	Browser   *common.BrowserConfig   `json:"browser"`
	Storage   *common.StorageConfig   `json:"storage"`
	Logging   *common.LoggingConfig   `json:"logging"`
}

// AnalyzePagePayload is what the extension posts: the page URL plus the raw
// HTML it captured
type AnalyzePagePayload struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// AnalyzeURLPayload is the manual flow: a URL to fetch and analyze
type AnalyzeURLPayload struct {
	URL string `json:"url"`
}

// AnalyzeResponse wraps an analysis outcome for the popup
type AnalyzeResponse struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message,omitempty"`
	Error         string               `json:"error,omitempty"`
	Code          string               `json:"code,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
	TransactionID string               `json:"transaction_id,omitempty"`
	Entry         *models.HistoryEntry `json:"entry,omitempty"`
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(config *common.Config, store interfaces.HistoryStore, analyzer interfaces.Analyzer, logger arbor.ILogger, wsHub *WebSocketHub) *APIHandlers {
	return &APIHandlers{
		config:    config,
		store:     store,
		analyzer:  analyzer,
		logger:    logger,
		startTime: time.Now(),
		wsHub:     wsHub,
	}
}

// HealthHandler returns system health status
func (h *APIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   common.GetVersion(),
		Build:     common.GetBuild(),
		Uptime:    time.Since(h.startTime).Seconds(),
	}

	health.Services.Database = h.testDatabaseConnection()
	health.Services.Analysis = true // backend reachability is only known per request

	if !health.Services.Database {
		health.Status = "degraded"
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode health response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// VersionHandler returns server version information
func (h *APIHandlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	versionResp := VersionResponse{}
	versionResp.Server.Version = common.GetVersion()
	versionResp.Server.Build = common.GetBuild()
	versionResp.Server.Commit = common.GetGitCommit()

	if err := json.NewEncoder(w).Encode(versionResp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode version response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// StatusHandler returns companion status and history metrics
func (h *APIHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := StatusResponse{}
	status.Companion.Running = true // assume running if we can respond
	status.Companion.Busy = h.analyzer.Busy()
	status.Companion.Uptime = time.Since(h.startTime).Seconds()

	entries := h.store.Entries()
	status.History.TotalEntries = len(entries)
	if len(entries) > 0 {
		status.History.LastAnalysis = entries[0].CreatedAt.Format("2006-01-02 15:04:05")
	} else {
		status.History.LastAnalysis = "Never"
	}

	lastUpdate, err := h.store.LastUpdate()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read last update for status")
	}
	status.History.LastUpdate = lastUpdate

	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode status response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ConfigHandler returns system configuration
func (h *APIHandlers) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	config := ConfigResponse{
		Companion: &h.config.Companion,
		Analysis:  &h.config.Analysis,
		Browser:   &h.config.Browser,
		Storage:   &h.config.Storage,
		Logging:   &h.config.Logging,
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode config response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// AnalyzeHandler accepts page content captured by the extension and runs
// the analysis pipeline on it
func (h *APIHandlers) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload AnalyzePagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode analyze payload")
		h.writeInvalidPayload(w)
		return
	}

	transactionID := newTransactionID()

	h.logger.Info().
		Str("transaction_id", transactionID).
		Str("url", payload.URL).
		Int("html_size", len(payload.HTML)).
		Msg("Received page content for analysis")

	h.broadcastStarted(transactionID, payload.URL, "page")

	entry, err := h.analyzer.AnalyzeHTML(payload.URL, payload.HTML)
	h.respondAnalysis(w, transactionID, payload.URL, entry, err)
}

// AnalyzeTabHandler captures the browser's active tab and runs the
// analysis pipeline on it
func (h *APIHandlers) AnalyzeTabHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	transactionID := newTransactionID()

	h.logger.Info().
		Str("transaction_id", transactionID).
		Msg("Analyzing active browser tab")

	h.broadcastStarted(transactionID, "", "tab")

	entry, err := h.analyzer.AnalyzeTab()

	pageURL := ""
	if entry != nil {
		pageURL = entry.URL
	}
	h.respondAnalysis(w, transactionID, pageURL, entry, err)
}

// AnalyzeURLHandler fetches a user-supplied URL and runs the analysis
// pipeline on the downloaded page
func (h *APIHandlers) AnalyzeURLHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload AnalyzeURLPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode analyze url payload")
		h.writeInvalidPayload(w)
		return
	}

	transactionID := newTransactionID()

	h.logger.Info().
		Str("transaction_id", transactionID).
		Str("url", payload.URL).
		Msg("Analyzing URL")

	h.broadcastStarted(transactionID, payload.URL, "url")

	entry, err := h.analyzer.AnalyzeURL(payload.URL)
	h.respondAnalysis(w, transactionID, payload.URL, entry, err)
}

// respondAnalysis writes the outcome of one analysis run and broadcasts the
// matching lifecycle event to WebSocket clients
func (h *APIHandlers) respondAnalysis(w http.ResponseWriter, transactionID, pageURL string, entry *models.HistoryEntry, err error) {
	if err != nil {
		status, code := statusForError(err)

		h.logger.Warn().
			Str("transaction_id", transactionID).
			Str("url", pageURL).
			Err(err).
			Msg("Analysis failed")

		if h.wsHub != nil {
			h.wsHub.SendAnalysisUpdate("analysis_failed", map[string]interface{}{
				"transaction_id": transactionID,
				"url":            pageURL,
				"error":          err.Error(),
				"code":           code,
			})
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(AnalyzeResponse{
			Success:       false,
			Error:         err.Error(),
			Code:          code,
			Timestamp:     time.Now(),
			TransactionID: transactionID,
		})
		return
	}

	h.logger.Info().
		Str("transaction_id", transactionID).
		Str("id", entry.ID).
		Str("url", entry.URL).
		Msg("Analysis completed")

	if h.wsHub != nil {
		h.wsHub.SendAnalysisUpdate("analysis_completed", map[string]interface{}{
			"transaction_id": transactionID,
			"url":            entry.URL,
			"entry":          entry,
		})
		h.wsHub.SendAnalysisUpdate("history_updated", map[string]interface{}{
			"count": h.store.Count(),
		})
	}

	json.NewEncoder(w).Encode(AnalyzeResponse{
		Success:       true,
		Message:       "Analysis complete",
		Timestamp:     time.Now(),
		TransactionID: transactionID,
		Entry:         entry,
	})
}

func (h *APIHandlers) broadcastStarted(transactionID, pageURL, source string) {
	if h.wsHub == nil {
		return
	}
	h.wsHub.SendAnalysisUpdate("analysis_started", map[string]interface{}{
		"transaction_id": transactionID,
		"url":            pageURL,
		"source":         source,
	})
}

func (h *APIHandlers) writeInvalidPayload(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(AnalyzeResponse{
		Success:   false,
		Error:     "invalid payload format",
		Code:      common.CodeInvalidPayload,
		Timestamp: time.Now(),
	})
}

func (h *APIHandlers) testDatabaseConnection() bool {
	_, err := h.store.LastUpdate()
	return err == nil
}

// statusForError maps companion error types onto HTTP status codes. Busy
// rejections get 409, bad input 400, upstream failures 502, everything
// else 500.
func statusForError(err error) (int, string) {
	if cerr, ok := common.AsCompanionError(err); ok {
		switch {
		case cerr.Code == common.CodeAnalysisInProgress:
			return http.StatusConflict, cerr.Code
		case cerr.Type == common.ErrorTypeValidation:
			return http.StatusBadRequest, cerr.Code
		case cerr.Type == common.ErrorTypeExtraction, cerr.Type == common.ErrorTypeBackend:
			return http.StatusBadGateway, cerr.Code
		default:
			return http.StatusInternalServerError, cerr.Code
		}
	}
	return http.StatusInternalServerError, ""
}

func newTransactionID() string {
	return "txn-" + uuid.New().String()
}
