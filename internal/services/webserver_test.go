package services_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/handlers"
	"pagepulse-companion/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWebService wires the real route table against a fake analysis backend
// and returns its handler for in-process requests
func newWebService(t *testing.T, backendURL string) http.Handler {
	t.Helper()

	cfg := &common.Config{
		Companion: common.CompanionConfig{Name: "pagepulse-companion", Environment: "development", Port: 8675},
		Analysis:  common.AnalysisConfig{BaseURL: backendURL, TimeoutSeconds: 5},
		Browser:   common.BrowserConfig{DebugPort: 9222, CaptureTimeout: 5},
		Storage:   common.StorageConfig{DatabasePath: filepath.Join(t.TempDir(), "history.db")},
	}

	store, err := services.NewHistoryStorage(&cfg.Storage, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.LoadOrMigrate()
	require.NoError(t, err)

	analyzer := services.NewAnalyzer(cfg, store, common.GetLogger())

	ws, err := services.NewWebServer(cfg, store, analyzer, common.GetLogger())
	require.NoError(t, err)

	return ws.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body := []byte(nil)
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = data
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return recorder
}

func TestWebServer_AnalyzeHistoryRoundTrip(t *testing.T) {
	t.Parallel()

	backend, _ := newAnalysisBackend(t, http.StatusOK, backendAnalysisJSON)
	handler := newWebService(t, backend.URL)

	recorder := doJSON(t, handler, http.MethodPost, "/analyze", handlers.AnalyzePagePayload{
		URL:  "https://acme.example/rockets",
		HTML: analyzedPageHTML,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))

	var analyzeResp handlers.AnalyzeResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&analyzeResp))
	require.True(t, analyzeResp.Success)
	require.NotNil(t, analyzeResp.Entry)
	assert.Equal(t, "A direct-to-consumer rocket shop.", analyzeResp.Entry.Overview)

	recorder = doJSON(t, handler, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var history handlers.HistoryResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&history))
	assert.Equal(t, 1, history.Count)
	require.Len(t, history.Entries, 1)
	assert.Equal(t, analyzeResp.Entry.ID, history.Entries[0].ID)

	recorder = doJSON(t, handler, http.MethodDelete, "/history", handlers.DeleteHistoryPayload{
		IDs: []string{analyzeResp.Entry.ID},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var deleted handlers.DeleteHistoryResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&deleted))
	assert.True(t, deleted.Success)
	assert.Equal(t, 1, deleted.Removed)
	assert.Zero(t, deleted.Count)
}

func TestWebServer_DatabaseClear(t *testing.T) {
	t.Parallel()

	backend, _ := newAnalysisBackend(t, http.StatusOK, backendAnalysisJSON)
	handler := newWebService(t, backend.URL)

	recorder := doJSON(t, handler, http.MethodPost, "/analyze", handlers.AnalyzePagePayload{
		URL:  "https://acme.example",
		HTML: analyzedPageHTML,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, http.MethodGet, "/database", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var dbResp handlers.DatabaseResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dbResp))
	assert.Equal(t, 1, dbResp.Count)

	recorder = doJSON(t, handler, http.MethodDelete, "/database", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dbResp))
	assert.True(t, dbResp.Success)

	recorder = doJSON(t, handler, http.MethodGet, "/history", nil)
	var history handlers.HistoryResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&history))
	assert.Zero(t, history.Count)
}

func TestWebServer_ValidationErrorsMapToBadRequest(t *testing.T) {
	t.Parallel()

	backend, recorder := newAnalysisBackend(t, http.StatusOK, backendAnalysisJSON)
	handler := newWebService(t, backend.URL)

	response := doJSON(t, handler, http.MethodPost, "/analyze", handlers.AnalyzePagePayload{
		URL:  "chrome://settings",
		HTML: "<html><body>settings</body></html>",
	})
	assert.Equal(t, http.StatusBadRequest, response.Code)

	var analyzeResp handlers.AnalyzeResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&analyzeResp))
	assert.False(t, analyzeResp.Success)
	assert.Equal(t, common.CodeNotAnalyzable, analyzeResp.Code)

	// The rejected page never reached the backend
	assert.Empty(t, recorder.all())
}

func TestWebServer_ServiceEndpoints(t *testing.T) {
	t.Parallel()

	backend, _ := newAnalysisBackend(t, http.StatusOK, backendAnalysisJSON)
	handler := newWebService(t, backend.URL)

	for _, path := range []string{"/health", "/version", "/status", "/config"} {
		recorder := doJSON(t, handler, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, recorder.Code, "path %s", path)
		assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"), "path %s", path)
	}

	recorder := doJSON(t, handler, http.MethodGet, "/config", nil)
	var config handlers.ConfigResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&config))
	require.NotNil(t, config.Analysis)
	assert.Equal(t, backend.URL, config.Analysis.BaseURL)
}

func TestWebServer_StatusPage(t *testing.T) {
	t.Parallel()

	backend, _ := newAnalysisBackend(t, http.StatusOK, backendAnalysisJSON)
	handler := newWebService(t, backend.URL)

	recorder := doJSON(t, handler, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, recorder.Body.String(), "pagepulse-companion")
	assert.Contains(t, recorder.Body.String(), "No analyses recorded yet")

	doJSON(t, handler, http.MethodPost, "/analyze", handlers.AnalyzePagePayload{
		URL:  "https://acme.example/rockets",
		HTML: analyzedPageHTML,
	})

	recorder = doJSON(t, handler, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Acme Rockets")
	assert.Contains(t, recorder.Body.String(), "https://acme.example/rockets")

	recorder = doJSON(t, handler, http.MethodGet, "/no-such-page", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestWebServer_CORSPreflight(t *testing.T) {
	t.Parallel()

	backend, recorder := newAnalysisBackend(t, http.StatusOK, backendAnalysisJSON)
	handler := newWebService(t, backend.URL)

	response := doJSON(t, handler, http.MethodOptions, "/analyze", nil)
	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "*", response.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, response.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Contains(t, response.Header().Get("Access-Control-Allow-Headers"), "Content-Type")

	// Preflight never invokes the handler behind it
	assert.Empty(t, recorder.all())
}
