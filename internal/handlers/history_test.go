package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pagepulse-companion/internal/handlers"
	"pagepulse-companion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() *stubStore {
	newest := fixtureEntry()
	older := &models.HistoryEntry{
		ID:        "entry-2",
		CreatedAt: time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC),
		URL:       "https://other.example",
		Title:     "Other Site",
		AnalysisResult: models.AnalysisResult{
			Sections: []models.AnalysisSection{},
		},
	}
	return &stubStore{entries: []models.HistoryEntry{*newest, *older}}
}

func TestHistoryHandler_Get(t *testing.T) {
	t.Parallel()

	api := newTestHandlers(seededStore(), &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.HistoryHandler(recorder, httptest.NewRequest(http.MethodGet, "/history", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var response handlers.HistoryResponse
	decodeJSON(t, recorder, &response)
	assert.True(t, response.Success)
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.Entries, 2)
	assert.Equal(t, "entry-1", response.Entries[0].ID)
	assert.Equal(t, "entry-2", response.Entries[1].ID)
}

func TestHistoryHandler_GetLoadFailure(t *testing.T) {
	t.Parallel()

	store := &stubStore{loadErr: errors.New("database corrupt")}
	api := newTestHandlers(store, &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.HistoryHandler(recorder, httptest.NewRequest(http.MethodGet, "/history", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestHistoryHandler_Delete(t *testing.T) {
	t.Parallel()

	store := seededStore()
	api := newTestHandlers(store, &stubAnalyzer{})

	body := strings.NewReader(`{"ids":["entry-2","no-such-id"]}`)
	recorder := httptest.NewRecorder()
	api.HistoryHandler(recorder, httptest.NewRequest(http.MethodDelete, "/history", body))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response handlers.DeleteHistoryResponse
	decodeJSON(t, recorder, &response)
	assert.True(t, response.Success)
	assert.Equal(t, 1, response.Removed)
	assert.Equal(t, 1, response.Count)

	remaining := store.Entries()
	require.Len(t, remaining, 1)
	assert.Equal(t, "entry-1", remaining[0].ID)
}

func TestHistoryHandler_DeleteNoMatches(t *testing.T) {
	t.Parallel()

	store := seededStore()
	api := newTestHandlers(store, &stubAnalyzer{})

	body := strings.NewReader(`{"ids":["ghost"]}`)
	recorder := httptest.NewRecorder()
	api.HistoryHandler(recorder, httptest.NewRequest(http.MethodDelete, "/history", body))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response handlers.DeleteHistoryResponse
	decodeJSON(t, recorder, &response)
	assert.True(t, response.Success)
	assert.Zero(t, response.Removed)
	assert.Equal(t, 2, response.Count)
}

func TestHistoryHandler_DeleteInvalidPayload(t *testing.T) {
	t.Parallel()

	api := newTestHandlers(seededStore(), &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.HistoryHandler(recorder, httptest.NewRequest(http.MethodDelete, "/history", strings.NewReader("[broken")))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHistoryHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	api := newTestHandlers(seededStore(), &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.HistoryHandler(recorder, httptest.NewRequest(http.MethodPost, "/history", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

func TestDatabaseHandler_Get(t *testing.T) {
	t.Parallel()

	api := newTestHandlers(seededStore(), &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.DatabaseHandler(recorder, httptest.NewRequest(http.MethodGet, "/database", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response handlers.DatabaseResponse
	decodeJSON(t, recorder, &response)
	assert.True(t, response.Success)
	assert.Equal(t, "Retrieved 2 history entries", response.Message)
	assert.Equal(t, 2, response.Count)
}

func TestDatabaseHandler_Clear(t *testing.T) {
	t.Parallel()

	store := seededStore()
	api := newTestHandlers(store, &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.DatabaseHandler(recorder, httptest.NewRequest(http.MethodDelete, "/database", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response handlers.DatabaseResponse
	decodeJSON(t, recorder, &response)
	assert.True(t, response.Success)
	assert.Equal(t, "All history cleared from database", response.Message)
	assert.Zero(t, store.Count())
}

func TestDatabaseHandler_ClearFailure(t *testing.T) {
	t.Parallel()

	store := seededStore()
	store.clearErr = errors.New("disk full")
	api := newTestHandlers(store, &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.DatabaseHandler(recorder, httptest.NewRequest(http.MethodDelete, "/database", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var response handlers.DatabaseResponse
	decodeJSON(t, recorder, &response)
	assert.False(t, response.Success)
	assert.Equal(t, "Failed to clear history", response.Message)
}

func TestDatabaseHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	api := newTestHandlers(seededStore(), &stubAnalyzer{})

	recorder := httptest.NewRecorder()
	api.DatabaseHandler(recorder, httptest.NewRequest(http.MethodPost, "/database", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
