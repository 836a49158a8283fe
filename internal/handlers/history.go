package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pagepulse-companion/internal/models"
)

// HistoryResponse represents the stored analysis history, newest first
type HistoryResponse struct {
	Success bool                  `json:"success"`
	Count   int                   `json:"count"`
	Entries []models.HistoryEntry `json:"entries"`
}

// DeleteHistoryPayload lists the entry ids to remove
type DeleteHistoryPayload struct {
	IDs []string `json:"ids"`
}

// DeleteHistoryResponse reports how many entries were removed
type DeleteHistoryResponse struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
	Count   int  `json:"count"`
}

// DatabaseResponse represents database operation responses
type DatabaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// HistoryHandler serves and prunes the analysis history
func (h *APIHandlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		h.handleGetHistory(w, r)
	case http.MethodDelete:
		h.handleDeleteHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *APIHandlers) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.LoadOrMigrate()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load history")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	response := HistoryResponse{
		Success: true,
		Count:   len(entries),
		Entries: entries,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode history response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *APIHandlers) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	var payload DeleteHistoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode delete history payload")
		h.writeInvalidPayload(w)
		return
	}

	removed, err := h.store.DeleteMany(payload.IDs)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to delete history entries")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Int("requested", len(payload.IDs)).
		Int("removed", removed).
		Msg("History entries deleted")

	if removed > 0 && h.wsHub != nil {
		h.wsHub.SendAnalysisUpdate("history_updated", map[string]interface{}{
			"count": h.store.Count(),
		})
	}

	response := DeleteHistoryResponse{
		Success: true,
		Removed: removed,
		Count:   h.store.Count(),
	}

	json.NewEncoder(w).Encode(response)
}

// DatabaseHandler handles database operations
func (h *APIHandlers) DatabaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		h.handleGetDatabase(w, r)
	case http.MethodDelete:
		h.handleClearDatabase(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *APIHandlers) handleGetDatabase(w http.ResponseWriter, r *http.Request) {
	count := h.store.Count()

	response := DatabaseResponse{
		Success: true,
		Message: fmt.Sprintf("Retrieved %d history entries", count),
		Count:   count,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode database response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *APIHandlers) handleClearDatabase(w http.ResponseWriter, r *http.Request) {
	h.logger.Info().Msg("Clearing all history from database")

	if err := h.store.ClearAll(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear history from database")
		response := DatabaseResponse{
			Success: false,
			Message: "Failed to clear history",
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(response)
		return
	}

	h.logger.Info().Msg("Successfully cleared all history from database")

	if h.wsHub != nil {
		h.wsHub.SendAnalysisUpdate("history_updated", map[string]interface{}{
			"count": 0,
		})
	}

	response := DatabaseResponse{
		Success: true,
		Message: "All history cleared from database",
		Count:   0,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode database response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
