package interfaces

import (
	"context"
	"net/http"

	"pagepulse-companion/internal/models"
)

// HistoryStore is the single source of truth for persisted analysis results.
// Every mutation rewrites the whole persisted record.
type HistoryStore interface {
	LoadOrMigrate() ([]models.HistoryEntry, error)
	Entries() []models.HistoryEntry
	Append(entry models.HistoryEntry) error
	DeleteMany(ids []string) (int, error)
	ClearAll() error
	Count() int
	LastUpdate() (string, error)
	Close() error
}

// PageExtractor produces a bounded content snapshot from raw page HTML.
// It never fails: pages missing any queried element yield empty defaults.
type PageExtractor interface {
	Extract(pageURL, rawHTML string) *models.PageSnapshot
}

// AnalysisClient submits a snapshot to the remote analysis service and
// returns the raw response object for normalization
type AnalysisClient interface {
	Submit(pageURL string, snapshot *models.PageSnapshot) (map[string]interface{}, error)
}

// PageFetcher retrieves the HTML of a manually entered URL
type PageFetcher interface {
	FetchPage(pageURL string) (string, error)
}

// TabCapture reads the active tab of the user's running browser
type TabCapture interface {
	CaptureActiveTab() (*models.TabContent, error)
	Close() error
}

// PageAssessor runs the client-side readiness check before any network call
type PageAssessor interface {
	Assess(pageURL, rawHTML string) *models.PageAssessment
	ValidateURL(rawURL string) error
}

// Analyzer drives one extract, submit, normalize, persist run per trigger
type Analyzer interface {
	AnalyzeHTML(pageURL, rawHTML string) (*models.HistoryEntry, error)
	AnalyzeTab() (*models.HistoryEntry, error)
	AnalyzeURL(rawURL string) (*models.HistoryEntry, error)
	Busy() bool
}

// WebService is the popup-facing HTTP surface
type WebService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	Handler() http.Handler
}
