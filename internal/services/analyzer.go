package services

import (
	"strconv"
	"sync/atomic"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

type analyzer struct {
	config    *common.Config
	assessor  interfaces.PageAssessor
	extractor interfaces.PageExtractor
	client    interfaces.AnalysisClient
	fetcher   interfaces.PageFetcher
	store     interfaces.HistoryStore
	logger    arbor.ILogger
	busy      atomic.Bool
}

// NewAnalyzer wires the full analysis pipeline. The browser connection is
// not opened here; tab capture connects on demand so the companion starts
// without a running browser.
func NewAnalyzer(config *common.Config, store interfaces.HistoryStore, logger arbor.ILogger) interfaces.Analyzer {
	return &analyzer{
		config:    config,
		assessor:  NewPageAssessor(logger),
		extractor: NewPageExtractor(logger),
		client:    NewAnalysisClient(&config.Analysis, logger),
		fetcher:   NewPageFetcher(&config.Browser, logger),
		store:     store,
		logger:    logger,
	}
}

// Busy reports whether an analysis is currently running
func (a *analyzer) Busy() bool {
	return a.busy.Load()
}

// acquire flips the busy flag, refusing concurrent runs. Exactly one
// analysis may be in flight at a time.
func (a *analyzer) acquire() error {
	if !a.busy.CompareAndSwap(false, true) {
		return common.NewBusyError()
	}
	return nil
}

// AnalyzeHTML runs the pipeline on page content the extension already
// captured and posted
func (a *analyzer) AnalyzeHTML(pageURL, rawHTML string) (*models.HistoryEntry, error) {
	if err := a.acquire(); err != nil {
		return nil, err
	}
	defer a.busy.Store(false)

	a.logger.Info().Str("url", pageURL).Msg("Analyzing posted page content")

	return a.run(pageURL, rawHTML, "")
}

// AnalyzeTab captures the browser's current tab and runs the pipeline on
// it. The capture connection is opened per call and closed before return.
func (a *analyzer) AnalyzeTab() (*models.HistoryEntry, error) {
	if err := a.acquire(); err != nil {
		return nil, err
	}
	defer a.busy.Store(false)

	capture, err := NewTabCapture(&a.config.Browser, a.logger)
	if err != nil {
		return nil, common.NewExtractionError("BROWSER_CONNECT_FAILED", "failed to connect to browser").WithCause(err)
	}
	defer capture.Close()

	tab, err := capture.CaptureActiveTab()
	if err != nil {
		return nil, err
	}

	a.logger.Info().Str("url", tab.URL).Msg("Analyzing captured tab")

	return a.run(tab.URL, tab.HTML, tab.Title)
}

// AnalyzeURL fetches a user-supplied URL and runs the pipeline on the
// downloaded HTML
func (a *analyzer) AnalyzeURL(rawURL string) (*models.HistoryEntry, error) {
	if err := a.acquire(); err != nil {
		return nil, err
	}
	defer a.busy.Store(false)

	if err := a.assessor.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	a.logger.Info().Str("url", rawURL).Msg("Analyzing fetched URL")

	rawHTML, err := a.fetcher.FetchPage(rawURL)
	if err != nil {
		return nil, err
	}

	return a.run(rawURL, rawHTML, "")
}

// run is the shared pipeline: assess, extract, submit, normalize, record.
// History is only touched after the backend call succeeds, so a failed
// analysis leaves it exactly as it was.
func (a *analyzer) run(pageURL, rawHTML, fallbackTitle string) (*models.HistoryEntry, error) {
	assessment := a.assessor.Assess(pageURL, rawHTML)
	if !assessment.Analyzable {
		return nil, common.NewValidationError(common.CodeNotAnalyzable, assessment.Reason).
			WithContext("url", pageURL)
	}

	snapshot := a.extractor.Extract(pageURL, rawHTML)

	raw, err := a.client.Submit(pageURL, snapshot)
	if err != nil {
		return nil, err
	}

	result := NormalizeAnalysis(raw)

	title := snapshot.Title
	if title == "" {
		title = fallbackTitle
	}

	entry := models.HistoryEntry{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		URL:            pageURL,
		Title:          title,
		AnalysisResult: *result,
	}

	if err := a.store.Append(entry); err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("id", entry.ID).
		Str("url", pageURL).
		Str("score", strconv.FormatFloat(result.Score.Value, 'f', -1, 64)).
		Msg("Analysis recorded")

	return &entry, nil
}
