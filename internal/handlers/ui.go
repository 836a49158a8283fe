package handlers

import (
	"html/template"
	"net/http"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/ternarybob/arbor"
)

// maxDashboardEntries caps how much history the status page renders;
// the full list stays available through /history.
const maxDashboardEntries = 20

// UIHandlers serves the companion's built-in status page. The extension
// popup is the real UI; this page exists so the companion can be inspected
// with nothing but a browser.
type UIHandlers struct {
	config    *common.Config
	store     interfaces.HistoryStore
	analyzer  interfaces.Analyzer
	logger    arbor.ILogger
	templates *template.Template
}

// TemplateData represents data passed to the status page template
type TemplateData struct {
	Title        string
	ServiceName  string
	Version      string
	Build        string
	Environment  string
	Port         int
	AnalysisURL  string
	Busy         bool
	TotalEntries int
	LastUpdate   string
	GeneratedAt  string
	Entries      []models.HistoryEntry
}

// indexTemplate is compiled into the binary so the companion has no pages
// directory to locate at runtime.
const indexTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta http-equiv="refresh" content="10">
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 60rem; color: #1c2733; }
    h1 { font-size: 1.4rem; }
    table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
    th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #d8dee6; font-size: 0.9rem; }
    th { background: #f2f5f8; }
    .meta { color: #5a6b7c; font-size: 0.85rem; }
    .busy { color: #b35c00; font-weight: 600; }
    .idle { color: #2b7a3d; }
    .score { text-align: right; }
  </style>
</head>
<body>
  <h1>{{.ServiceName}}</h1>
  <p class="meta">
    v{{.Version}} ({{.Build}}) &middot; {{.Environment}} &middot; port {{.Port}}<br>
    analysis service: {{.AnalysisURL}}<br>
    state: {{if .Busy}}<span class="busy">analysis in progress</span>{{else}}<span class="idle">idle</span>{{end}}
    &middot; {{.TotalEntries}} stored {{if eq .TotalEntries 1}}analysis{{else}}analyses{{end}}
    {{if .LastUpdate}}&middot; last write {{.LastUpdate}}{{end}}
  </p>
  {{if .Entries}}
  <table>
    <tr><th>When</th><th>Page</th><th>Overview</th><th class="score">Score</th></tr>
    {{range .Entries}}
    <tr>
      <td>{{.CreatedAt.Format "2006-01-02 15:04"}}</td>
      <td>{{if .Title}}{{.Title}}{{else}}{{.URL}}{{end}}<br><span class="meta">{{.URL}}</span></td>
      <td>{{.Overview}}</td>
      <td class="score">{{printf "%.1f" .Score.Value}}</td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <p>No analyses recorded yet. Trigger one from the extension popup or POST to /analyze.</p>
  {{end}}
  <p class="meta">Rendered {{.GeneratedAt}} &middot; refreshes every 10s</p>
</body>
</html>`

// NewUIHandlers creates the status page handlers
func NewUIHandlers(config *common.Config, store interfaces.HistoryStore, analyzer interfaces.Analyzer, logger arbor.ILogger) (*UIHandlers, error) {
	templates, err := template.New("index.html").Parse(indexTemplate)
	if err != nil {
		return nil, err
	}

	return &UIHandlers{
		config:    config,
		store:     store,
		analyzer:  analyzer,
		logger:    logger,
		templates: templates,
	}, nil
}

// IndexHandler serves the status page at the root path
func (h *UIHandlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	// "/" matches every otherwise-unrouted path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	entries := h.store.Entries()
	if len(entries) > maxDashboardEntries {
		entries = entries[:maxDashboardEntries]
	}

	lastUpdate, err := h.store.LastUpdate()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read last update for status page")
	}

	data := TemplateData{
		Title:        "PagePulse Companion",
		ServiceName:  h.config.Companion.Name,
		Version:      common.GetVersion(),
		Build:        common.GetBuild(),
		Environment:  h.config.Companion.Environment,
		Port:         h.config.Companion.Port,
		AnalysisURL:  h.config.Analysis.BaseURL,
		Busy:         h.analyzer.Busy(),
		TotalEntries: h.store.Count(),
		LastUpdate:   lastUpdate,
		GeneratedAt:  time.Now().Format("15:04:05"),
		Entries:      entries,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to execute template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}
