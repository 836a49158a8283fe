package models

import "time"

// AnalysisSection represents one titled group of insight strings
type AnalysisSection struct {
	Title    string   `json:"title"`
	Insights []string `json:"insights"`
}

// AnalysisVerdicts holds the one-line verdicts returned by the analysis service
type AnalysisVerdicts struct {
	Marketing string `json:"marketing"`
	Strategic string `json:"strategic"`
}

// AnalysisScore holds the overall page score as reported by the service.
// Older server revisions score 0-10, newer ones 0-100; the value is stored
// as reported.
type AnalysisScore struct {
	Value     float64 `json:"value"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// AnalysisResult is the fully-defaulted internal shape of a server response.
// Every field is populated during normalization; consumers never deal with
// absent values.
type AnalysisResult struct {
	Overview       string            `json:"overview"`
	TargetAudience string            `json:"target_audience"`
	Sections       []AnalysisSection `json:"sections"`
	Verdicts       AnalysisVerdicts  `json:"verdicts"`
	Score          AnalysisScore     `json:"score"`
}

// NewAnalysisResult returns a result with all defaults in place
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Sections: []AnalysisSection{},
	}
}

// HistoryEntry represents one persisted analysis: the normalized result plus
// the identity and page context the popup list renders
type HistoryEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	AnalysisResult
}
