package models

// PageAssessment represents the result of the pre-flight page check
type PageAssessment struct {
	URL        string `json:"url"`
	Analyzable bool   `json:"analyzable"`
	Reason     string `json:"reason,omitempty"`
}
