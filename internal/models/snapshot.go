package models

// PageSnapshot represents a bounded capture of a page's visible content.
// Field names follow the wire format the extension and the analysis
// service exchange.
type PageSnapshot struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Headings        []string `json:"headings"`
	BodyText        string   `json:"bodyText"`
	CTATexts        []string `json:"ctaTexts"`
	SocialLinks     []string `json:"socialLinks"`
}

// NewPageSnapshot returns an empty snapshot with all sequences allocated,
// so consumers never see nil slices.
func NewPageSnapshot() *PageSnapshot {
	return &PageSnapshot{
		Headings:    []string{},
		CTATexts:    []string{},
		SocialLinks: []string{},
	}
}

// TabContent represents a page as captured from a live browser tab.
type TabContent struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}
