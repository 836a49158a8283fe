package services_test

import (
	"testing"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assessablePageHTML = `<html><head><title>Shop</title></head><body><p>Welcome</p></body></html>`

func TestAssess_AcceptsRegularWebPages(t *testing.T) {
	t.Parallel()

	assessor := services.NewPageAssessor(common.GetLogger())

	for _, pageURL := range []string{
		"https://example.com",
		"http://example.com/products?ref=nav",
		"HTTPS://EXAMPLE.COM/CAPS",
	} {
		assessment := assessor.Assess(pageURL, assessablePageHTML)
		assert.True(t, assessment.Analyzable, "url %q", pageURL)
		assert.Empty(t, assessment.Reason, "url %q", pageURL)
		assert.Equal(t, pageURL, assessment.URL)
	}
}

func TestAssess_RejectsUnanalyzablePages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		html   string
		reason string
	}{
		{"empty url", "", assessablePageHTML, "page URL is empty"},
		{"whitespace url", "   ", assessablePageHTML, "page URL is empty"},
		{"unparseable url", "http://a b.com/", assessablePageHTML, "page URL is not parseable"},
		{"chrome settings", "chrome://settings", assessablePageHTML, "chrome pages cannot be analyzed"},
		{"extension page", "chrome-extension://abcdef/popup.html", assessablePageHTML, "chrome-extension pages cannot be analyzed"},
		{"about blank", "about:blank", assessablePageHTML, "about pages cannot be analyzed"},
		{"edge internal", "edge://settings", assessablePageHTML, "edge pages cannot be analyzed"},
		{"brave internal", "brave://rewards", assessablePageHTML, "brave pages cannot be analyzed"},
		{"local file", "file:///home/user/report.html", assessablePageHTML, "file pages cannot be analyzed"},
		{"devtools", "devtools://devtools/bundled/inspector.html", assessablePageHTML, "devtools pages cannot be analyzed"},
		{"view source", "view-source:https://example.com", assessablePageHTML, "view-source pages cannot be analyzed"},
		{"firefox extension", "moz-extension://guid/page.html", assessablePageHTML, "moz-extension pages cannot be analyzed"},
		{"ftp", "ftp://files.example.com/readme.txt", assessablePageHTML, "only http and https pages can be analyzed"},
		{"mailto", "mailto:team@example.com", assessablePageHTML, "only http and https pages can be analyzed"},
		{"missing host", "https://", assessablePageHTML, "page URL has no host"},
		{"empty page", "https://example.com", "", "page has no content"},
		{"whitespace page", "https://example.com", "  \n\t ", "page has no content"},
	}

	assessor := services.NewPageAssessor(common.GetLogger())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assessment := assessor.Assess(tc.url, tc.html)
			assert.False(t, assessment.Analyzable)
			assert.Equal(t, tc.reason, assessment.Reason)
		})
	}
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	assessor := services.NewPageAssessor(common.GetLogger())

	assert.NoError(t, assessor.ValidateURL("https://example.com"))
	assert.NoError(t, assessor.ValidateURL("http://example.com/pricing"))

	tests := []struct {
		name    string
		url     string
		message string
	}{
		{"empty", "", "url is required"},
		{"whitespace", "  ", "url is required"},
		{"unparseable", "http://a b.com/", "url is not parseable"},
		{"no scheme", "example.com", "url must use http or https"},
		{"wrong scheme", "ftp://files.example.com", "url must use http or https"},
		{"no host", "https://", "url has no host"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := assessor.ValidateURL(tc.url)
			require.Error(t, err)
			assert.True(t, common.IsErrorType(err, common.ErrorTypeValidation))

			companionErr, ok := common.AsCompanionError(err)
			require.True(t, ok)
			assert.Equal(t, common.CodeInvalidURL, companionErr.Code)
			assert.Equal(t, tc.message, companionErr.Message)
		})
	}
}
