package services

import (
	"fmt"
	"net/url"
	"strings"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/ternarybob/arbor"
)

// internalSchemes are browser surfaces that carry no analyzable web
// content. Anything here is rejected before extraction starts.
var internalSchemes = map[string]bool{
	"chrome":           true,
	"chrome-extension": true,
	"about":            true,
	"edge":             true,
	"brave":            true,
	"file":             true,
	"devtools":         true,
	"view-source":      true,
	"moz-extension":    true,
}

type pageAssessor struct {
	logger arbor.ILogger
}

// NewPageAssessor creates a new page assessment service
func NewPageAssessor(logger arbor.ILogger) interfaces.PageAssessor {
	return &pageAssessor{
		logger: logger,
	}
}

// Assess decides whether a page is worth sending through the analysis
// pipeline. It never errors: an unanalyzable page comes back with
// Analyzable false and a reason.
func (pa *pageAssessor) Assess(pageURL, rawHTML string) *models.PageAssessment {
	assessment := &models.PageAssessment{
		URL:        pageURL,
		Analyzable: false,
	}

	if strings.TrimSpace(pageURL) == "" {
		assessment.Reason = "page URL is empty"
		return assessment
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		assessment.Reason = "page URL is not parseable"
		pa.logger.Debug().Str("url", pageURL).Err(err).Msg("Page assessment rejected URL")
		return assessment
	}

	scheme := strings.ToLower(parsed.Scheme)
	if internalSchemes[scheme] {
		assessment.Reason = fmt.Sprintf("%s pages cannot be analyzed", scheme)
		return assessment
	}
	if scheme != "http" && scheme != "https" {
		assessment.Reason = "only http and https pages can be analyzed"
		return assessment
	}
	if parsed.Host == "" {
		assessment.Reason = "page URL has no host"
		return assessment
	}

	if strings.TrimSpace(rawHTML) == "" {
		assessment.Reason = "page has no content"
		return assessment
	}

	assessment.Analyzable = true

	pa.logger.Debug().
		Str("url", pageURL).
		Msg("Page assessed as analyzable")

	return assessment
}

// ValidateURL checks a user-supplied URL for the manual analysis flow,
// where there is no page content to inspect yet
func (pa *pageAssessor) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return common.NewValidationError(common.CodeInvalidURL, "url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return common.NewValidationError(common.CodeInvalidURL, "url is not parseable").WithCause(err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return common.NewValidationError(common.CodeInvalidURL, "url must use http or https").
			WithContext("scheme", parsed.Scheme)
	}
	if parsed.Host == "" {
		return common.NewValidationError(common.CodeInvalidURL, "url has no host")
	}

	return nil
}
