package services

import (
	"encoding/json"
	"fmt"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

// analysisPath is the single analysis route on the backend. The base URL
// is configurable, the path is not.
const analysisPath = "/analysis/page"

// analysisRequest is the wire shape the backend expects: the page URL plus
// the extracted snapshot under page_content.
type analysisRequest struct {
	URL         string               `json:"url"`
	PageContent *models.PageSnapshot `json:"page_content"`
}

type analysisClient struct {
	client *resty.Client
	config *common.AnalysisConfig
	logger arbor.ILogger
}

// NewAnalysisClient builds the HTTP client for the analysis backend. A
// TimeoutSeconds of zero leaves the transport default in place.
func NewAnalysisClient(config *common.AnalysisConfig, logger arbor.ILogger) interfaces.AnalysisClient {
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if config.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(config.TimeoutSeconds) * time.Second)
	}

	return &analysisClient{
		client: client,
		config: config,
		logger: logger,
	}
}

// Submit sends one snapshot for analysis and returns the backend's raw JSON
// object. Exactly one attempt is made; a failed call surfaces as a
// BackendError and is never retried here.
func (c *analysisClient) Submit(pageURL string, snapshot *models.PageSnapshot) (map[string]interface{}, error) {
	c.logger.Info().
		Str("url", pageURL).
		Str("endpoint", c.config.BaseURL+analysisPath).
		Msg("Submitting page for analysis")

	resp, err := c.client.R().
		SetBody(analysisRequest{URL: pageURL, PageContent: snapshot}).
		Post(analysisPath)
	if err != nil {
		return nil, common.NewBackendError("ANALYSIS_REQUEST_FAILED", "analysis request failed").
			WithCause(err).
			WithContext("url", pageURL)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.logger.Warn().
			Int("status", resp.StatusCode()).
			Str("url", pageURL).
			Msg("Analysis backend returned non-success status")
		return nil, common.NewBackendError("ANALYSIS_STATUS_ERROR",
			fmt.Sprintf("analysis backend returned status %d", resp.StatusCode())).
			WithDetails(truncateBody(resp.String())).
			WithContext("status", resp.StatusCode())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, common.NewBackendError("ANALYSIS_INVALID_RESPONSE", "analysis response is not valid JSON").
			WithCause(err).
			WithDetails(truncateBody(resp.String()))
	}

	c.logger.Info().
		Str("url", pageURL).
		Int("fields", len(result)).
		Msg("Analysis response received")

	return result, nil
}

// truncateBody keeps error details readable when the backend returns a
// large HTML error page instead of JSON
func truncateBody(body string) string {
	const maxDetail = 512
	if len(body) <= maxDetail {
		return body
	}
	return body[:maxDetail] + "..."
}
