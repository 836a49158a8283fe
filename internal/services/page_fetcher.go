package services

import (
	"fmt"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

const fetchUserAgent = "PagePulse-Companion/1.0 (+https://pagepulse.app)"

type pageFetcher struct {
	client *resty.Client
	logger arbor.ILogger
}

// NewPageFetcher builds the HTTP client used to download pages for the
// manual URL flow, where there is no browser tab to capture from.
func NewPageFetcher(config *common.BrowserConfig, logger arbor.ILogger) interfaces.PageFetcher {
	timeout := time.Duration(config.CaptureTimeout) * time.Second

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", fetchUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	return &pageFetcher{
		client: client,
		logger: logger,
	}
}

// FetchPage downloads the raw HTML of a page. Failures here are extraction
// failures: the pipeline never got content to work with.
func (f *pageFetcher) FetchPage(pageURL string) (string, error) {
	f.logger.Info().Str("url", pageURL).Msg("Fetching page")

	resp, err := f.client.R().Get(pageURL)
	if err != nil {
		return "", common.NewExtractionError("PAGE_FETCH_FAILED", "failed to fetch page").
			WithCause(err).
			WithContext("url", pageURL)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", common.NewExtractionError("PAGE_FETCH_STATUS",
			fmt.Sprintf("page responded with status %d", resp.StatusCode())).
			WithContext("url", pageURL).
			WithContext("status", resp.StatusCode())
	}

	body := resp.String()
	f.logger.Debug().Str("url", pageURL).Int("bytes", len(body)).Msg("Page fetched")

	return body, nil
}
