package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

type tabCapture struct {
	config  *common.BrowserConfig
	logger  arbor.ILogger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewTabCapture connects to the user's already-running browser via remote
// debugging. The browser must be started with:
// chrome --remote-debugging-port=9222
func NewTabCapture(config *common.BrowserConfig, logger arbor.ILogger) (interfaces.TabCapture, error) {
	debugURL := fmt.Sprintf("http://localhost:%d", config.DebugPort)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), debugURL)
	ctx, cancel := chromedp.NewContext(allocCtx)

	wrappedCancel := func() {
		cancel()
		allocCancel()
	}

	return &tabCapture{
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  wrappedCancel,
		timeout: time.Duration(config.CaptureTimeout) * time.Second,
	}, nil
}

func (tc *tabCapture) Close() error {
	if tc.cancel != nil {
		tc.cancel()
	}
	return nil
}

// CaptureActiveTab grabs the URL, title and rendered HTML of the browser's
// current page tab without navigating it
func (tc *tabCapture) CaptureActiveTab() (*models.TabContent, error) {
	ctx, cancel := context.WithTimeout(tc.ctx, tc.timeout)
	defer cancel()

	targets, err := chromedp.Targets(ctx)
	if err != nil {
		return nil, common.NewExtractionError("BROWSER_UNREACHABLE",
			fmt.Sprintf("cannot reach browser debugging endpoint on port %d", tc.config.DebugPort)).
			WithCause(err)
	}

	tabInfo := pickPageTarget(targets)
	if tabInfo == nil {
		return nil, common.NewExtractionError("NO_ACTIVE_TAB", "no capturable page tab found in browser")
	}

	tabCtx, tabCancel := chromedp.NewContext(ctx, chromedp.WithTargetID(tabInfo.TargetID))
	defer tabCancel()

	var pageURL, title, htmlContent string

	actions := []chromedp.Action{}
	if tc.config.SettleMillis > 0 {
		actions = append(actions, chromedp.Sleep(time.Duration(tc.config.SettleMillis)*time.Millisecond))
	}
	actions = append(actions,
		chromedp.Location(&pageURL),
		chromedp.Title(&title),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &htmlContent),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, common.NewExtractionError("TAB_CAPTURE_FAILED", "failed to capture tab content").
			WithCause(err).
			WithContext("target_url", tabInfo.URL)
	}

	tc.logger.Info().
		Str("url", pageURL).
		Str("title", title).
		Int("bytes", len(htmlContent)).
		Msg("Captured active tab")

	return &models.TabContent{
		URL:   pageURL,
		Title: title,
		HTML:  htmlContent,
	}, nil
}

// pickPageTarget returns the first real page tab, skipping devtools and
// extension surfaces. Chrome reports the focused tab first.
func pickPageTarget(targets []*target.Info) *target.Info {
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if strings.HasPrefix(t.URL, "devtools://") || strings.HasPrefix(t.URL, "chrome-extension://") {
			continue
		}
		return t
	}
	return nil
}
