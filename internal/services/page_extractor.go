package services

import (
	"net/url"
	"strings"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"
)

// Truncation bounds are hard caps; excess is dropped, never signaled.
const (
	maxBodyTextChars = 5000
	maxCTATexts      = 20
)

// socialDomains is the fixed allow-list for social link filtering.
// Matching is a plain substring test against the resolved URL.
var socialDomains = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"youtube.com",
	"tiktok.com",
	"pinterest.com",
}

type pageExtractor struct {
	logger arbor.ILogger
}

// NewPageExtractor creates the snapshot extraction service
func NewPageExtractor(logger arbor.ILogger) interfaces.PageExtractor {
	return &pageExtractor{
		logger: logger,
	}
}

// Extract builds a bounded snapshot from raw page HTML in a single pass.
// The document is untrusted and schema-less: missing elements resolve to
// empty defaults and malformed markup is handled by the tolerant parser.
// Body text excludes script/style/noscript and nav/header/footer subtrees;
// headings and CTA elements are collected wherever they appear.
func (pe *pageExtractor) Extract(pageURL, rawHTML string) *models.PageSnapshot {
	snapshot := models.NewPageSnapshot()

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		pe.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse page HTML")
		return snapshot
	}

	// A nil base leaves relative hrefs unresolved, which then never match
	// the social allow-list
	base, _ := url.Parse(pageURL)

	var bodyParts []string
	var metaDescription, ogDescription, ogTitle string

	addCTA := func(raw string) {
		if len(snapshot.CTATexts) >= maxCTATexts {
			return
		}
		if text := common.NormalizeSpace(raw); text != "" {
			snapshot.CTATexts = append(snapshot.CTATexts, text)
		}
	}

	var walk func(n *html.Node, inBody, skipText bool)
	walk = func(n *html.Node, inBody, skipText bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "title":
				if snapshot.Title == "" {
					snapshot.Title = common.NormalizeSpace(common.ExtractText(n))
				}
				return
			case "meta":
				name := strings.ToLower(common.GetAttribute(n, "name"))
				property := strings.ToLower(common.GetAttribute(n, "property"))
				content := strings.TrimSpace(common.GetAttribute(n, "content"))
				if name == "description" && metaDescription == "" {
					metaDescription = content
				}
				if property == "og:description" && ogDescription == "" {
					ogDescription = content
				}
				if property == "og:title" && ogTitle == "" {
					ogTitle = content
				}
			case "h1", "h2", "h3":
				if text := common.NormalizeSpace(common.ExtractText(n)); text != "" {
					snapshot.Headings = append(snapshot.Headings, text)
				}
			case "button":
				addCTA(common.ExtractText(n))
			case "input":
				inputType := strings.ToLower(common.GetAttribute(n, "type"))
				if inputType == "submit" || inputType == "button" {
					addCTA(common.GetAttribute(n, "value"))
				}
			case "a":
				addCTA(common.ExtractText(n))
				if href := strings.TrimSpace(common.GetAttribute(n, "href")); href != "" {
					if resolved := resolveHref(base, href); isSocialLink(resolved) {
						snapshot.SocialLinks = append(snapshot.SocialLinks, resolved)
					}
				}
			case "body":
				inBody = true
			case "nav", "header", "footer":
				skipText = true
			}
		}

		if n.Type == html.TextNode && inBody && !skipText {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				bodyParts = append(bodyParts, trimmed)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody, skipText)
		}
	}
	walk(doc, false, false)

	if snapshot.Title == "" {
		snapshot.Title = ogTitle
	}
	snapshot.MetaDescription = metaDescription
	if snapshot.MetaDescription == "" {
		snapshot.MetaDescription = ogDescription
	}
	snapshot.BodyText = common.TruncateChars(common.NormalizeSpace(strings.Join(bodyParts, " ")), maxBodyTextChars)

	pe.logger.Debug().
		Str("url", pageURL).
		Int("headings", len(snapshot.Headings)).
		Int("cta_texts", len(snapshot.CTATexts)).
		Int("social_links", len(snapshot.SocialLinks)).
		Int("body_chars", len(snapshot.BodyText)).
		Msg("Page snapshot extracted")

	return snapshot
}

// resolveHref resolves a possibly relative href against the page URL
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base != nil {
		return base.ResolveReference(ref).String()
	}
	return ref.String()
}

func isSocialLink(link string) bool {
	lower := strings.ToLower(link)
	for _, domain := range socialDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}
