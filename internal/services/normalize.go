package services

import (
	"encoding/json"
	"strings"

	"pagepulse-companion/internal/models"
)

// legacySectionFields maps the flat list fields of early server revisions
// to section titles, in their historical display order
var legacySectionFields = []struct {
	key   string
	title string
}{
	{"strengths", "Strengths"},
	{"weaknesses", "Weaknesses"},
	{"improvements", "Improvements"},
}

// NormalizeAnalysis converts a loosely-shaped server response into the
// fully-defaulted AnalysisResult. Server revisions have renamed fields over
// time, so each logical attribute is read from an ordered list of known
// candidates and the first present value wins. Missing fields become empty
// strings, empty lists, or zero; variant shapes never propagate past here.
func NormalizeAnalysis(raw map[string]interface{}) *models.AnalysisResult {
	result := models.NewAnalysisResult()
	if raw == nil {
		return result
	}

	result.Overview = firstString(raw, "overview", "what_this_site_is")
	result.TargetAudience = firstString(raw, "target_audience", "audience")
	result.Sections = normalizeSections(raw)
	result.Verdicts = normalizeVerdicts(raw)
	result.Score = normalizeScore(raw)

	return result
}

func normalizeSections(raw map[string]interface{}) []models.AnalysisSection {
	sections := []models.AnalysisSection{}

	if value, ok := raw["sections"]; ok {
		if list, ok := value.([]interface{}); ok {
			for _, item := range list {
				entry, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				section := models.AnalysisSection{
					Title:    firstString(entry, "title", "name"),
					Insights: getStringList(entry, "insights"),
				}
				if len(section.Insights) == 0 {
					section.Insights = getStringList(entry, "items")
				}
				if section.Title == "" && len(section.Insights) == 0 {
					continue
				}
				sections = append(sections, section)
			}
		}
		if len(sections) > 0 {
			return sections
		}
	}

	// Fall back to the legacy flat lists, one titled section per list
	for _, legacy := range legacySectionFields {
		if insights := getStringList(raw, legacy.key); len(insights) > 0 {
			sections = append(sections, models.AnalysisSection{
				Title:    legacy.title,
				Insights: insights,
			})
		}
	}

	return sections
}

func normalizeVerdicts(raw map[string]interface{}) models.AnalysisVerdicts {
	verdicts := models.AnalysisVerdicts{}

	if nested := getMap(raw, "verdicts"); nested != nil {
		verdicts.Marketing = firstString(nested, "marketing", "marketing_verdict")
		verdicts.Strategic = firstString(nested, "strategic", "investor_verdict")
	}
	if verdicts.Marketing == "" {
		verdicts.Marketing = firstString(raw, "marketing", "marketing_verdict")
	}
	if verdicts.Strategic == "" {
		verdicts.Strategic = firstString(raw, "strategic", "investor_verdict")
	}

	return verdicts
}

// normalizeScore accepts the nested score object, a bare score number, or
// the legacy flat overall_score. The value is kept as reported; old
// revisions score 0-10 and newer ones 0-100.
func normalizeScore(raw map[string]interface{}) models.AnalysisScore {
	score := models.AnalysisScore{}

	if nested := getMap(raw, "score"); nested != nil {
		if value, ok := getNumber(nested, "value"); ok {
			score.Value = value
		}
		score.Reasoning = firstString(nested, "reasoning", "explanation")
		return score
	}
	if value, ok := getNumber(raw, "score"); ok {
		score.Value = value
		return score
	}
	if value, ok := getNumber(raw, "overall_score"); ok {
		score.Value = value
	}

	return score
}

func getString(data map[string]interface{}, key string) string {
	if value, ok := data[key]; ok {
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstString(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := getString(data, key); s != "" {
			return s
		}
	}
	return ""
}

func getStringList(data map[string]interface{}, key string) []string {
	items := []string{}
	value, ok := data[key]
	if !ok {
		return items
	}
	list, ok := value.([]interface{})
	if !ok {
		return items
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}

func getMap(data map[string]interface{}, key string) map[string]interface{} {
	if value, ok := data[key]; ok {
		if m, ok := value.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

func getNumber(data map[string]interface{}, key string) (float64, bool) {
	value, ok := data[key]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
