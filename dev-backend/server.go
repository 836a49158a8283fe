package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// pageSubmission mirrors the body the companion posts to the analysis
// service. Snapshot fields use the extension's camelCase wire names.
type pageSubmission struct {
	URL         string `json:"url"`
	PageContent struct {
		Title           string   `json:"title"`
		MetaDescription string   `json:"metaDescription"`
		Headings        []string `json:"headings"`
		BodyText        string   `json:"bodyText"`
		CTATexts        []string `json:"ctaTexts"`
		SocialLinks     []string `json:"socialLinks"`
	} `json:"page_content"`
}

var (
	port   = flag.Int("port", 9100, "Port to listen on")
	legacy = flag.Bool("legacy", false, "Respond with the old flat field names and 0-10 score")
	delay  = flag.Duration("delay", 0, "Artificial processing delay per request")
)

func main() {
	flag.Parse()

	http.HandleFunc("/analysis/page", analyzePage)
	http.HandleFunc("/health", health)

	fmt.Println("🧪 PagePulse Analysis Stub")
	fmt.Printf("🔌 Endpoint: http://localhost:%d/analysis/page\n", *port)
	if *legacy {
		fmt.Println("📜 Serving the legacy response shape")
	}
	if *delay > 0 {
		fmt.Printf("⏱  Simulated processing delay: %s\n", *delay)
	}
	fmt.Println("")
	fmt.Printf("Point the companion at it with ANALYSIS_BASE_URL=http://localhost:%d\n", *port)
	fmt.Println("Press Ctrl+C to stop the server")

	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		fmt.Printf("Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

func analyzePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var submission pageSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode submission: %v", err), http.StatusBadRequest)
		return
	}

	if *delay > 0 {
		time.Sleep(*delay)
	}

	w.Header().Set("Content-Type", "application/json")
	if *legacy {
		json.NewEncoder(w).Encode(buildLegacyAnalysis(&submission))
		return
	}
	json.NewEncoder(w).Encode(buildAnalysis(&submission))
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

// buildAnalysis fabricates a current-shape response from whatever the page
// actually contains, so the popup renders something recognizable
func buildAnalysis(sub *pageSubmission) map[string]interface{} {
	content := &sub.PageContent

	return map[string]interface{}{
		"overview":        describeSite(sub),
		"target_audience": "Visitors arriving from search and social channels",
		"sections": []map[string]interface{}{
			{"title": "Strengths", "insights": strengths(sub)},
			{"title": "Weaknesses", "insights": weaknesses(sub)},
			{"title": "Improvements", "insights": improvements(sub)},
		},
		"verdicts": map[string]interface{}{
			"marketing": marketingVerdict(sub),
			"strategic": "Stub verdict: validate positioning with real traffic before investing further.",
		},
		"score": map[string]interface{}{
			"value": scoreValue(sub, 100),
			"reasoning": fmt.Sprintf("Derived from %d headings, %d calls to action and %d characters of copy.",
				len(content.Headings), len(content.CTATexts), len(content.BodyText)),
		},
	}
}

// buildLegacyAnalysis mirrors the response shape served before the sections
// rework: flat lists, flat verdicts and a 0-10 overall_score
func buildLegacyAnalysis(sub *pageSubmission) map[string]interface{} {
	return map[string]interface{}{
		"what_this_site_is": describeSite(sub),
		"audience":          "Visitors arriving from search and social channels",
		"strengths":         strengths(sub),
		"weaknesses":        weaknesses(sub),
		"improvements":      improvements(sub),
		"marketing_verdict": marketingVerdict(sub),
		"investor_verdict":  "Stub verdict: validate positioning with real traffic before investing further.",
		"overall_score":     scoreValue(sub, 10),
	}
}

func describeSite(sub *pageSubmission) string {
	title := strings.TrimSpace(sub.PageContent.Title)
	if title == "" {
		title = sub.URL
	}
	if desc := strings.TrimSpace(sub.PageContent.MetaDescription); desc != "" {
		return fmt.Sprintf("%s: %s", title, desc)
	}
	return fmt.Sprintf("%s, a page with no meta description.", title)
}

func strengths(sub *pageSubmission) []string {
	content := &sub.PageContent
	out := []string{}

	if content.Title != "" {
		out = append(out, "Page declares a title, which helps search snippets")
	}
	if len(content.Headings) > 0 {
		out = append(out, fmt.Sprintf("Content is structured under %d headings", len(content.Headings)))
	}
	if len(content.SocialLinks) > 0 {
		out = append(out, fmt.Sprintf("Links out to %d social profiles", len(content.SocialLinks)))
	}
	if len(out) == 0 {
		out = append(out, "Page loads and returns markup")
	}
	return out
}

func weaknesses(sub *pageSubmission) []string {
	content := &sub.PageContent
	out := []string{}

	if content.MetaDescription == "" {
		out = append(out, "Missing meta description")
	}
	if len(content.CTATexts) == 0 {
		out = append(out, "No calls to action found")
	}
	if len(content.BodyText) < 280 {
		out = append(out, "Very little body copy for ranking or conversion")
	}
	if len(out) == 0 {
		out = append(out, "Nothing structural, review the messaging by hand")
	}
	return out
}

func improvements(sub *pageSubmission) []string {
	content := &sub.PageContent
	out := []string{}

	if content.MetaDescription == "" {
		out = append(out, "Add a meta description between 120 and 160 characters")
	}
	if len(content.CTATexts) == 0 {
		out = append(out, "Add at least one above-the-fold call to action")
	}
	if len(content.SocialLinks) == 0 {
		out = append(out, "Link social profiles in the footer")
	}
	if len(out) == 0 {
		out = append(out, "Run a real analysis pass, the stub has no further suggestions")
	}
	return out
}

func marketingVerdict(sub *pageSubmission) string {
	if len(sub.PageContent.CTATexts) > 0 {
		return "Stub verdict: page is conversion oriented, test the message next."
	}
	return "Stub verdict: page is informational, add a conversion path."
}

// scoreValue grades content completeness on the requested scale. It is
// deterministic on purpose so repeated dev runs produce stable history.
func scoreValue(sub *pageSubmission, scale float64) float64 {
	content := &sub.PageContent
	points := 0

	if content.Title != "" {
		points += 2
	}
	if content.MetaDescription != "" {
		points += 2
	}
	if len(content.Headings) > 0 {
		points += 2
	}
	if len(content.CTATexts) > 0 {
		points += 2
	}
	if len(content.BodyText) >= 280 {
		points++
	}
	if len(content.SocialLinks) > 0 {
		points++
	}
	return float64(points) / 10 * scale
}
