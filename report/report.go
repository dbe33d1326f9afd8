// Package report renders page analyses for download and printing.
package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seo-optimizer/tag-inspector/analyzer"
)

//go:embed templates/*.html
var templateFS embed.FS

// Snippet limits used by search result previews
const (
	PreviewTitleLimit       = 60
	PreviewDescriptionLimit = 160
)

// CategoryAll selects every tag in FilterByCategory and CountByCategory
const CategoryAll = "all"

// Templates parses the embedded report templates with the report helpers
func Templates() (*template.Template, error) {
	return template.New("report").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
}

// FuncMap exposes the report helpers to templates
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"statusLabel":  StatusLabel,
		"truncatedURL": TruncatedURL,
		"truncate":     Truncate,
		"filterTags": func(tags []analyzer.TagRecord, category string) []analyzer.TagRecord {
			return FilterByCategory(tags, category)
		},
		"countTags": func(tags []analyzer.TagRecord, category string) int {
			return CountByCategory(tags, category)
		},
	}
}

// Page is the data handed to the HTML report template
type Page struct {
	Analysis         *analyzer.PageAnalysis
	GeneratedAt      time.Time
	Categories       []analyzer.Category
	TitleLimit       int
	DescriptionLimit int
}

// HTML writes the printable report of analysis to w
func HTML(w io.Writer, tmpl *template.Template, analysis *analyzer.PageAnalysis, generatedAt time.Time) error {
	page := Page{
		Analysis:    analysis,
		GeneratedAt: generatedAt,
		Categories:  []analyzer.Category{analyzer.CategoryBasic, analyzer.CategorySocial, analyzer.CategoryTechnical},

		TitleLimit:       PreviewTitleLimit,
		DescriptionLimit: PreviewDescriptionLimit,
	}
	if err := tmpl.ExecuteTemplate(w, "report.html", page); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// JSON returns the indented export of analysis, unchanged
func JSON(analysis *analyzer.PageAnalysis) ([]byte, error) {
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return data, nil
}

// ExportFilename names the JSON download after the analyzed host
func ExportFilename(pageURL string) string {
	host := "page"
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return "seo-analysis-" + host + ".json"
}

// StatusLabel returns the display label of a status
func StatusLabel(status analyzer.Status) string {
	switch status {
	case analyzer.StatusGood:
		return "Good"
	case analyzer.StatusNeedsImprovement:
		return "Needs Improvement"
	case analyzer.StatusMissing:
		return "Missing"
	case analyzer.StatusPoor:
		return "Poor"
	}
	return "Unknown"
}

// TruncatedURL formats a URL the way search results show it:
// "host › first-path-segment"
func TruncatedURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return pageURL
	}

	for _, segment := range strings.Split(u.Path, "/") {
		if segment != "" {
			return u.Hostname() + " › " + segment
		}
	}
	return u.Hostname()
}

// Truncate shortens text to limit characters, ending with "..."
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// FilterByCategory returns the tags of one category, or all tags for "all"
func FilterByCategory(tags []analyzer.TagRecord, category string) []analyzer.TagRecord {
	if category == CategoryAll {
		return tags
	}
	filtered := make([]analyzer.TagRecord, 0, len(tags))
	for _, tag := range tags {
		if string(tag.Category) == category {
			filtered = append(filtered, tag)
		}
	}
	return filtered
}

func CountByCategory(tags []analyzer.TagRecord, category string) int {
	return len(FilterByCategory(tags, category))
}
