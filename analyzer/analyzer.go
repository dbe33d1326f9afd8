package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
)

// ErrInvalidURL is returned when the page URL is not an absolute URL
var ErrInvalidURL = errors.New("invalid url")

// Length thresholds for a "good" title and meta description
const (
	titleMinLength       = 30
	titleMaxLength       = 60
	descriptionMinLength = 120
	descriptionMaxLength = 155
)

// PlaceholderStructuredData is reported as the content of the JSON-LD tag
// record when the page carries no structured data at all.
const PlaceholderStructuredData = `{ "@context": "https://schema.org", "@type": "WebPage", "name": "Page Title" }`

const (
	selectorTitle          = "title"
	selectorDescription    = `meta[name="description"]`
	selectorCanonical      = `link[rel="canonical" i]`
	selectorViewport       = `meta[name="viewport"]`
	selectorFavicon        = `link[rel="icon" i], link[rel="shortcut icon" i]`
	selectorRobots         = `meta[name="robots"]`
	selectorOpenGraph      = `meta[property^="og:"]`
	selectorTwitter        = `meta[name^="twitter:"]`
	selectorStructuredData = `script[type="application/ld+json" i]`
)

// Analyze performs the SEO tag analysis of a page's HTML. It does no I/O and
// is safe to call concurrently. The only failure is an invalid pageURL, in
// which case no analysis is returned.
func Analyze(pageURL, html string) (*PageAnalysis, error) {
	host, err := hostname(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	analysis := &PageAnalysis{URL: pageURL}
	analysis.Title = analyzeTitle(doc)
	analysis.Description = analyzeDescription(doc)
	analysis.Canonical = analyzeCanonical(doc, host)
	analysis.Viewport = analyzeViewport(doc)
	analysis.Favicon = analyzeFavicon(doc)
	analysis.OpenGraph = analyzeOpenGraph(doc)
	analysis.Twitter = analyzeTwitter(doc)
	analysis.StructuredData = analyzeStructuredData(doc)

	analysis.MetaTags = collectTags(doc, analysis)
	analysis.Score = calculateScore(analysis.MetaTags)
	analysis.Recommendations = generateRecommendations(analysis)

	return analysis, nil
}

// ValidateURL reports whether pageURL is an absolute URL Analyze accepts
func ValidateURL(pageURL string) error {
	_, err := hostname(pageURL)
	return err
}

// hostname validates pageURL and returns its lower-cased host name
func hostname(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidURL, pageURL, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w %q: scheme and host are required", ErrInvalidURL, pageURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

func attr(doc *goquery.Document, selector, name string) string {
	value, _ := doc.Find(selector).Attr(name)
	return value
}

// textLength counts UTF-16 code units, the unit browsers and search
// snippets measure text in. Characters outside the BMP count twice.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// checkLength classifies text against the [min,max] range considered good
func checkLength(content string, lo, hi int, missingMessage string) LengthCheck {
	check := LengthCheck{
		Content: content,
		Length:  textLength(content),
		Status:  StatusGood,
		Message: "Good length",
	}

	switch {
	case check.Length == 0:
		check.Status = StatusMissing
		check.Message = missingMessage
	case check.Length < lo:
		check.Status = StatusNeedsImprovement
		check.Message = "Too short"
	case check.Length > hi:
		check.Status = StatusNeedsImprovement
		check.Message = "Too long"
	}

	return check
}

func analyzeTitle(doc *goquery.Document) LengthCheck {
	title := doc.Find(selectorTitle).First().Text()
	return checkLength(title, titleMinLength, titleMaxLength, "Missing title tag")
}

func analyzeDescription(doc *goquery.Document) LengthCheck {
	description := attr(doc, selectorDescription, "content")
	return checkLength(description, descriptionMinLength, descriptionMaxLength, "Missing description tag")
}

// analyzeCanonical only checks that the canonical href mentions the page's
// host name somewhere; it is not a structural URL comparison.
func analyzeCanonical(doc *goquery.Document, host string) MessageCheck {
	canonical := attr(doc, selectorCanonical, "href")

	switch {
	case canonical == "":
		return MessageCheck{Status: StatusMissing, Message: "Missing canonical tag"}
	case !strings.Contains(canonical, host):
		return MessageCheck{
			Content: canonical,
			Status:  StatusNeedsImprovement,
			Message: "Canonical URL points to different domain",
		}
	}

	return MessageCheck{
		Content: canonical,
		Status:  StatusGood,
		Message: "Properly implemented canonical URL",
	}
}

func analyzeViewport(doc *goquery.Document) PresenceCheck {
	viewport := attr(doc, selectorViewport, "content")

	status := StatusGood
	if viewport == "" {
		status = StatusMissing
	} else if !strings.Contains(viewport, "width=device-width") {
		status = StatusNeedsImprovement
	}

	return PresenceCheck{Content: viewport, Status: status}
}

func analyzeFavicon(doc *goquery.Document) PresenceCheck {
	favicon := attr(doc, selectorFavicon, "href")
	if favicon == "" {
		return PresenceCheck{Status: StatusMissing}
	}
	return PresenceCheck{Content: favicon, Status: StatusGood}
}

// presence returns good when every value is set, missing when none is and
// needs_improvement otherwise
func presence(values ...string) Status {
	set := 0
	for _, v := range values {
		if v != "" {
			set++
		}
	}

	switch set {
	case len(values):
		return StatusGood
	case 0:
		return StatusMissing
	}
	return StatusNeedsImprovement
}

func analyzeOpenGraph(doc *goquery.Document) OpenGraph {
	og := OpenGraph{
		Title:       attr(doc, `meta[property="og:title"]`, "content"),
		Description: attr(doc, `meta[property="og:description"]`, "content"),
		Image:       attr(doc, `meta[property="og:image"]`, "content"),
		URL:         attr(doc, `meta[property="og:url"]`, "content"),
		Type:        attr(doc, `meta[property="og:type"]`, "content"),
	}
	og.Status = presence(og.Title, og.Description, og.Image, og.URL, og.Type)
	return og
}

func analyzeTwitter(doc *goquery.Document) TwitterCard {
	card := TwitterCard{
		Card:        attr(doc, `meta[name="twitter:card"]`, "content"),
		Title:       attr(doc, `meta[name="twitter:title"]`, "content"),
		Description: attr(doc, `meta[name="twitter:description"]`, "content"),
		Image:       attr(doc, `meta[name="twitter:image"]`, "content"),
	}

	// Without a card type the other twitter tags are ignored
	if card.Card == "" {
		card.Status = StatusMissing
	} else if presence(card.Title, card.Description, card.Image) != StatusGood {
		card.Status = StatusNeedsImprovement
	} else {
		card.Status = StatusGood
	}

	return card
}

func analyzeStructuredData(doc *goquery.Document) MessageCheck {
	scripts := doc.Find(selectorStructuredData)
	if scripts.Length() == 0 {
		return MessageCheck{Status: StatusMissing, Message: "Missing structured data"}
	}

	content := scripts.First().Text()
	if !json.Valid([]byte(content)) {
		return MessageCheck{
			Content: content,
			Status:  StatusNeedsImprovement,
			Message: "Invalid JSON-LD structured data",
		}
	}

	return MessageCheck{
		Content: content,
		Status:  StatusGood,
		Message: "Structured data present",
	}
}

func lengthMessage(check LengthCheck) string {
	return fmt.Sprintf("%d characters - %s", check.Length, check.Message)
}

func contentStatus(content string) Status {
	if content == "" {
		return StatusMissing
	}
	return StatusGood
}

// collectTags builds the tag list in document order within each pass. Each
// og:* and twitter:* record is judged only on its own content, unlike the
// aggregate OpenGraph and Twitter statuses.
func collectTags(doc *goquery.Document, analysis *PageAnalysis) []TagRecord {
	tags := make([]TagRecord, 0, 16)

	if analysis.Title.Content != "" {
		tags = append(tags, TagRecord{
			Name:     "Title",
			Content:  analysis.Title.Content,
			Status:   analysis.Title.Status,
			Message:  lengthMessage(analysis.Title),
			Category: CategoryBasic,
		})
	}

	doc.Find(selectorDescription).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		tags = append(tags, TagRecord{
			Name:     "Meta Description",
			Content:  content,
			Status:   analysis.Description.Status,
			Message:  lengthMessage(analysis.Description),
			Category: CategoryBasic,
		})
	})

	doc.Find(selectorCanonical).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		tags = append(tags, TagRecord{
			Name:     "Canonical URL",
			Content:  href,
			Status:   analysis.Canonical.Status,
			Message:  analysis.Canonical.Message,
			Category: CategoryBasic,
		})
	})

	doc.Find(selectorOpenGraph).Each(func(_ int, s *goquery.Selection) {
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")
		tags = append(tags, TagRecord{
			Name:     property,
			Property: property,
			Content:  content,
			Status:   contentStatus(content),
			Category: CategorySocial,
		})
	})

	doc.Find(selectorTwitter).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		tags = append(tags, TagRecord{
			Name:     name,
			Content:  content,
			Status:   contentStatus(content),
			Category: CategorySocial,
		})
	})

	if viewport := doc.Find(selectorViewport); viewport.Length() > 0 {
		content, _ := viewport.First().Attr("content")
		tags = append(tags, TagRecord{
			Name:     "Viewport",
			Content:  content,
			Status:   analysis.Viewport.Status,
			Category: CategoryTechnical,
		})
	}

	doc.Find(selectorRobots).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		tags = append(tags, TagRecord{
			Name:     "Robots",
			Content:  content,
			Status:   StatusGood,
			Category: CategoryTechnical,
		})
	})

	// JSON-LD always contributes exactly one record
	structured := TagRecord{
		Name:     "Structured Data (JSON-LD)",
		Content:  analysis.StructuredData.Content,
		Status:   analysis.StructuredData.Status,
		Message:  analysis.StructuredData.Message,
		Category: CategoryTechnical,
	}
	if analysis.StructuredData.Status == StatusMissing {
		structured.Content = PlaceholderStructuredData
		structured.Message = "Add structured data to enhance search result appearance"
	}
	tags = append(tags, structured)

	return tags
}

func calculateScore(tags []TagRecord) Score {
	score := Score{}
	for _, tag := range tags {
		switch tag.Status {
		case StatusGood:
			score.Implemented++
		case StatusNeedsImprovement:
			score.NeedsImprovement++
		case StatusMissing:
			score.Missing++
		}
	}

	total := score.Implemented + score.NeedsImprovement + score.Missing
	if total > 0 {
		weighted := float64(score.Implemented) + float64(score.NeedsImprovement)*0.5
		score.Value = int(math.Round(weighted / float64(total) * 100))
	}

	switch {
	case score.Value >= 80:
		score.Status = StatusGood
	case score.Value >= 50:
		score.Status = StatusNeedsImprovement
	default:
		score.Status = StatusPoor
	}

	return score
}

// lengthAdvice completes a recommendation for a length-checked tag
func lengthAdvice(check LengthCheck) string {
	switch {
	case check.Status == StatusMissing:
		return "by adding one"
	case check.Message == "Too short":
		return "by making it longer"
	}
	return "by making it shorter"
}

func generateRecommendations(analysis *PageAnalysis) []Recommendation {
	recommendations := make([]Recommendation, 0, 6)

	add := func(status Status, message string) {
		if status != StatusGood {
			recommendations = append(recommendations, Recommendation{Message: message, Status: status})
		}
	}

	add(analysis.Title.Status, "Optimize your title tag "+lengthAdvice(analysis.Title))
	add(analysis.Description.Status, "Optimize your meta description "+lengthAdvice(analysis.Description))
	add(analysis.Canonical.Status,
		"Add a proper canonical URL tag to indicate the preferred version of this page")
	add(analysis.OpenGraph.Status,
		"Add Open Graph meta tags to improve how your site appears when shared on social media")
	add(analysis.Twitter.Status,
		"Add Twitter Card meta tags to control how your content appears when shared on Twitter")
	add(analysis.StructuredData.Status,
		"Add structured data (JSON-LD) to enhance search result appearance")

	return recommendations
}
