package analyzer

// Status is the quality tier assigned to a tag or to the overall score
type Status string

const (
	StatusGood             Status = "good"
	StatusNeedsImprovement Status = "needs_improvement"
	StatusMissing          Status = "missing"
	// StatusPoor is only used by Score
	StatusPoor Status = "poor"
)

// Category groups tag records for display
type Category string

const (
	CategoryBasic     Category = "basic"
	CategorySocial    Category = "social"
	CategoryTechnical Category = "technical"
)

// PageAnalysis represents the complete SEO tag analysis of a webpage
type PageAnalysis struct {
	URL             string           `json:"url" validate:"required,url"`
	Title           LengthCheck      `json:"title"`
	Description     LengthCheck      `json:"description"`
	Canonical       MessageCheck     `json:"canonical"`
	Viewport        PresenceCheck    `json:"viewport"`
	Favicon         PresenceCheck    `json:"favicon"`
	OpenGraph       OpenGraph        `json:"openGraph"`
	Twitter         TwitterCard      `json:"twitter"`
	StructuredData  MessageCheck     `json:"structuredData"`
	MetaTags        []TagRecord      `json:"metaTags" validate:"dive"`
	Score           Score            `json:"score"`
	Recommendations []Recommendation `json:"recommendations" validate:"dive"`
}

// LengthCheck is used for tags judged on their text length (title, description)
type LengthCheck struct {
	Content string `json:"content"`
	Length  int    `json:"length" validate:"min=0"`
	Status  Status `json:"status" validate:"oneof=good needs_improvement missing"`
	Message string `json:"message"`
}

type MessageCheck struct {
	Content string `json:"content"`
	Status  Status `json:"status" validate:"oneof=good needs_improvement missing"`
	Message string `json:"message"`
}

type PresenceCheck struct {
	Content string `json:"content"`
	Status  Status `json:"status" validate:"oneof=good needs_improvement missing"`
}

type OpenGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Status      Status `json:"status" validate:"oneof=good needs_improvement missing"`
}

type TwitterCard struct {
	Card        string `json:"card"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Status      Status `json:"status" validate:"oneof=good needs_improvement missing"`
}

// TagRecord is one discovered (or placeholder) meta, link or script element
type TagRecord struct {
	Name     string   `json:"name" validate:"required"`
	Content  string   `json:"content"`
	Property string   `json:"property,omitempty"`
	Status   Status   `json:"status" validate:"oneof=good needs_improvement missing"`
	Message  string   `json:"message,omitempty"`
	Category Category `json:"category" validate:"oneof=basic social technical"`
}

type Score struct {
	Value            int    `json:"value" validate:"min=0,max=100"`
	Status           Status `json:"status" validate:"oneof=good needs_improvement poor"`
	Implemented      int    `json:"implemented" validate:"min=0"`
	NeedsImprovement int    `json:"needsImprovement" validate:"min=0"`
	Missing          int    `json:"missing" validate:"min=0"`
}

type Recommendation struct {
	Message string `json:"message" validate:"required"`
	Status  Status `json:"status" validate:"oneof=good needs_improvement missing"`
}
