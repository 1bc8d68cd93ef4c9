package newsfeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Article is a single harvested news article. Field order is the JSON
// output order. PublishedDate and Author are null when the source does not
// state them.
type Article struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	URL           string  `json:"url"`
	Source        string  `json:"source"`
	Category      string  `json:"category"`
	PublishedDate *string `json:"published_date"`
	Author        *string `json:"author"`
	Content       string  `json:"content"`
}

// CategoryReport is the document written for one category.
type CategoryReport struct {
	// RunID identifies the run that produced the report. It is kept by
	// the SQLite store and left out of the JSON document.
	RunID         uuid.UUID `json:"-"`
	Category      string    `json:"category"`
	ScrapedAt     time.Time `json:"scraped_at"`
	TotalArticles int       `json:"total_articles"`
	Articles      []Article `json:"articles"`
}

// SourceOutcome records what happened to one source during a run.
type SourceOutcome struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Category string `json:"category"`
	// Strategy is the strategy that produced the articles, empty when every
	// strategy came back empty.
	Strategy string `json:"strategy,omitempty"`
	Articles int    `json:"articles"`
	Error    string `json:"error,omitempty"`
}

// RunResult collects the articles of one harvest run, grouped by category
// in the order categories were first seen. Within a category an article URL
// appears at most once. RunResult is not safe for concurrent use.
type RunResult struct {
	RunID     uuid.UUID
	ScrapedAt time.Time
	Outcomes  []SourceOutcome

	categories []string
	articles   map[string][]Article
	seen       map[string]map[string]bool
}

// NewRunResult starts an empty result stamped with scrapedAt.
func NewRunResult(scrapedAt time.Time) *RunResult {
	return &RunResult{
		RunID:     uuid.New(),
		ScrapedAt: scrapedAt,
		articles:  map[string][]Article{},
		seen:      map[string]map[string]bool{},
	}
}

// EnsureCategory registers a category so that it is reported even if it
// ends up with no articles.
func (r *RunResult) EnsureCategory(category string) {
	if _, ok := r.seen[category]; ok {
		return
	}
	r.categories = append(r.categories, category)
	r.seen[category] = map[string]bool{}
	r.articles[category] = []Article{}
}

// Add appends articles to category, skipping any whose URL the category
// already holds. It returns how many were added.
func (r *RunResult) Add(category string, articles ...Article) int {
	r.EnsureCategory(category)

	added := 0
	for _, a := range articles {
		if r.seen[category][a.URL] {
			continue
		}
		r.seen[category][a.URL] = true
		r.articles[category] = append(r.articles[category], a)
		added++
	}
	return added
}

// Record stores a source's outcome and adds its articles under the
// source's category. The outcome's article count is the number actually
// added after deduplication.
func (r *RunResult) Record(outcome SourceOutcome, articles []Article) {
	outcome.Articles = r.Add(outcome.Category, articles...)
	r.Outcomes = append(r.Outcomes, outcome)
}

// Categories returns the category names in first-seen order.
func (r *RunResult) Categories() []string {
	return append([]string(nil), r.categories...)
}

// Articles returns the articles of one category in discovery order.
func (r *RunResult) Articles(category string) []Article {
	return r.articles[category]
}

// Total returns the number of articles across all categories.
func (r *RunResult) Total() int {
	n := 0
	for _, a := range r.articles {
		n += len(a)
	}
	return n
}

// Report builds the document for one category.
func (r *RunResult) Report(category string) CategoryReport {
	articles := r.articles[category]
	if articles == nil {
		articles = []Article{}
	}
	return CategoryReport{
		RunID:         r.RunID,
		Category:      category,
		ScrapedAt:     r.ScrapedAt,
		TotalArticles: len(articles),
		Articles:      articles,
	}
}

// Reports builds one document per category in category order.
func (r *RunResult) Reports() []CategoryReport {
	out := make([]CategoryReport, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, r.Report(c))
	}
	return out
}

type runDocument struct {
	RunID         uuid.UUID        `json:"run_id"`
	ScrapedAt     time.Time        `json:"scraped_at"`
	TotalArticles int              `json:"total_articles"`
	Categories    []CategoryReport `json:"categories"`
	Sources       []SourceOutcome  `json:"sources,omitempty"`
}

// MarshalJSON writes the aggregate document: run metadata plus every
// category report.
func (r *RunResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(runDocument{
		RunID:         r.RunID,
		ScrapedAt:     r.ScrapedAt,
		TotalArticles: r.Total(),
		Categories:    r.Reports(),
		Sources:       r.Outcomes,
	})
}

// UnmarshalJSON reads the document written by MarshalJSON.
func (r *RunResult) UnmarshalJSON(data []byte) error {
	var doc runDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal run result: %w", err)
	}

	*r = *NewRunResult(doc.ScrapedAt)
	r.RunID = doc.RunID
	r.Outcomes = doc.Sources
	for _, rep := range doc.Categories {
		r.Add(rep.Category, rep.Articles...)
	}
	return nil
}
