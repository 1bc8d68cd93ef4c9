package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	DefaultMinWords = 3
	DefaultBodyCap  = 3000
)

// boilerplateSelector is removed from the document before the generic
// heuristic looks for candidate containers.
const boilerplateSelector = "script, style, nav, aside, footer, header, .advertisement, .ad, .sidebar, .comments, .social-share"

// excludedAncestors disqualifies a paragraph that sits inside one of them.
const excludedAncestors = "nav, aside, footer, header, .advertisement, .ad, .sidebar"

// CandidateSelectors are evaluated in order; every node any of them matches
// becomes a candidate container.
var CandidateSelectors = []string{
	"article",
	"main",
	`[role="main"]`,
	".article-content",
	".post-content",
	".entry-content",
	".article-body",
	".content__article-body",
	".c-article",
	".c-post",
	".story-content",
	".rich-text",
	".story-body",
	".article__body",
	".post-body",
	".entry-body",
	".content-body",
	".article-text",
	".post-text",
	`[data-testid="article-content"]`,
	`[data-testid="story-content"]`,
	".content",
	".main-content",
	".article-main",
	".post-main",
}

// NoContentError reports a page that was fetched but yielded nothing usable
// for the named field ("body" or "title").
type NoContentError struct {
	URL   string
	Field string
}

func (e *NoContentError) Error() string {
	return fmt.Sprintf("no extractable %s at %s", e.Field, e.URL)
}

// ExtractorOptions configures an Extractor. Zero values use the defaults.
type ExtractorOptions struct {
	// Minimum word count for a paragraph to count as body text.
	MinWords int
	// Body length cap in characters; longer bodies are cut and get Ellipsis.
	BodyCap  int
	Profiles Profiles
	// Run go-readability over the page when the selector heuristics found
	// nothing.
	ReadabilityFallback bool
	Logger              *slog.Logger
}

// Extractor pulls the article body out of a parsed page. It holds no
// per-page state and is safe for concurrent use.
type Extractor struct {
	minWords    int
	bodyCap     int
	profiles    Profiles
	readability bool
	logger      *slog.Logger
}

// NewExtractor creates an extractor. A nil Profiles gets DefaultProfiles.
func NewExtractor(opts ExtractorOptions) *Extractor {
	if opts.MinWords <= 0 {
		opts.MinWords = DefaultMinWords
	}
	if opts.BodyCap <= 0 {
		opts.BodyCap = DefaultBodyCap
	}
	if opts.Profiles == nil {
		opts.Profiles = DefaultProfiles()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Extractor{
		minWords:    opts.MinWords,
		bodyCap:     opts.BodyCap,
		profiles:    opts.Profiles,
		readability: opts.ReadabilityFallback,
		logger:      opts.Logger,
	}
}

// WithProfile returns a copy of e that also knows selectors for key. With
// no selectors it returns e itself.
func (e *Extractor) WithProfile(key string, selectors []string) *Extractor {
	if len(selectors) == 0 {
		return e
	}
	cp := *e
	cp.profiles = e.profiles.With(key, selectors)
	return &cp
}

// ExtractBody returns the cleaned, capped body text of doc, or "" when
// nothing qualifies. The document is not modified.
func (e *Extractor) ExtractBody(doc *goquery.Document, sourceKey string) string {
	if doc == nil {
		return ""
	}

	var paragraphs []string
	if prof, ok := e.profiles.Lookup(sourceKey); ok {
		paragraphs = e.fromProfile(doc, prof)
	}
	if len(paragraphs) == 0 {
		paragraphs = e.generic(doc)
	}
	if len(paragraphs) == 0 && e.readability {
		paragraphs = e.fromReadability(doc)
	}

	return Truncate(strings.Join(paragraphs, "\n\n"), e.bodyCap)
}

// RequireBody is ExtractBody for callers that treat an empty body as a
// failure.
func (e *Extractor) RequireBody(doc *goquery.Document, sourceKey, pageURL string) (string, error) {
	body := e.ExtractBody(doc, sourceKey)
	if body == "" {
		return "", &NoContentError{URL: pageURL, Field: "body"}
	}
	return body, nil
}

func (e *Extractor) fromProfile(doc *goquery.Document, prof Profile) []string {
	for _, sel := range prof.Selectors {
		var parts []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t, ok := e.paragraph(s); ok {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return parts
		}
	}
	return nil
}

// generic scores every candidate container by the length of its joined
// paragraphs. Ties go to the container found first.
func (e *Extractor) generic(doc *goquery.Document) []string {
	root := doc.Selection.Clone()
	root.Find(boilerplateSelector).Remove()

	var candidates []*goquery.Selection
	seen := map[*html.Node]bool{}
	for _, sel := range CandidateSelectors {
		root.Find(sel).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if seen[node] {
				return
			}
			seen[node] = true
			candidates = append(candidates, s)
		})
	}
	if len(candidates) == 0 {
		if body := root.Find("body"); body.Length() > 0 {
			candidates = append(candidates, body.First())
		} else {
			candidates = append(candidates, root)
		}
	}

	var best []string
	bestLen := 0
	for _, cand := range candidates {
		var parts []string
		cand.Find("p").Each(func(_ int, p *goquery.Selection) {
			if p.ParentsFiltered(excludedAncestors).Length() > 0 {
				return
			}
			if t, ok := e.paragraph(p); ok {
				parts = append(parts, t)
			}
		})

		n := joinedLen(parts)
		if n > bestLen {
			best, bestLen = parts, n
		}
	}

	return best
}

func (e *Extractor) fromReadability(doc *goquery.Document) []string {
	raw, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil
	}

	article, err := readability.FromReader(strings.NewReader(raw), doc.Url)
	if err != nil {
		e.logger.Debug("readability failed", "error", err)
		return nil
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return nil
	}

	var parts []string
	for _, line := range strings.Split(buf.String(), "\n") {
		t := CleanText(line)
		if len(strings.Fields(t)) >= e.minWords {
			parts = append(parts, t)
		}
	}
	return parts
}

// paragraph returns the cleaned text of s when it has enough words.
func (e *Extractor) paragraph(s *goquery.Selection) (string, bool) {
	t := CleanText(nodeText(s))
	if t == "" || len(strings.Fields(t)) < e.minWords {
		return "", false
	}
	return t, true
}

func joinedLen(parts []string) int {
	if len(parts) == 0 {
		return 0
	}
	n := 2 * (len(parts) - 1)
	for _, p := range parts {
		n += len([]rune(p))
	}
	return n
}

// nodeText joins the trimmed text nodes under s with single spaces, so
// "<p>one<br>two</p>" reads "one two" rather than "onetwo".
func nodeText(s *goquery.Selection) string {
	var pieces []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				pieces = append(pieces, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(pieces, " ")
}
