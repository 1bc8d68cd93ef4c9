package scraper

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Meta is the page-level metadata of an article. Author and Published are
// nil when the page does not state them.
type Meta struct {
	Title       string
	Description string
	Author      *string
	Published   *string
	Canonical   string
}

// articleTypes are the structured-data types read for article metadata.
var articleTypes = map[string]bool{
	"Article":     true,
	"NewsArticle": true,
	"BlogPosting": true,
}

// ExtractMeta reads title, description, author, publish date and canonical
// URL from doc. For each field the first source that yields a value wins:
// OpenGraph and named meta tags, then JSON-LD, then plain markup.
func ExtractMeta(doc *goquery.Document, pageURL string) Meta {
	var title, desc, author, published string
	canonical := pageURL

	if href := strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", "")); href != "" {
		canonical = resolveURL(pageURL, href)
	}

	title = metaContent(doc, `meta[property="og:title"]`)
	desc = metaContent(doc, `meta[property="og:description"]`)
	published = firstNonEmpty(
		metaContent(doc, `meta[property="article:published_time"]`),
		metaContent(doc, `meta[name="pubdate"]`),
	)
	author = firstNonEmpty(
		metaContent(doc, `meta[name="author"]`),
		metaContent(doc, `meta[property="article:author"]`),
	)

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		for _, obj := range jsonLDObjects(s.Text()) {
			types := typeNames(obj["@type"])
			if hasAny(types, articleTypes) {
				title = firstNonEmpty(title, stringField(obj, "headline"))
				desc = firstNonEmpty(desc, stringField(obj, "description"))
				published = firstNonEmpty(published, stringField(obj, "datePublished"), stringField(obj, "dateCreated"))
				author = firstNonEmpty(author, authorName(obj["author"]))
			}
			if hasAny(types, map[string]bool{"WebPage": true}) {
				title = firstNonEmpty(title, stringField(obj, "headline"))
			}
		}
	})

	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if desc == "" {
		desc = nodeText(doc.Find("p").First())
	}

	m := Meta{
		Title:       CleanText(title),
		Description: CleanText(desc),
		Canonical:   canonical,
		Published:   NormalizeDate(published),
	}
	if a := CleanText(author); a != "" {
		m.Author = &a
	}

	return m
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

// jsonLDObjects decodes one ld+json block into its objects: a single
// object, a top-level array, or the members of an @graph container.
// Malformed blocks yield nothing.
func jsonLDObjects(raw string) []map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}

	var items []any
	switch v := data.(type) {
	case []any:
		items = v
	default:
		items = []any{v}
	}

	var out []map[string]any
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, obj)
		if graph, ok := obj["@graph"].([]any); ok {
			for _, g := range graph {
				if gobj, ok := g.(map[string]any); ok {
					out = append(out, gobj)
				}
			}
		}
	}
	return out
}

func typeNames(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func hasAny(types []string, want map[string]bool) bool {
	for _, t := range types {
		if want[t] {
			return true
		}
	}
	return false
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// authorName reads the name of an author object, or of the first element
// of an author array.
func authorName(v any) string {
	switch a := v.(type) {
	case map[string]any:
		return stringField(a, "name")
	case []any:
		if len(a) == 0 {
			return ""
		}
		if obj, ok := a[0].(map[string]any); ok {
			return stringField(obj, "name")
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := b.Parse(href)
	if err != nil {
		return href
	}
	return ref.String()
}
