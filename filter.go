package newsharvest

import (
	"regexp"
	"strings"

	"github.com/pevans/newsharvest/newsfeed"
)

// DefaultAIKeywords decide whether a general technology story is about AI.
// In substring mode the padded entries (" ai ", " ml ") only match whole
// words.
var DefaultAIKeywords = []string{
	"artificial intelligence", " ai ", "machine learning", " ml ", "deep learning",
	"neural network", "chatgpt", "gpt", "llm", "large language model",
	"automation", "robotics", "computer vision", "nlp", "natural language",
	"generative ai", "openai", "anthropic", "claude", "bard", "gemini", "mistral",
}

// KeywordFilter keeps articles whose title or description mentions one of
// its keywords. By default keywords match as lower-case substrings of the
// space-padded text; with WordBoundary each keyword must match whole words,
// so "gpt" no longer matches inside "chatgpt-like".
type KeywordFilter struct {
	keywords     []string
	wordBoundary bool
	patterns     []*regexp.Regexp
}

// NewKeywordFilter creates a filter. A nil keyword list uses
// DefaultAIKeywords.
func NewKeywordFilter(keywords []string, wordBoundary bool) *KeywordFilter {
	if keywords == nil {
		keywords = DefaultAIKeywords
	}

	f := &KeywordFilter{wordBoundary: wordBoundary}
	for _, k := range keywords {
		k = strings.ToLower(k)
		f.keywords = append(f.keywords, k)
		if wordBoundary {
			if t := strings.TrimSpace(k); t != "" {
				f.patterns = append(f.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(t)+`\b`))
			}
		}
	}
	return f
}

// Match reports whether title or description mentions a keyword.
func (f *KeywordFilter) Match(title, description string) bool {
	text := " " + strings.ToLower(title) + " " + strings.ToLower(description) + " "

	if f.wordBoundary {
		for _, p := range f.patterns {
			if p.MatchString(text) {
				return true
			}
		}
		return false
	}

	for _, k := range f.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Apply returns the articles that match, in their original order.
func (f *KeywordFilter) Apply(articles []newsfeed.Article) []newsfeed.Article {
	var out []newsfeed.Article
	for _, a := range articles {
		if f.Match(a.Title, a.Description) {
			out = append(out, a)
		}
	}
	return out
}

// AppliesTo reports whether articles of category go through the AI-only
// filter: general technology categories do, AI-specific ones do not.
func AppliesTo(category string) bool {
	return strings.HasPrefix(strings.ToLower(category), "technology")
}
