package scraper

import (
	"slices"
	"strings"
)

// Profile defines how to extract an article body from a specific website:
// an ordered list of selectors, each expected to match the body paragraphs
// directly. The first selector that yields a qualifying paragraph wins.
type Profile struct {
	Selectors []string `json:"selectors" yaml:"selectors"`
}

// Profiles maps a source key, or a prefix of one, to its Profile. Sources
// with no entry use the generic heuristic.
type Profiles map[string]Profile

// DefaultProfiles returns the built-in overrides for sites whose markup the
// generic heuristic handles poorly.
func DefaultProfiles() Profiles {
	return Profiles{
		"reuters": {Selectors: []string{
			`article [data-testid="paragraph"]`,
			`article p`,
			`[data-testid="Body"] p`,
			`.article-body__content p`,
		}},
		"ibm": {Selectors: []string{
			`article .ibm--content p`,
			`article p`,
			`.bx--content p`,
			`.ibm-text__container p`,
			`.article__body p`,
		}},
	}
}

// Lookup returns the profile registered for key, or failing that the one
// registered under the longest prefix of key.
func (p Profiles) Lookup(key string) (Profile, bool) {
	if key == "" {
		return Profile{}, false
	}
	if prof, ok := p[key]; ok {
		return prof, true
	}

	best := ""
	for prefix := range p {
		if prefix == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		if len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Profile{}, false
	}
	return p[best], true
}

// With returns a copy of p with selectors registered under key. An empty
// selector list leaves p unchanged.
func (p Profiles) With(key string, selectors []string) Profiles {
	out := make(Profiles, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	if key != "" && len(selectors) > 0 {
		out[key] = Profile{Selectors: slices.Clone(selectors)}
	}
	return out
}
