package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the categories file read when none is given.
const DefaultConfigFile = "categories_config.json"

// Category is a named group of sources. URLs are the seed pages listed for
// it in the configuration file.
type Category struct {
	Name        string
	Description string
	URLs        []string
}

// Catalog is a loaded source configuration. Categories and Sources keep
// the order in which they were declared.
type Catalog struct {
	Categories []Category
	Sources    []SourceConfig
}

type categoryEntry struct {
	Description string   `yaml:"description"`
	URLs        []string `yaml:"urls"`
}

type sourceEntry struct {
	Name       string          `yaml:"name"`
	Category   string          `yaml:"category"`
	Selectors  []string        `yaml:"selectors"`
	Strategies []strategyEntry `yaml:"strategies"`
}

type strategyEntry struct {
	Type      string `yaml:"type"`
	URL       string `yaml:"url"`
	LinkRegex string `yaml:"link_regex"`

	// Older files name the URL after the strategy type.
	RSSURL     string `yaml:"rss_url"`
	SiteURL    string `yaml:"site_url"`
	ListingURL string `yaml:"listing_url"`
}

// LoadFile reads a categories file (JSON or YAML). The returned error is
// set only when the file as a whole is unusable; problems with individual
// entries are returned in the []error slice as *ConfigError values and the
// entries are left out of the catalog.
func LoadFile(path string) (*Catalog, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	return Parse(data)
}

// Parse is LoadFile for in-memory data.
func Parse(data []byte) (*Catalog, []error, error) {
	// JSON is read through the YAML parser to keep declaration order, but
	// YAML rejects tab indentation. Valid JSON never has a raw tab inside a
	// string, so swapping them for spaces is safe.
	if json.Valid(data) {
		data = bytes.ReplaceAll(data, []byte("\t"), []byte(" "))
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to parse categories file: %w", err)
	}

	cat := &Catalog{}
	if len(root.Content) == 0 {
		return cat, nil, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, nil, errors.New("failed to parse categories file: top level must be an object")
	}

	b := &builder{catalog: cat, keys: map[string]bool{}, categories: map[string]int{}}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		switch doc.Content[i].Value {
		case "categories":
			b.categoriesNode(doc.Content[i+1])
		case "sources":
			b.sourcesNode(doc.Content[i+1])
		}
	}

	return cat, b.errs, nil
}

type builder struct {
	catalog    *Catalog
	keys       map[string]bool
	categories map[string]int
	errs       []error
}

func (b *builder) categoriesNode(n *yaml.Node) {
	if n.Kind != yaml.MappingNode {
		b.errs = append(b.errs, &ConfigError{Entry: "categories", Err: errors.New("must be an object")})
		return
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value

		var entry categoryEntry
		if err := n.Content[i+1].Decode(&entry); err != nil {
			b.errs = append(b.errs, &ConfigError{Entry: name, Err: err})
			continue
		}

		b.addCategory(Category{Name: name, Description: entry.Description, URLs: entry.URLs})
		for _, u := range entry.URLs {
			src, err := FromCategoryURL(name, u)
			if err != nil {
				b.errs = append(b.errs, err)
				continue
			}
			b.addSource(src)
		}
	}
}

func (b *builder) sourcesNode(n *yaml.Node) {
	if n.Kind != yaml.MappingNode {
		b.errs = append(b.errs, &ConfigError{Entry: "sources", Err: errors.New("must be an object")})
		return
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value

		var entry sourceEntry
		if err := n.Content[i+1].Decode(&entry); err != nil {
			b.errs = append(b.errs, &ConfigError{Entry: key, Err: err})
			continue
		}

		src, err := entry.toSource(key)
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}

		b.addCategory(Category{Name: src.Category})
		b.addSource(src)
	}
}

func (b *builder) addCategory(c Category) {
	if idx, ok := b.categories[c.Name]; ok {
		existing := &b.catalog.Categories[idx]
		if existing.Description == "" {
			existing.Description = c.Description
		}
		existing.URLs = append(existing.URLs, c.URLs...)
		return
	}
	b.categories[c.Name] = len(b.catalog.Categories)
	b.catalog.Categories = append(b.catalog.Categories, c)
}

// addSource registers src, suffixing its key when the same host appears
// more than once.
func (b *builder) addSource(src SourceConfig) {
	key := src.Key
	for n := 2; b.keys[key]; n++ {
		key = src.Key + "_" + strconv.Itoa(n)
	}
	b.keys[key] = true
	src.Key = key
	b.catalog.Sources = append(b.catalog.Sources, src)
}

func (e sourceEntry) toSource(key string) (SourceConfig, error) {
	src := SourceConfig{
		Key:       key,
		Name:      e.Name,
		Category:  e.Category,
		Selectors: e.Selectors,
	}
	if src.Name == "" {
		src.Name = key
	}

	for i, se := range e.Strategies {
		kind, err := ParseKind(se.Type)
		if err != nil {
			return SourceConfig{}, &ConfigError{Entry: key, Err: fmt.Errorf("strategy %d: %w", i+1, err)}
		}

		s := Strategy{Kind: kind, URL: se.url(kind)}
		if se.LinkRegex != "" {
			re, err := regexp.Compile(se.LinkRegex)
			if err != nil {
				return SourceConfig{}, &ConfigError{Entry: key, Err: fmt.Errorf("strategy %d: invalid link_regex: %w", i+1, err)}
			}
			s.LinkPattern = re
		}
		src.Strategies = append(src.Strategies, s)
	}

	if err := src.Validate(); err != nil {
		return SourceConfig{}, err
	}
	return src, nil
}

func (e strategyEntry) url(kind Kind) string {
	if e.URL != "" {
		return e.URL
	}
	switch kind {
	case KindFeed:
		return e.RSSURL
	case KindAutoDiscover:
		return e.SiteURL
	case KindScrape:
		return e.ListingURL
	}
	return ""
}

// Merge returns a catalog holding c followed by other. A category present
// in both keeps c's position and gains other's sources; source keys that
// collide are suffixed the same way as within one file.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	b := &builder{catalog: &Catalog{}, keys: map[string]bool{}, categories: map[string]int{}}
	for _, cats := range [][]Category{c.Categories, other.Categories} {
		for _, entry := range cats {
			entry.URLs = slices.Clone(entry.URLs)
			b.addCategory(entry)
		}
	}
	for _, srcs := range [][]SourceConfig{c.Sources, other.Sources} {
		for _, src := range srcs {
			b.addSource(src)
		}
	}
	return b.catalog
}

// Names returns the category names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, cat.Name)
	}
	return out
}

// Category returns the named category.
func (c *Catalog) Category(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// SourcesFor returns the sources of one category in declaration order.
func (c *Catalog) SourcesFor(name string) []SourceConfig {
	return InCategories(c.Sources, []string{name})
}

// Select returns the sources for the named categories, category by
// category in the order given. No names selects every source. An unknown
// name yields a *ConfigError wrapping ErrCategoryNotFound and contributes
// nothing.
func (c *Catalog) Select(names []string) ([]SourceConfig, []error) {
	if len(names) == 0 {
		return append([]SourceConfig(nil), c.Sources...), nil
	}

	var (
		out  []SourceConfig
		errs []error
		seen = map[string]bool{}
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if _, ok := c.Category(name); !ok {
			errs = append(errs, &ConfigError{Entry: name, Err: ErrCategoryNotFound})
			continue
		}
		out = append(out, c.SourcesFor(name)...)
	}
	return out, errs
}
