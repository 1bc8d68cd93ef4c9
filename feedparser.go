package newsharvest

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/newsharvest/newsfeed"
	"github.com/pevans/newsharvest/scraper"
	"github.com/pevans/newsharvest/sources"
)

// Trailers that WordPress and the Guardian append to every summary.
var (
	appearedFirstRe = regexp.MustCompile(`(?i)\s*The post\b.*?\bappeared first on\b.*?\.$`)
	continueRe      = regexp.MustCompile(`(?i)\s*Continue reading.*$`)
)

var stripTags = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	// "<p>one</p><p>two</p>" should read "one two"
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// FeedItemToArticle converts a feed entry to an Article without content.
// Entries without a link, or whose cleaned title is shorter than
// cfg.MinTitleLen, are rejected.
//
// gofeed normalizes RSS <description> and Atom <summary> to
// item.Description, and RSS <content:encoded> and Atom <content> to
// item.Content; the summary is preferred.
func FeedItemToArticle(item *gofeed.Item, src sources.SourceConfig, cfg *Config) (newsfeed.Article, bool) {
	if item == nil {
		return newsfeed.Article{}, false
	}

	title := plainText(item.Title)
	link := strings.TrimSpace(item.Link)
	if link == "" || len([]rune(title)) < cfg.MinTitleLen {
		return newsfeed.Article{}, false
	}

	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	return newsfeed.Article{
		Title:         title,
		Description:   scraper.Clamp(cleanSummary(summary), cfg.DescriptionCap),
		URL:           link,
		Source:        src.Name,
		Category:      src.Category,
		PublishedDate: feedDate(item),
		Author:        feedAuthor(item),
	}, true
}

// plainText strips markup and entities and collapses whitespace.
func plainText(s string) string {
	return scraper.CleanText(html.UnescapeString(stripTags.Sanitize(s)))
}

func cleanSummary(s string) string {
	s = plainText(s)
	s = appearedFirstRe.ReplaceAllString(s, "")
	s = continueRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// feedDate prefers <pubDate>/<published> over <updated>.
func feedDate(item *gofeed.Item) *string {
	var t *time.Time
	switch {
	case item.PublishedParsed != nil:
		t = item.PublishedParsed
	case item.UpdatedParsed != nil:
		t = item.UpdatedParsed
	default:
		return nil
	}
	s := t.Format(isoLayout)
	return &s
}

const isoLayout = "2006-01-02T15:04:05-07:00"

// feedAuthor takes the first non-empty name from <author>, the Atom author
// list, then <dc:creator>.
func feedAuthor(item *gofeed.Item) *string {
	var names []string
	if item.Author != nil {
		names = append(names, item.Author.Name)
	}
	for _, a := range item.Authors {
		if a != nil {
			names = append(names, a.Name)
		}
	}
	if item.DublinCoreExt != nil {
		names = append(names, item.DublinCoreExt.Creator...)
	}

	for _, n := range names {
		if n = plainText(n); n != "" {
			return &n
		}
	}
	return nil
}
