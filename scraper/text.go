package scraper

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
)

// Ellipsis marks text cut short by Truncate or Clamp.
const Ellipsis = "..."

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#8217;", "'",
		"&#8211;", "–",
		"&#8212;", "—",
		"&nbsp;", " ",
	)
)

// CleanText strips any leftover tags, decodes a small fixed set of entities
// and collapses whitespace runs to a single space.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate caps s at n runes and appends Ellipsis when anything was cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + Ellipsis
}

// Clamp is Truncate for short fields: s is trimmed first and the cut
// point is trimmed again so the marker never follows a space.
func Clamp(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimRightFunc(string([]rune(s)[:n]), isSpace) + Ellipsis
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// dateLayouts are tried in order by NormalizeDate.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05MST",
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

var isoPrefixPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})(Z|[+\-]\d{2}:\d{2})?`)

// zoneSuffix matches a bare zone abbreviation left after an ISO prefix.
var zoneSuffix = regexp.MustCompile(`^\s*([A-Za-z]{1,5})$`)

// shiftedZone is a non-UTC location used to tell naive dateparse results
// from zoned ones.
var shiftedZone = time.FixedZone("", 90*60)

const (
	isoLayout   = "2006-01-02T15:04:05-07:00"
	naiveLayout = "2006-01-02T15:04:05"
)

// NormalizeDate turns a raw date string into ISO-8601. Naive timestamps
// stay naive. It returns nil when nothing recognisable is found; a date is
// never made up, including its offset.
func NormalizeDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		var out string
		switch layout {
		case "2006-01-02T15:04:05", "2006-01-02":
			out = t.Format(naiveLayout)
		default:
			if unknownZone(t) {
				continue
			}
			out = t.Format(isoLayout)
		}
		return &out
	}

	if m := isoPrefixPattern.FindString(raw); m != "" {
		if z := zoneSuffix.FindStringSubmatch(raw[len(m):]); z != nil {
			switch strings.ToUpper(z[1]) {
			case "UTC", "GMT", "Z":
			default:
				return nil
			}
		}
		out := strings.ReplaceAll(raw, "Z", "+00:00")
		return &out
	}

	if t, err := dateparse.ParseStrict(raw); err == nil {
		if unknownZone(t) {
			return nil
		}
		out := t.Format(isoLayout)
		if shifted, err := dateparse.ParseIn(raw, shiftedZone); err == nil && !shifted.Equal(t) {
			out = t.Format(naiveLayout)
		}
		return &out
	}

	return nil
}

// unknownZone reports whether t carries a zone abbreviation Go could not
// resolve. time.Parse gives those a zero offset, which would be a guess.
func unknownZone(t time.Time) bool {
	name, offset := t.Zone()
	if offset != 0 {
		return false
	}
	switch name {
	case "", "UTC", "GMT", "Z":
		return false
	}
	return true
}
