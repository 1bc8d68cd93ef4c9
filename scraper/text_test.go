package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "tags stripped", input: "<b>Bold</b> and <i>italic</i>", expected: "Bold and italic"},
		{name: "entities", input: "Tom &amp; Jerry &lt;3 &quot;cheese&quot;", expected: `Tom & Jerry <3 "cheese"`},
		{name: "numeric entities", input: "It&#8217;s 9&#8211;5 &#8212; daily", expected: "It's 9–5 — daily"},
		{name: "apostrophe and nbsp", input: "Don&#39;t&nbsp;stop", expected: "Don't stop"},
		{name: "whitespace collapsed", input: "  lots \n\n of\t\tspace  ", expected: "lots of space"},
		{name: "no cascade", input: "&amp;lt;", expected: "&lt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly10!", Truncate("exactly10!", 10))
	assert.Equal(t, "abcde...", Truncate("abcdefghij", 5))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
	// Multi-byte runes are never split.
	assert.Equal(t, "日本...", Truncate("日本語テキスト", 2))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, "trimmed", Clamp("  trimmed  ", 300))
	assert.Equal(t, "hello...", Clamp("hello world", 6))
	assert.Equal(t, "hello w...", Clamp("hello world", 7))
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "RFC3339 offset", input: "2024-03-05T10:20:30+02:00", expected: "2024-03-05T10:20:30+02:00"},
		{name: "RFC3339 zulu", input: "2024-03-05T10:20:30Z", expected: "2024-03-05T10:20:30+00:00"},
		{name: "naive", input: "2024-03-05T10:20:30", expected: "2024-03-05T10:20:30"},
		{name: "zone name", input: "2024-03-05T10:20:30UTC", expected: "2024-03-05T10:20:30+00:00"},
		{name: "RFC1123Z", input: "Tue, 05 Mar 2024 10:20:30 +0100", expected: "2024-03-05T10:20:30+01:00"},
		{name: "RFC1123", input: "Tue, 05 Mar 2024 10:20:30 GMT", expected: "2024-03-05T10:20:30+00:00"},
		{name: "date only", input: "2024-03-05", expected: "2024-03-05T00:00:00"},
		{name: "fraction dropped", input: "2024-03-05T10:20:30.123Z", expected: "2024-03-05T10:20:30+00:00"},
		{name: "iso prefix with suffix", input: "2024-03-05T10:20:30Z[UTC]", expected: "2024-03-05T10:20:30+00:00[UTC]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDate(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, *got)
		})
	}
}

func TestNormalizeDate_Absent(t *testing.T) {
	assert.Nil(t, NormalizeDate(""))
	assert.Nil(t, NormalizeDate("   "))
	assert.Nil(t, NormalizeDate("sometime last week"))

	// Abbreviations Go cannot resolve would otherwise come back as +00:00.
	assert.Nil(t, NormalizeDate("Tue, 05 Mar 2024 10:20:30 XST"))
	assert.Nil(t, NormalizeDate("2024-03-05T10:20:30QST"))
	assert.Nil(t, NormalizeDate("2024-03-05T10:20:30 QST"))
	assert.Nil(t, NormalizeDate("March 5, 2024 10:20:30 XST"))
}

func TestNormalizeDate_LooseFormats(t *testing.T) {
	got := NormalizeDate("March 5, 2024")
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-05T00:00:00", *got, "no zone in, no offset out")

	got = NormalizeDate("2024-03-05 10:20:30")
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-05T10:20:30", *got)

	got = NormalizeDate("2024-03-05 10:20:30+02:00")
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-05T10:20:30+02:00", *got)
}
