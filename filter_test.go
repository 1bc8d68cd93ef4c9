package newsharvest

import (
	"testing"

	"github.com/pevans/newsharvest/newsfeed"
	"github.com/stretchr/testify/assert"
)

// TestKeywordFilter_Match verifies substring matching on padded text
func TestKeywordFilter_Match(t *testing.T) {
	f := NewKeywordFilter(nil, false)

	tests := []struct {
		title       string
		description string
		expected    bool
	}{
		{"OpenAI ships a new model", "", true},
		{"New GPU card released", "", false},
		{"Why AI matters", "", true},
		{"AI", "", true},
		{"Said the villain", "", false},
		{"Quarterly earnings", "Driven by machine learning demand", true},
		{"ChatGPT-like assistants everywhere", "", true},
		{"Factory automation grows", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Match(tt.title, tt.description))
		})
	}
}

// TestKeywordFilter_WordBoundary verifies whole-word matching
func TestKeywordFilter_WordBoundary(t *testing.T) {
	loose := NewKeywordFilter([]string{"gpt"}, false)
	strict := NewKeywordFilter([]string{"gpt"}, true)

	assert.True(t, loose.Match("ChatGPT-like assistants", ""))
	assert.False(t, strict.Match("ChatGPT-like assistants", ""))
	assert.True(t, strict.Match("GPT models explained", ""))

	padded := NewKeywordFilter([]string{" ai "}, true)
	assert.True(t, padded.Match("AI", ""), "padding is trimmed in word boundary mode")
	assert.False(t, padded.Match("Said the villain", ""))
}

// TestKeywordFilter_Apply verifies order is kept
func TestKeywordFilter_Apply(t *testing.T) {
	f := NewKeywordFilter(nil, false)
	in := []newsfeed.Article{
		{Title: "Robotics startup raises money", URL: "a"},
		{Title: "New GPU card released", URL: "b"},
		{Title: "Gemini update lands", URL: "c"},
	}

	out := f.Apply(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].URL)
	assert.Equal(t, "c", out[1].URL)
}

// TestAppliesTo verifies only general technology categories are filtered
func TestAppliesTo(t *testing.T) {
	assert.True(t, AppliesTo("Technology"))
	assert.True(t, AppliesTo("technology/hardware"))
	assert.False(t, AppliesTo("AI/Technology"))
	assert.False(t, AppliesTo("AI/Research"))
	assert.False(t, AppliesTo("Business"))
}
