package complexity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeShortGreetingUsesDefaults(t *testing.T) {
	a := NewAnalyzer("fast")

	got := a.Analyze("hi")

	// 0.2*0.2 + 0.2*0.4 + 0.1*0.2 + 0.2*0.2
	assert.Equal(t, 0.18, got.Score)
	assert.Equal(t, "fast", got.Tier)
	assert.Len(t, got.Factors, 4)
	assert.Contains(t, got.Factors[1], "default")
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewAnalyzer("fast")

	for _, in := range []string{"", "   ", "\n\t"} {
		got := a.Analyze(in)
		assert.Equal(t, MinScore, got.Score)
		assert.Equal(t, "fast", got.Tier)
		assert.Equal(t, []string{"invalid input: empty message"}, got.Factors)
	}
}

func TestAnalyzeWeightedDimensions(t *testing.T) {
	a := NewAnalyzer("fast")

	tests := []struct {
		name    string
		message string
		want    float64
	}{
		{
			name:    "greeting lowers task type",
			message: "hello there",
			want:    0.2*0.2 + 0.1*0.4 + 0.1*0.2 + 0.2*0.2,
		},
		{
			name:    "presentation with structure and expert terms",
			message: "Create a presentation about kubernetes with a bullet outline",
			want:    0.2*0.2 + 0.8*0.4 + 0.8*0.2 + 0.8*0.2,
		},
		{
			name:    "comprehensive creative request",
			message: "Write a detailed story about a database",
			want:    0.2*0.2 + 0.9*0.4 + 0.5*0.2 + 0.9*0.2,
		},
		{
			name:    "explanation of an api",
			message: "Explain how an API works",
			want:    0.2*0.2 + 0.4*0.4 + 0.5*0.2 + 0.2*0.2,
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				got := a.Analyze(tt.message)
				assert.InDelta(t, tt.want, got.Score, 1e-9)
			},
		)
	}
}

func TestAnalyzeWordCountBuckets(t *testing.T) {
	tests := []struct {
		words int
		want  float64
	}{
		{1, 0.2},
		{50, 0.2},
		{51, 0.4},
		{200, 0.4},
		{201, 0.6},
		{500, 0.6},
		{501, 0.8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wordCountScore(tt.words), "words=%d", tt.words)
	}
}

func TestAnalyzeScoreAlwaysInRange(t *testing.T) {
	a := NewAnalyzer("fast")
	inputs := []string{
		"",
		"hi",
		strings.Repeat("comprehensive detailed machine learning presentation poem table ", 200),
		strings.Repeat("word ", 600),
		"??? !!! ...",
	}
	for _, in := range inputs {
		got := a.Analyze(in)
		assert.GreaterOrEqual(t, got.Score, MinScore)
		assert.LessOrEqual(t, got.Score, MaxScore)
	}
}

func TestAnalyzeAlwaysPicksTopTier(t *testing.T) {
	a := NewAnalyzer("fast")
	got := a.Analyze("Create a comprehensive presentation on distributed system design as a creative story")
	assert.Greater(t, got.Score, 0.7)
	assert.Equal(t, "fast", got.Tier)
}

func TestKeywordsMatchWholeWordsOnly(t *testing.T) {
	a := NewAnalyzer("fast")
	// "application" must not trigger "app", "slideshows" must not trigger "slide".
	got := a.Analyze("application slideshows")
	assert.Equal(t, 0.18, got.Score)
}
