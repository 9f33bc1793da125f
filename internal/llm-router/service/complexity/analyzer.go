// Package complexity scores a request on four weighted dimensions so the
// sequencer can decide whether premium backends should join the plan.
package complexity

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"llm-router/internal/llm-router/models"
)

const (
	MinScore = 0.1
	MaxScore = 1.0

	wordCountWeight = 0.2
	taskTypeWeight  = 0.4
	technicalWeight = 0.2
	outputWeight    = 0.2

	defaultTaskType  = 0.2
	defaultTechnical = 0.1
	defaultOutput    = 0.2
)

type category struct {
	name     string
	score    float64
	patterns []*regexp.Regexp
}

func newCategory(name string, score float64, keywords ...string) category {
	c := category{name: name, score: score}
	for _, kw := range keywords {
		c.patterns = append(c.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return c
}

func (c category) matches(text string) bool {
	for _, p := range c.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Ordered by increasing complexity.
var taskTypes = []category{
	newCategory("greeting", 0.1, "hello", "good morning", "good afternoon", "good evening", "greetings", "howdy"),
	newCategory("simple question", 0.2, "what is", "who is", "when is", "where is", "how many", "define"),
	newCategory("explanation", 0.4, "explain", "describe", "why does", "how does", "how do", "what are"),
	newCategory("analysis", 0.6, "analyze", "analyse", "compare", "evaluate", "assess", "pros and cons"),
	newCategory("creation", 0.7, "create", "write", "generate", "build", "design", "draft"),
	newCategory("presentation request", 0.8, "presentation", "slide", "slides", "slideshow", "deck", "powerpoint", "pptx"),
	newCategory("comprehensive request", 0.9, "comprehensive", "detailed", "in-depth", "thorough", "complete guide", "extensive"),
}

var technicalTerms = []category{
	newCategory("basic", 0.2, "computer", "software", "website", "app", "internet", "email", "spreadsheet"),
	newCategory("intermediate", 0.5, "api", "database", "algorithm", "framework", "server", "python", "javascript", "sql", "cloud"),
	newCategory("expert", 0.8, "kubernetes", "microservices", "distributed system", "machine learning", "neural network", "cryptography", "compiler", "concurrency"),
}

var outputRequirements = []category{
	newCategory("short", 0.2, "brief", "short", "quick", "summary", "summarize", "one sentence", "tl;dr"),
	newCategory("medium", 0.4, "paragraph", "a few", "overview"),
	newCategory("long", 0.6, "essay", "long", "report", "article", "full"),
	newCategory("structured", 0.8, "table", "list", "outline", "bullet", "bullets", "json", "step by step", "agenda"),
	newCategory("creative", 0.9, "story", "poem", "creative", "imaginative", "brainstorm", "slogan"),
}

// Analyzer is stateless and safe for concurrent use.
type Analyzer struct {
	topTier string
}

// NewAnalyzer returns an analyzer that assigns every request to topTier.
func NewAnalyzer(topTier string) *Analyzer {
	return &Analyzer{topTier: topTier}
}

func (a *Analyzer) Analyze(message string) models.ComplexityAnalysis {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return models.ComplexityAnalysis{
			Score:   MinScore,
			Tier:    a.topTier,
			Factors: []string{"invalid input: empty message"},
		}
	}

	words := len(strings.Fields(text))
	wordScore := wordCountScore(words)
	factors := []string{fmt.Sprintf("word count %d (%.1f)", words, wordScore)}

	taskScore, taskName := highest(taskTypes, text, defaultTaskType)
	factors = append(factors, fmt.Sprintf("task type: %s (%.1f)", taskName, taskScore))

	techScore, techName := highest(technicalTerms, text, defaultTechnical)
	factors = append(factors, fmt.Sprintf("technical level: %s (%.1f)", techName, techScore))

	outScore, outName := highest(outputRequirements, text, defaultOutput)
	factors = append(factors, fmt.Sprintf("output requirement: %s (%.1f)", outName, outScore))

	score := wordScore*wordCountWeight +
		taskScore*taskTypeWeight +
		techScore*technicalWeight +
		outScore*outputWeight

	return models.ComplexityAnalysis{
		Score:   clamp(score),
		Tier:    a.topTier,
		Factors: factors,
	}
}

func wordCountScore(words int) float64 {
	switch {
	case words <= 50:
		return 0.2
	case words <= 200:
		return 0.4
	case words <= 500:
		return 0.6
	default:
		return 0.8
	}
}

// highest returns the score of the most complex matching category, or def
// when nothing matches.
func highest(categories []category, text string, def float64) (float64, string) {
	score, name, matched := def, "default", false
	for _, c := range categories {
		if matched && c.score <= score {
			continue
		}
		if c.matches(text) {
			score, name, matched = c.score, c.name, true
		}
	}
	return score, name
}

func clamp(score float64) float64 {
	score = math.Round(score*1e4) / 1e4
	return math.Max(MinScore, math.Min(MaxScore, score))
}
