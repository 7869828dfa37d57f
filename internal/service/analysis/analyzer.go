package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/feichai0017/content-analyzer/internal/models"
)

const (
	// MinKeywordLength is exclusive: keywords must be longer than this
	MinKeywordLength = 3

	// TopWordLimit caps the ranked keyword list
	TopWordLimit = 10
)

// DefaultStopWords are dropped from keyword counts
var DefaultStopWords = []string{"the", "is", "are", "of", "and", "to", "a", "in", "for", "on"}

var (
	hashtagPattern = regexp.MustCompile(`#[a-z0-9_]+`)
	nonWordPattern = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Analyzer derives hashtags, keywords and hashtag suggestions from text.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	stopWords        map[string]struct{}
	minKeywordLength int
	topWordLimit     int
}

type Option func(*Analyzer)

func WithStopWords(words ...string) Option {
	return func(a *Analyzer) {
		a.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			a.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

func WithMinKeywordLength(n int) Option {
	return func(a *Analyzer) {
		a.minKeywordLength = n
	}
}

func WithTopWordLimit(n int) Option {
	return func(a *Analyzer) {
		a.topWordLimit = n
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		minKeywordLength: MinKeywordLength,
		topWordLimit:     TopWordLimit,
	}
	WithStopWords(DefaultStopWords...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = NewAnalyzer()

// Analyze runs the default analyzer
func Analyze(text string) models.AnalysisResult {
	return defaultAnalyzer.Analyze(text)
}

func (a *Analyzer) Analyze(raw string) models.AnalysisResult {
	if strings.TrimSpace(raw) == "" {
		return models.EmptyAnalysis()
	}
	text := strings.ToLower(raw)

	hashtags := countOrdered(hashtagPattern.FindAllString(text, -1))

	var words []string
	for _, w := range strings.Fields(nonWordPattern.ReplaceAllString(text, " ")) {
		if len(w) <= a.minKeywordLength {
			continue
		}
		if _, stop := a.stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	topWords := countOrdered(words)
	if a.topWordLimit >= 0 && len(topWords) > a.topWordLimit {
		topWords = topWords[:a.topWordLimit]
	}

	suggestions := make([]string, len(topWords))
	for i, tc := range topWords {
		suggestions[i] = "#" + tc.Term
	}

	return models.AnalysisResult{
		Hashtags:    hashtags,
		TopWords:    topWords,
		Suggestions: suggestions,
	}
}

// countOrdered counts terms and ranks them by count descending. Equal counts
// keep the order in which the term was first seen.
func countOrdered(terms []string) []models.TermCount {
	counts := make([]models.TermCount, 0)
	index := make(map[string]int)
	for _, t := range terms {
		if i, ok := index[t]; ok {
			counts[i].Count++
			continue
		}
		index[t] = len(counts)
		counts = append(counts, models.TermCount{Term: t, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
