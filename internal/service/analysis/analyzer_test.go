package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/content-analyzer/internal/models"
)

func TestAnalyzeEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t "} {
		got := Analyze(in)
		assert.Equal(t, models.EmptyAnalysis(), got)
		assert.NotNil(t, got.Hashtags)
		assert.NotNil(t, got.TopWords)
		assert.NotNil(t, got.Suggestions)
	}
}

func TestAnalyzeHashtagsAreCaseNormalized(t *testing.T) {
	got := Analyze("#AI is great. #ai rocks #Ai")

	assert.Equal(t, []models.TermCount{{Term: "#ai", Count: 3}}, got.Hashtags)
	assert.Equal(t, []models.TermCount{
		{Term: "great", Count: 1},
		{Term: "rocks", Count: 1},
	}, got.TopWords)
	assert.Equal(t, []string{"#great", "#rocks"}, got.Suggestions)
}

func TestAnalyzeRanksByCount(t *testing.T) {
	got := Analyze("alpha alpha beta beta beta gamma")

	assert.Equal(t, []models.TermCount{
		{Term: "beta", Count: 3},
		{Term: "alpha", Count: 2},
		{Term: "gamma", Count: 1},
	}, got.TopWords)
	assert.Equal(t, []string{"#beta", "#alpha", "#gamma"}, got.Suggestions)
	assert.Empty(t, got.Hashtags)
}

func TestAnalyzeStableTies(t *testing.T) {
	got := Analyze("zeta #two yankee #one xray #two #one #three")

	assert.Equal(t, []models.TermCount{
		{Term: "#two", Count: 2},
		{Term: "#one", Count: 2},
		{Term: "#three", Count: 1},
	}, got.Hashtags)

	// all once, so first-seen order wins
	assert.Equal(t, "zeta", got.TopWords[0].Term)
	assert.Equal(t, "yankee", got.TopWords[1].Term)
	assert.Equal(t, "xray", got.TopWords[2].Term)
}

func TestAnalyzeKeywordFilters(t *testing.T) {
	got := Analyze("The cat and the dog are in for a walk on the beach; THEM, them!")

	terms := make([]string, 0, len(got.TopWords))
	for _, tc := range got.TopWords {
		terms = append(terms, tc.Term)
	}
	// short tokens and stop words are gone; punctuation splits words
	assert.Equal(t, []string{"them", "walk", "beach"}, terms)
	assert.Equal(t, 2, got.TopWords[0].Count)
}

func TestAnalyzeNumericWordsAndHashtagOverlap(t *testing.T) {
	got := Analyze("Budget 2024 #2024 budget")

	assert.Equal(t, []models.TermCount{{Term: "#2024", Count: 1}}, got.Hashtags)
	// the hashtag body is also counted as a plain word
	assert.Equal(t, []models.TermCount{
		{Term: "budget", Count: 2},
		{Term: "2024", Count: 2},
	}, got.TopWords)
}

func TestAnalyzeNonASCIISeparates(t *testing.T) {
	// accented letters split words into fragments too short to keep
	got := Analyze("café naïve résumé")
	assert.Empty(t, got.TopWords)
	assert.Empty(t, got.Suggestions)

	got = Analyze("überweisung")
	assert.Equal(t, []models.TermCount{{Term: "berweisung", Count: 1}}, got.TopWords)
}

func TestAnalyzeCapsTopWords(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		for j := 0; j <= i; j++ {
			fmt.Fprintf(&b, "word%02d ", i)
		}
	}

	got := Analyze(b.String())
	require.Len(t, got.TopWords, TopWordLimit)
	assert.Equal(t, models.TermCount{Term: "word14", Count: 15}, got.TopWords[0])
	assert.Equal(t, models.TermCount{Term: "word05", Count: 6}, got.TopWords[9])

	require.Len(t, got.Suggestions, len(got.TopWords))
	for i, tc := range got.TopWords {
		assert.Equal(t, "#"+tc.Term, got.Suggestions[i])
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	text := "Shipping #Go code with #go tooling: tooling matters"
	assert.Equal(t, Analyze(text), Analyze(text))
}

func TestAnalyzerOptions(t *testing.T) {
	a := NewAnalyzer(
		WithStopWords("tooling"),
		WithMinKeywordLength(1),
		WithTopWordLimit(2),
	)

	got := a.Analyze("go go tooling is fun")
	assert.Equal(t, []models.TermCount{
		{Term: "go", Count: 2},
		{Term: "is", Count: 1},
	}, got.TopWords)
	assert.Equal(t, []string{"#go", "#is"}, got.Suggestions)
}
