package models

// TermCount pairs a hashtag or keyword with its number of occurrences
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// AnalysisResult is the lexical summary of a text. It is recomputed wholesale
// for every input and never mutated afterwards.
type AnalysisResult struct {
	Hashtags    []TermCount `json:"hashtags"`
	TopWords    []TermCount `json:"topWords"`
	Suggestions []string    `json:"suggestions"`
}

// EmptyAnalysis returns a result with all three fields empty (non-nil)
func EmptyAnalysis() AnalysisResult {
	return AnalysisResult{
		Hashtags:    []TermCount{},
		TopWords:    []TermCount{},
		Suggestions: []string{},
	}
}
