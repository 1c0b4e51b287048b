// Package nlp defines the linguistic feature-extraction capability used by
// the stylometric analyzer, plus a deterministic heuristic extractor so the
// engine can run without an external NLP service.
package nlp

import (
	"context"
	"strings"
	"unicode"
)

// FeatureVector holds the fixed set of stylometric features extracted from
// one document. The order of Values is part of the contract: all vectors
// compared against each other must come from the same extractor.
type FeatureVector struct {
	AvgWordLength        float64 `json:"avg_word_length"`
	AvgSentenceLength    float64 `json:"avg_sentence_length"`
	LexicalDiversity     float64 `json:"lexical_diversity"`
	PunctuationFrequency float64 `json:"punct_frequency"`
	StopwordFrequency    float64 `json:"stopword_frequency"`
	NounRatio            float64 `json:"noun_ratio"`
	VerbRatio            float64 `json:"verb_ratio"`
	AdjRatio             float64 `json:"adj_ratio"`
}

// Values returns the feature vector as a flat slice for similarity math.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.AvgWordLength,
		v.AvgSentenceLength,
		v.LexicalDiversity,
		v.PunctuationFrequency,
		v.StopwordFrequency,
		v.NounRatio,
		v.VerbRatio,
		v.AdjRatio,
	}
}

// FeatureExtractor is the external NLP capability: it turns raw document
// text into a FeatureVector. Implementations may call out to a remote
// service and must honor context cancellation.
type FeatureExtractor interface {
	Extract(ctx context.Context, text string) (FeatureVector, error)
}

// HeuristicExtractor computes surface-level stylometric features locally,
// without a language model. Part-of-speech ratios stay 0; they are only
// populated when a tagging NLP service is configured instead.
type HeuristicExtractor struct {
	stopwords map[string]struct{}
}

// NewHeuristicExtractor creates a HeuristicExtractor with a built-in
// English stopword list.
func NewHeuristicExtractor() *HeuristicExtractor {
	words := strings.Fields(
		"a an and are as at be by for from has he in is it its of on that the " +
			"to was were will with this these those i you we they not or but if",
	)
	stopwords := make(map[string]struct{}, len(words))
	for _, w := range words {
		stopwords[w] = struct{}{}
	}
	return &HeuristicExtractor{stopwords: stopwords}
}

// Extract computes the feature vector for text. Empty or whitespace-only
// text yields the zero vector.
func (e *HeuristicExtractor) Extract(_ context.Context, text string) (FeatureVector, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return FeatureVector{}, nil
	}

	var totalWordLen int
	unique := make(map[string]struct{}, len(words))
	stopwordCount := 0
	for _, w := range words {
		trimmed := strings.TrimFunc(w, unicode.IsPunct)
		lower := strings.ToLower(trimmed)
		totalWordLen += len([]rune(trimmed))
		if lower != "" {
			unique[lower] = struct{}{}
			if _, ok := e.stopwords[lower]; ok {
				stopwordCount++
			}
		}
	}

	sentences := countSentences(text)
	if sentences == 0 {
		sentences = 1
	}

	punct := 0
	runes := []rune(text)
	for _, r := range runes {
		if strings.ContainsRune(".,!?;:", r) {
			punct++
		}
	}

	wordCount := float64(len(words))
	return FeatureVector{
		AvgWordLength:        float64(totalWordLen) / wordCount,
		AvgSentenceLength:    wordCount / float64(sentences),
		LexicalDiversity:     float64(len(unique)) / wordCount,
		PunctuationFrequency: float64(punct) / float64(len(runes)),
		StopwordFrequency:    float64(stopwordCount) / wordCount,
	}, nil
}

func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	return count
}
