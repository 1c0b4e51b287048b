package stylometry

import (
	"math"
	"reflect"
	"testing"

	"github.com/bitshield/procurement/backend/pkg/nlp"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

func TestAnalyzeTooFewDocuments(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerParams{})

	result := analyzer.Analyze([]StyleVector{
		{BidderID: "b1", DocID: "d1", Features: nlp.FeatureVector{AvgWordLength: 4.2}},
	})

	if len(result.Pairs) != 0 || len(result.HighRiskPairs) != 0 || result.Comparisons != 0 {
		t.Errorf("expected empty result for a single document, got %+v", result)
	}
}

func TestAnalyzeSkipsSameBidderPairs(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerParams{})

	features := nlp.FeatureVector{AvgWordLength: 4.5, AvgSentenceLength: 12, LexicalDiversity: 0.6}
	result := analyzer.Analyze([]StyleVector{
		{BidderID: "b1", DocID: "d1", Features: features},
		{BidderID: "b1", DocID: "d2", Features: features},
	})

	if result.Comparisons != 0 {
		t.Errorf("expected no comparisons for same-bidder documents, got %d", result.Comparisons)
	}
	if len(result.Pairs) != 0 {
		t.Errorf("expected no pairs, got %d", len(result.Pairs))
	}
}

func TestAnalyzeIdenticalStyleIsHighRisk(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerParams{})

	features := nlp.FeatureVector{
		AvgWordLength:        4.8,
		AvgSentenceLength:    14.2,
		LexicalDiversity:     0.55,
		PunctuationFrequency: 0.11,
		StopwordFrequency:    0.38,
	}
	result := analyzer.Analyze([]StyleVector{
		{BidderID: "b1", DocID: "d1", Features: features},
		{BidderID: "b2", DocID: "d2", Features: features},
	})

	if result.Comparisons != 1 {
		t.Fatalf("expected 1 comparison, got %d", result.Comparisons)
	}
	if len(result.HighRiskPairs) != 1 {
		t.Fatalf("expected 1 high-risk pair, got %d", len(result.HighRiskPairs))
	}
	pair := result.HighRiskPairs[0]
	if math.Abs(pair.Similarity-1.0) > 1e-9 {
		t.Errorf("expected similarity 1.0 for identical features, got %f", pair.Similarity)
	}
	if pair.Band != tender.SeverityHigh {
		t.Errorf("expected high band, got %s", pair.Band)
	}
	if pair.BidderA != "b1" || pair.BidderB != "b2" {
		t.Errorf("unexpected pair ordering: %+v", pair)
	}
}

func TestAnalyzeBandThresholds(t *testing.T) {
	tests := []struct {
		name     string
		high     float64
		medium   float64
		features nlp.FeatureVector
		want     tender.Severity
	}{
		{
			name:     "orthogonal vectors are low",
			features: nlp.FeatureVector{AvgSentenceLength: 9},
			want:     tender.SeverityLow,
		},
		{
			name:     "aligned vectors are high",
			features: nlp.FeatureVector{AvgWordLength: 8.4, LexicalDiversity: 1.2},
			want:     tender.SeverityHigh,
		},
	}

	base := nlp.FeatureVector{AvgWordLength: 4.2, LexicalDiversity: 0.6}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(AnalyzerParams{HighThreshold: tt.high, MediumThreshold: tt.medium})
			result := analyzer.Analyze([]StyleVector{
				{BidderID: "b1", DocID: "d1", Features: base},
				{BidderID: "b2", DocID: "d2", Features: tt.features},
			})
			if len(result.Pairs) != 1 {
				t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
			}
			if result.Pairs[0].Band != tt.want {
				t.Errorf("expected band %s, got %s (similarity %f)",
					tt.want, result.Pairs[0].Band, result.Pairs[0].Similarity)
			}
		})
	}
}

func TestAnalyzeMediumBand(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerParams{})

	// cos = 0.8 between (1,0) and (0.8, 0.6) on the first two features.
	result := analyzer.Analyze([]StyleVector{
		{BidderID: "b1", DocID: "d1", Features: nlp.FeatureVector{AvgWordLength: 1}},
		{BidderID: "b2", DocID: "d2", Features: nlp.FeatureVector{AvgWordLength: 0.8, AvgSentenceLength: 0.6}},
	})

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}
	pair := result.Pairs[0]
	if math.Abs(pair.Similarity-0.8) > 1e-9 {
		t.Errorf("expected similarity 0.8, got %f", pair.Similarity)
	}
	if pair.Band != tender.SeverityMedium {
		t.Errorf("expected medium band, got %s", pair.Band)
	}
	if len(result.HighRiskPairs) != 0 {
		t.Errorf("medium pair must not be high risk")
	}
}

func TestAnalyzeDeterministicAcrossInputOrder(t *testing.T) {
	docs := []StyleVector{
		{BidderID: "b3", DocID: "d3", Features: nlp.FeatureVector{AvgWordLength: 5.1, AvgSentenceLength: 16, LexicalDiversity: 0.48}},
		{BidderID: "b1", DocID: "d1", Features: nlp.FeatureVector{AvgWordLength: 4.8, AvgSentenceLength: 14, LexicalDiversity: 0.55}},
		{BidderID: "b2", DocID: "d2", Features: nlp.FeatureVector{AvgWordLength: 3.9, AvgSentenceLength: 8, LexicalDiversity: 0.7}},
	}
	reversed := []StyleVector{docs[2], docs[1], docs[0]}

	analyzer := NewAnalyzer(AnalyzerParams{})
	first := analyzer.Analyze(docs)
	second := analyzer.Analyze(reversed)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ across input orderings:\n%+v\n%+v", first, second)
	}
}
