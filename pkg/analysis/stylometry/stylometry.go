// Package stylometry compares writing-style feature vectors across
// bidders. Content similarity and authorship-style similarity are
// independent evidence channels: near-identical style with different
// wording is still suspicious, so style gets its own analyzer instead of
// being folded into the semantic score.
package stylometry

import (
	"sort"

	"github.com/bitshield/procurement/backend/pkg/nlp"
	"github.com/bitshield/procurement/backend/pkg/stats"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// StyleVector pairs a document with its extracted linguistic features.
type StyleVector struct {
	BidderID string
	DocID    string
	Features nlp.FeatureVector
}

// AnalyzerParams configures the stylometric thresholds. Zero values fall
// back to the defaults below.
type AnalyzerParams struct {
	// HighThreshold marks a style pair as high risk (default 0.85).
	HighThreshold float64
	// MediumThreshold marks a pair as medium (default 0.65).
	MediumThreshold float64
}

// Analyzer classifies cross-bidder style pairs by cosine similarity over
// feature vectors. It is stateless and safe for concurrent use.
type Analyzer struct {
	highThreshold   float64
	mediumThreshold float64
}

// NewAnalyzer creates a stylometric Analyzer from params.
func NewAnalyzer(params AnalyzerParams) *Analyzer {
	a := &Analyzer{
		highThreshold:   params.HighThreshold,
		mediumThreshold: params.MediumThreshold,
	}
	if a.highThreshold <= 0 {
		a.highThreshold = 0.85
	}
	if a.mediumThreshold <= 0 {
		a.mediumThreshold = 0.65
	}
	return a
}

// Analyze computes pairwise style similarity for every cross-bidder
// document pair, discarding same-bidder pairs. Fewer than 2 documents
// yields an empty result, not an error.
func (a *Analyzer) Analyze(docs []StyleVector) *tender.StylometricAnalysis {
	result := &tender.StylometricAnalysis{
		Pairs:         []tender.DocumentPair{},
		HighRiskPairs: []tender.DocumentPair{},
	}
	if len(docs) < 2 {
		return result
	}

	sorted := make([]StyleVector, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].BidderID != sorted[j].BidderID {
			return sorted[i].BidderID < sorted[j].BidderID
		}
		return sorted[i].DocID < sorted[j].DocID
	})

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i].BidderID == sorted[j].BidderID {
				continue
			}
			result.Comparisons++

			score := clamp01(stats.Cosine(sorted[i].Features.Values(), sorted[j].Features.Values()))
			pair := tender.DocumentPair{
				BidderA:    sorted[i].BidderID,
				DocA:       sorted[i].DocID,
				BidderB:    sorted[j].BidderID,
				DocB:       sorted[j].DocID,
				Similarity: score,
				Band:       a.band(score),
			}
			result.Pairs = append(result.Pairs, pair)
			if score >= a.highThreshold {
				result.HighRiskPairs = append(result.HighRiskPairs, pair)
			}
		}
	}

	sortPairs(result.Pairs)
	sortPairs(result.HighRiskPairs)
	return result
}

func (a *Analyzer) band(score float64) tender.Severity {
	switch {
	case score >= a.highThreshold:
		return tender.SeverityHigh
	case score >= a.mediumThreshold:
		return tender.SeverityMedium
	default:
		return tender.SeverityLow
	}
}

func sortPairs(pairs []tender.DocumentPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		if pairs[i].BidderA != pairs[j].BidderA {
			return pairs[i].BidderA < pairs[j].BidderA
		}
		if pairs[i].DocA != pairs[j].DocA {
			return pairs[i].DocA < pairs[j].DocA
		}
		if pairs[i].BidderB != pairs[j].BidderB {
			return pairs[i].BidderB < pairs[j].BidderB
		}
		return pairs[i].DocB < pairs[j].DocB
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
