// Package similarity computes cross-bidder semantic similarity over
// per-document embedding vectors. Embeddings come from an external
// provider; this package never computes them itself.
package similarity

import (
	"sort"

	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/stats"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// AnalyzerParams configures the similarity thresholds. Zero values fall
// back to the defaults below.
type AnalyzerParams struct {
	// HighThreshold marks a pair as high risk (default 0.9).
	HighThreshold float64
	// MediumThreshold marks a pair as medium (default 0.7).
	MediumThreshold float64
}

// Analyzer classifies cross-bidder document pairs by cosine similarity.
// It is stateless and safe for concurrent use.
type Analyzer struct {
	highThreshold   float64
	mediumThreshold float64
}

// NewAnalyzer creates a similarity Analyzer from params.
func NewAnalyzer(params AnalyzerParams) *Analyzer {
	a := &Analyzer{
		highThreshold:   params.HighThreshold,
		mediumThreshold: params.MediumThreshold,
	}
	if a.highThreshold <= 0 {
		a.highThreshold = 0.9
	}
	if a.mediumThreshold <= 0 {
		a.mediumThreshold = 0.7
	}
	return a
}

// Analyze computes the pairwise cosine similarity of every cross-bidder
// document pair. Same-bidder pairs are discarded: a bidder's own documents
// may legitimately overlap. Fewer than 2 documents yields an empty result,
// not an error.
//
// Vectors must share one dimensionality; documents that deviate from the
// first vector's size are excluded and logged.
func (a *Analyzer) Analyze(docs []tender.DocumentVector) *tender.SimilarityAnalysis {
	result := &tender.SimilarityAnalysis{
		Pairs:         []tender.DocumentPair{},
		HighRiskPairs: []tender.DocumentPair{},
	}
	usable := sortAndFilter(docs)
	if len(usable) < 2 {
		return result
	}

	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			if usable[i].BidderID == usable[j].BidderID {
				continue
			}
			result.Comparisons++

			score := clamp01(stats.Cosine32(usable[i].Vector, usable[j].Vector))
			pair := tender.DocumentPair{
				BidderA:    usable[i].BidderID,
				DocA:       usable[i].DocID,
				BidderB:    usable[j].BidderID,
				DocB:       usable[j].DocID,
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

// sortAndFilter orders documents by (bidder, doc) for deterministic output
// and drops vectors whose dimensionality deviates from the first one.
func sortAndFilter(docs []tender.DocumentVector) []tender.DocumentVector {
	sorted := make([]tender.DocumentVector, 0, len(docs))
	for _, d := range docs {
		if len(d.Vector) > 0 {
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].BidderID != sorted[j].BidderID {
			return sorted[i].BidderID < sorted[j].BidderID
		}
		return sorted[i].DocID < sorted[j].DocID
	})

	if len(sorted) == 0 {
		return sorted
	}
	dim := len(sorted[0].Vector)
	usable := sorted[:0]
	for _, d := range sorted {
		if len(d.Vector) != dim {
			logger.Warn("[Similarity] Skipping document with mismatched vector size",
				"bidder_id", d.BidderID, "doc_id", d.DocID, "got", len(d.Vector), "want", dim)
			continue
		}
		usable = append(usable, d)
	}
	return usable
}

// sortPairs orders document pairs by similarity descending, then by ids,
// so results are reproducible for identical input.
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

// clamp01 keeps cosine output inside [0,1]. Negative similarity carries no
// collusion evidence and floating point can nudge identical vectors above 1.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
