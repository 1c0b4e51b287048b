// Package price implements statistical anomaly and cover-bidding detection
// over declared bid prices.
package price

import (
	"fmt"
	"math"
	"sort"

	"github.com/bitshield/procurement/backend/pkg/stats"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// Thresholds maps a risk score onto a severity band.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// Severity returns the band the given score falls into.
func (t Thresholds) Severity(score float64) tender.Severity {
	switch {
	case score >= t.High:
		return tender.SeverityHigh
	case score >= t.Medium:
		return tender.SeverityMedium
	default:
		return tender.SeverityLow
	}
}

// AnalyzerParams configures a price Analyzer. Zero values fall back to
// the defaults below.
type AnalyzerParams struct {
	// OutlierStdThreshold is the |z-score| above which a price is an outlier.
	OutlierStdThreshold float64
	// CoverBidFloor is the fraction above the lowest bid both prices of a
	// cover pair must exceed (0.15 = 15%).
	CoverBidFloor float64
	// CoverBidMargin is the maximum relative gap between two clustered high
	// bids (0.05 = 5%), computed against the lower of the two.
	CoverBidMargin float64
	// LowCVThreshold marks suspiciously uniform pricing.
	LowCVThreshold float64
	// RoundRatioThreshold marks a suspicious share of round-number bids.
	RoundRatioThreshold float64
	// Thresholds maps the final risk score to a severity.
	Thresholds Thresholds
}

// Analyzer detects price anomalies and collusion-shaped pricing patterns.
// It is stateless and safe for concurrent use.
type Analyzer struct {
	outlierStdThreshold float64
	coverBidFloor       float64
	coverBidMargin      float64
	lowCVThreshold      float64
	roundRatioThreshold float64
	thresholds          Thresholds
}

// NewAnalyzer creates a price Analyzer from params, applying defaults for
// unset fields.
func NewAnalyzer(params AnalyzerParams) *Analyzer {
	a := &Analyzer{
		outlierStdThreshold: params.OutlierStdThreshold,
		coverBidFloor:       params.CoverBidFloor,
		coverBidMargin:      params.CoverBidMargin,
		lowCVThreshold:      params.LowCVThreshold,
		roundRatioThreshold: params.RoundRatioThreshold,
		thresholds:          params.Thresholds,
	}
	if a.outlierStdThreshold <= 0 {
		a.outlierStdThreshold = 2.0
	}
	if a.coverBidFloor <= 0 {
		a.coverBidFloor = 0.15
	}
	if a.coverBidMargin <= 0 {
		a.coverBidMargin = 0.05
	}
	if a.lowCVThreshold <= 0 {
		a.lowCVThreshold = 0.1
	}
	if a.roundRatioThreshold <= 0 {
		a.roundRatioThreshold = 0.5
	}
	if a.thresholds == (Thresholds{}) {
		a.thresholds = Thresholds{High: 0.8, Medium: 0.5, Low: 0.3}
	}
	return a
}

// Fixed scoring policy: partial evidence accumulates additively and the
// total never exceeds 1.
const (
	lowCVWeight       = 0.3
	coverBidWeight    = 0.4
	roundNumberWeight = 0.2
)

// Analyze runs the full price pattern analysis over the given bidders.
// It requires at least 2 bidders; below that it returns
// tender.ErrInsufficientData since collusion-style checks need a pair.
func (a *Analyzer) Analyze(bidders []tender.Bidder) (*tender.PriceAnalysis, error) {
	if len(bidders) < 2 {
		return nil, fmt.Errorf("price analysis needs at least 2 bidders, got %d: %w",
			len(bidders), tender.ErrInsufficientData)
	}

	// Sort by (price, id) so every downstream scan is deterministic.
	sorted := make([]tender.Bidder, len(bidders))
	copy(sorted, bidders)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Price != sorted[j].Price {
			return sorted[i].Price < sorted[j].Price
		}
		return sorted[i].ID < sorted[j].ID
	})

	prices := make([]float64, len(sorted))
	for i, b := range sorted {
		prices[i] = b.Price
	}

	result := &tender.PriceAnalysis{
		Mean:                   stats.Mean(prices),
		Median:                 stats.Median(prices),
		StdDev:                 stats.StdDev(prices),
		CoefficientOfVariation: stats.CoefficientOfVariation(prices),
		MinPrice:               prices[0],
		MaxPrice:               prices[len(prices)-1],
		ZScoreOutliers:         []string{},
		IQROutliers:            []string{},
	}

	zScores := stats.ZScores(prices)
	iqrLower, iqrUpper := stats.IQRBounds(prices)
	for i, b := range sorted {
		if math.Abs(zScores[i]) > a.outlierStdThreshold {
			result.ZScoreOutliers = append(result.ZScoreOutliers, b.ID)
		}
		if prices[i] < iqrLower || prices[i] > iqrUpper {
			result.IQROutliers = append(result.IQROutliers, b.ID)
		}
	}

	result.CoverBids = a.detectCoverBids(sorted)
	result.RoundNumberRatio = roundNumberRatio(prices)

	score := 0.0
	if result.CoefficientOfVariation < a.lowCVThreshold {
		score += lowCVWeight
		result.Indicators = append(result.Indicators, "low price variation across bids")
	}
	if len(result.CoverBids) > 0 {
		score += coverBidWeight
		result.Indicators = append(result.Indicators, "clustered high bids detected")
	}
	if result.RoundNumberRatio > a.roundRatioThreshold {
		score += roundNumberWeight
		result.Indicators = append(result.Indicators, "high proportion of round-number bids")
	}
	result.RiskScore = math.Min(score, 1.0)
	result.Severity = a.thresholds.Severity(result.RiskScore)

	return result, nil
}

// detectCoverBids finds every unordered pair of bidders whose prices both
// sit more than the floor above the lowest bid and within the margin of
// each other. The relative gap uses the lower of the two prices as the
// denominator.
func (a *Analyzer) detectCoverBids(sorted []tender.Bidder) []tender.CoverBidPair {
	minPrice := sorted[0].Price
	floor := minPrice * (1 + a.coverBidFloor)

	pairs := []tender.CoverBidPair{}
	for i := 0; i < len(sorted); i++ {
		if sorted[i].Price <= floor {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Price <= floor {
				continue
			}
			diff := (sorted[j].Price - sorted[i].Price) / sorted[i].Price
			if diff < a.coverBidMargin {
				pairs = append(pairs, tender.CoverBidPair{
					BidderA: sorted[i].ID,
					BidderB: sorted[j].ID,
					PriceA:  sorted[i].Price,
					PriceB:  sorted[j].Price,
					DiffPct: diff * 100,
					Pattern: "clustered_high_bids",
				})
			}
		}
	}
	return pairs
}

// roundNumberRatio returns the fraction of prices that are exact multiples
// of 1000 or 5000. Clustering on round figures hints at coordinated pricing.
func roundNumberRatio(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	round := 0
	for _, p := range prices {
		if math.Mod(p, 1000) == 0 || math.Mod(p, 5000) == 0 {
			round++
		}
	}
	return float64(round) / float64(len(prices))
}
