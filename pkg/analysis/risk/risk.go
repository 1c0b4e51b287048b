// Package risk turns the per-stage analysis results into the final
// assessment. Every qualifying finding becomes its own RiskSignal with
// concrete evidence and affected bidders; findings are never merged into
// a generic signal, so reviewers can accept or dismiss each one alone.
//
// The overall score is the maximum signal score: one strong,
// well-evidenced signal is sufficient grounds for review, and averaging
// would dilute a single smoking gun among many benign weak signals.
package risk

import (
	"fmt"
	"sort"

	"github.com/bitshield/procurement/backend/pkg/tender"
)

// Thresholds maps a score to a severity band for one signal type.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// Severity returns the band for score.
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

// DefaultThresholds returns the per-signal-type severity tables.
func DefaultThresholds() map[tender.SignalType]Thresholds {
	return map[tender.SignalType]Thresholds{
		tender.SignalPriceAnomaly:        {High: 0.8, Medium: 0.5, Low: 0.3},
		tender.SignalDocumentSimilarity:  {High: 0.9, Medium: 0.7, Low: 0.5},
		tender.SignalStylometry:          {High: 0.85, Medium: 0.65, Low: 0.45},
		tender.SignalRelationshipNetwork: {High: 0.75, Medium: 0.5, Low: 0.25},
	}
}

// AggregatorParams configures the aggregator. A nil Thresholds map falls
// back to DefaultThresholds.
type AggregatorParams struct {
	Thresholds map[tender.SignalType]Thresholds
}

// Aggregator assembles assessments. Pure computation, no external calls.
type Aggregator struct {
	thresholds map[tender.SignalType]Thresholds
}

// NewAggregator creates an Aggregator from params.
func NewAggregator(params AggregatorParams) *Aggregator {
	thresholds := params.Thresholds
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Aggregator{thresholds: thresholds}
}

// Input carries the upstream stage results into aggregation. A nil
// pointer means the stage produced nothing (failed or skipped);
// FailedStages lists stages that errored so confidence can reflect the
// missing evidence channels.
type Input struct {
	TenderID     string
	Bidders      []tender.Bidder
	Price        *tender.PriceAnalysis
	Similarity   *tender.SimilarityAnalysis
	Stylometry   *tender.StylometricAnalysis
	Graph        *tender.GraphAnalysis
	FailedStages []string
}

const (
	baseConfidence     = 0.4
	perTypeConfidence  = 0.2
	failedStagePenalty = 0.15
)

// Aggregate builds the final assessment from the stage results.
func (a *Aggregator) Aggregate(input Input) *tender.Assessment {
	signals := []tender.RiskSignal{}
	signals = append(signals, a.priceSignals(input)...)
	signals = append(signals, a.pairSignals(tender.SignalDocumentSimilarity, input.Similarity)...)
	signals = append(signals, a.styleSignals(input.Stylometry)...)
	signals = append(signals, a.graphSignals(input)...)

	sortSignals(signals)

	assessment := &tender.Assessment{
		TenderID:   input.TenderID,
		Signals:    signals,
		Price:      input.Price,
		Similarity: input.Similarity,
		Stylometry: input.Stylometry,
		Graph:      input.Graph,
	}

	if len(input.FailedStages) > 0 {
		assessment.Incomplete = true
		failed := make([]string, len(input.FailedStages))
		copy(failed, input.FailedStages)
		sort.Strings(failed)
		assessment.FailedStages = failed
	}

	if len(signals) > 0 {
		assessment.OverallRiskScore = signals[0].Score
		assessment.Confidence = a.confidence(signals, len(input.FailedStages))
	}
	return assessment
}

// confidence rewards convergent independent evidence channels: it grows
// with the number of distinct signal types whose affected bidders overlap
// the strongest signal's, not with raw signal volume. Failed upstream
// stages reduce it, since absent channels could have corroborated or
// contradicted what remains.
func (a *Aggregator) confidence(signals []tender.RiskSignal, failedStages int) float64 {
	top := map[string]bool{}
	for _, id := range signals[0].AffectedBidders {
		top[id] = true
	}

	types := map[tender.SignalType]bool{}
	for _, s := range signals {
		for _, id := range s.AffectedBidders {
			if top[id] {
				types[s.Type] = true
				break
			}
		}
	}

	confidence := baseConfidence + perTypeConfidence*float64(len(types)-1)
	confidence -= failedStagePenalty * float64(failedStages)
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

func (a *Aggregator) priceSignals(input Input) []tender.RiskSignal {
	price := input.Price
	if price == nil || price.RiskScore <= 0 {
		return nil
	}
	thresholds := a.thresholds[tender.SignalPriceAnomaly]

	var signals []tender.RiskSignal
	for i := range price.CoverBids {
		pair := price.CoverBids[i]
		signals = append(signals, tender.RiskSignal{
			Type:     tender.SignalPriceAnomaly,
			Severity: thresholds.Severity(price.RiskScore),
			Score:    price.RiskScore,
			Description: fmt.Sprintf("cover bidding pattern: %s and %s priced within %.1f%% of each other, well above the lowest bid",
				pair.BidderA, pair.BidderB, pair.DiffPct),
			Evidence:        tender.Evidence{CoverBid: &pair},
			AffectedBidders: []string{pair.BidderA, pair.BidderB},
		})
	}
	if len(signals) > 0 {
		return signals
	}

	// Anomalous pricing without a concrete pair implicates the field as
	// a whole.
	affected := make([]string, 0, len(input.Bidders))
	for _, b := range input.Bidders {
		affected = append(affected, b.ID)
	}
	sort.Strings(affected)
	return []tender.RiskSignal{{
		Type:            tender.SignalPriceAnomaly,
		Severity:        thresholds.Severity(price.RiskScore),
		Score:           price.RiskScore,
		Description:     fmt.Sprintf("anomalous price distribution across %d bids (%s)", len(affected), indicatorSummary(price.Indicators)),
		Evidence:        tender.Evidence{PriceSummary: price},
		AffectedBidders: affected,
	}}
}

func (a *Aggregator) pairSignals(signalType tender.SignalType, analysis *tender.SimilarityAnalysis) []tender.RiskSignal {
	if analysis == nil {
		return nil
	}
	thresholds := a.thresholds[signalType]

	var signals []tender.RiskSignal
	for i := range analysis.HighRiskPairs {
		pair := analysis.HighRiskPairs[i]
		signals = append(signals, tender.RiskSignal{
			Type:     signalType,
			Severity: thresholds.Severity(pair.Similarity),
			Score:    pair.Similarity,
			Description: fmt.Sprintf("documents %s (%s) and %s (%s) are %.0f%% similar in content",
				pair.DocA, pair.BidderA, pair.DocB, pair.BidderB, pair.Similarity*100),
			Evidence:        tender.Evidence{DocumentPair: &pair},
			AffectedBidders: []string{pair.BidderA, pair.BidderB},
		})
	}
	return signals
}

func (a *Aggregator) styleSignals(analysis *tender.StylometricAnalysis) []tender.RiskSignal {
	if analysis == nil {
		return nil
	}
	thresholds := a.thresholds[tender.SignalStylometry]

	var signals []tender.RiskSignal
	for i := range analysis.HighRiskPairs {
		pair := analysis.HighRiskPairs[i]
		signals = append(signals, tender.RiskSignal{
			Type:     tender.SignalStylometry,
			Severity: thresholds.Severity(pair.Similarity),
			Score:    pair.Similarity,
			Description: fmt.Sprintf("documents %s (%s) and %s (%s) share %.0f%% of writing style features, suggesting a common author",
				pair.DocA, pair.BidderA, pair.DocB, pair.BidderB, pair.Similarity*100),
			Evidence:        tender.Evidence{StylePair: &pair},
			AffectedBidders: []string{pair.BidderA, pair.BidderB},
		})
	}
	return signals
}

func (a *Aggregator) graphSignals(input Input) []tender.RiskSignal {
	graph := input.Graph
	if graph == nil {
		return nil
	}
	thresholds := a.thresholds[tender.SignalRelationshipNetwork]
	bidderCount := len(input.Bidders)

	var signals []tender.RiskSignal
	for i := range graph.HighRiskGroups {
		group := graph.HighRiskGroups[i]
		score := 1.0
		if bidderCount > 0 && group.Size < bidderCount {
			score = float64(group.Size) / float64(bidderCount)
		}
		signals = append(signals, tender.RiskSignal{
			Type:     tender.SignalRelationshipNetwork,
			Severity: thresholds.Severity(score),
			Score:    score,
			Description: fmt.Sprintf("%s of %d connected bidders: %s",
				group.Kind, group.Size, memberSummary(group.Members)),
			Evidence:        tender.Evidence{Group: &group},
			AffectedBidders: append([]string{}, group.Members...),
		})
	}
	return signals
}

func sortSignals(signals []tender.RiskSignal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		if signals[i].Type != signals[j].Type {
			return signals[i].Type < signals[j].Type
		}
		return signals[i].Description < signals[j].Description
	})
}

func indicatorSummary(indicators []string) string {
	if len(indicators) == 0 {
		return "statistical outliers"
	}
	out := indicators[0]
	for _, ind := range indicators[1:] {
		out += ", " + ind
	}
	return out
}

func memberSummary(members []string) string {
	out := ""
	for i, m := range members {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}
