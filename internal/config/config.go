// Package config assembles the engine configuration from the
// environment. Every knob has the production default baked in, so an
// empty environment yields a fully working configuration.
package config

import (
	"github.com/bitshield/procurement/backend/internal/util"
	"github.com/bitshield/procurement/backend/pkg/analysis/price"
	"github.com/bitshield/procurement/backend/pkg/analysis/risk"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// Config holds every tunable of an analysis run.
type Config struct {
	// Thresholds is the per-signal-type severity table.
	Thresholds map[tender.SignalType]risk.Thresholds

	// Price analyzer knobs.
	OutlierStdThreshold float64
	CoverBidFloor       float64
	CoverBidMargin      float64
	LowCVThreshold      float64
	RoundRatioThreshold float64

	// Pair classification thresholds.
	SimilarityHigh   float64
	SimilarityMedium float64
	StyleHigh        float64
	StyleMedium      float64

	// Relationship graph knobs.
	DocSimEdgeThreshold    float64
	StyleEdgeThreshold     float64
	EmailEdgeWeight        float64
	PhoneEdgeWeight        float64
	AddressEdgeWeight      float64
	MinBiddersForCollusion int

	// External collaborator limits.
	EmbedTimeoutMin   int
	EmbeddingParallel int
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Thresholds: map[tender.SignalType]risk.Thresholds{
			tender.SignalPriceAnomaly: {
				High:   util.GetEnvNumeric("RISK_PRICE_HIGH", 0.8),
				Medium: util.GetEnvNumeric("RISK_PRICE_MEDIUM", 0.5),
				Low:    util.GetEnvNumeric("RISK_PRICE_LOW", 0.3),
			},
			tender.SignalDocumentSimilarity: {
				High:   util.GetEnvNumeric("RISK_DOC_SIM_HIGH", 0.9),
				Medium: util.GetEnvNumeric("RISK_DOC_SIM_MEDIUM", 0.7),
				Low:    util.GetEnvNumeric("RISK_DOC_SIM_LOW", 0.5),
			},
			tender.SignalStylometry: {
				High:   util.GetEnvNumeric("RISK_STYLOMETRY_HIGH", 0.85),
				Medium: util.GetEnvNumeric("RISK_STYLOMETRY_MEDIUM", 0.65),
				Low:    util.GetEnvNumeric("RISK_STYLOMETRY_LOW", 0.45),
			},
			tender.SignalRelationshipNetwork: {
				High:   util.GetEnvNumeric("RISK_RELATIONSHIP_HIGH", 0.75),
				Medium: util.GetEnvNumeric("RISK_RELATIONSHIP_MEDIUM", 0.5),
				Low:    util.GetEnvNumeric("RISK_RELATIONSHIP_LOW", 0.25),
			},
		},

		OutlierStdThreshold: util.GetEnvNumeric("PRICE_OUTLIER_STD_THRESHOLD", 2.0),
		CoverBidFloor:       util.GetEnvNumeric("COVER_BID_FLOOR", 0.15),
		CoverBidMargin:      util.GetEnvNumeric("COVER_BID_MARGIN", 0.05),
		LowCVThreshold:      util.GetEnvNumeric("LOW_CV_THRESHOLD", 0.1),
		RoundRatioThreshold: util.GetEnvNumeric("ROUND_RATIO_THRESHOLD", 0.5),

		SimilarityHigh:   util.GetEnvNumeric("SIMILARITY_HIGH_THRESHOLD", 0.9),
		SimilarityMedium: util.GetEnvNumeric("SIMILARITY_MEDIUM_THRESHOLD", 0.7),
		StyleHigh:        util.GetEnvNumeric("STYLOMETRY_HIGH_THRESHOLD", 0.85),
		StyleMedium:      util.GetEnvNumeric("STYLOMETRY_MEDIUM_THRESHOLD", 0.65),

		DocSimEdgeThreshold:    util.GetEnvNumeric("GRAPH_DOC_SIM_EDGE_THRESHOLD", 0.7),
		StyleEdgeThreshold:     util.GetEnvNumeric("GRAPH_STYLE_EDGE_THRESHOLD", 0.8),
		EmailEdgeWeight:        util.GetEnvNumeric("GRAPH_EMAIL_EDGE_WEIGHT", 0.8),
		PhoneEdgeWeight:        util.GetEnvNumeric("GRAPH_PHONE_EDGE_WEIGHT", 0.9),
		AddressEdgeWeight:      util.GetEnvNumeric("GRAPH_ADDRESS_EDGE_WEIGHT", 1.0),
		MinBiddersForCollusion: util.GetEnvInt("MIN_BIDDERS_FOR_COLLUSION", 2),

		EmbedTimeoutMin:   util.GetEnvInt("AI_TIMEOUT_MIN", 1),
		EmbeddingParallel: util.GetEnvInt("EMBEDDING_PARALLELISM", 4),
	}
}

// PriceParams maps the config onto the price analyzer's parameters.
func (c Config) PriceParams() price.AnalyzerParams {
	return price.AnalyzerParams{
		OutlierStdThreshold: c.OutlierStdThreshold,
		CoverBidFloor:       c.CoverBidFloor,
		CoverBidMargin:      c.CoverBidMargin,
		LowCVThreshold:      c.LowCVThreshold,
		RoundRatioThreshold: c.RoundRatioThreshold,
		Thresholds: price.Thresholds{
			High:   c.Thresholds[tender.SignalPriceAnomaly].High,
			Medium: c.Thresholds[tender.SignalPriceAnomaly].Medium,
			Low:    c.Thresholds[tender.SignalPriceAnomaly].Low,
		},
	}
}
