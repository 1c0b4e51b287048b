// Package tender defines the shared data model of the bid-rigging risk
// engine: the immutable inputs of an analysis run (bidders and their
// extracted documents) and the per-stage result records the analyzers
// produce. Every entity is created fresh per run and never mutated after
// creation; later stages reference earlier results by bidder id only.
package tender

import "errors"

// Errors surfaced by the analyzers and the engine.
var (
	// ErrNoBidders indicates an analysis request without any bidders.
	// The whole run fails before any stage starts.
	ErrNoBidders = errors.New("no bidders provided")

	// ErrNoDocuments indicates an analysis request without any documents.
	// The whole run fails before any stage starts.
	ErrNoDocuments = errors.New("no documents provided")

	// ErrInsufficientData indicates an analyzer received fewer data points
	// than it needs. Non-fatal: the stage emits an empty result and is
	// excluded from aggregation.
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// Contact holds the optional contact metadata of a bidder. Shared contact
// details across bidders are strong relationship evidence.
type Contact struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Bidder is one participant in a tender, with its declared bid price.
type Bidder struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Price   float64 `json:"declared_price"`
	Contact Contact `json:"contact"`
}

// Document is one extracted bid document. Text extraction happens in an
// external service; the engine only ever sees plain text.
type Document struct {
	BidderID string `json:"bidder_id"`
	DocID    string `json:"doc_id"`
	Text     string `json:"text"`
}

// DocumentVector is a per-document embedding or feature vector keyed by
// its owning bidder and document.
type DocumentVector struct {
	BidderID string    `json:"bidder_id"`
	DocID    string    `json:"doc_id"`
	Vector   []float32 `json:"vector"`
}

// SignalType identifies the evidence channel a risk signal came from.
type SignalType string

const (
	SignalPriceAnomaly        SignalType = "price_anomaly"
	SignalDocumentSimilarity  SignalType = "document_similarity"
	SignalStylometry          SignalType = "stylometry"
	SignalRelationshipNetwork SignalType = "relationship_network"
)

// Severity is the qualitative band of a risk score.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// CoverBidPair records two bidders whose prices are clustered well above
// the lowest bid, the classic cover-bidding shape.
type CoverBidPair struct {
	BidderA string  `json:"bidder_a"`
	BidderB string  `json:"bidder_b"`
	PriceA  float64 `json:"price_a"`
	PriceB  float64 `json:"price_b"`
	DiffPct float64 `json:"difference_pct"`
	Pattern string  `json:"pattern"`
}

// PriceAnalysis is the output of the price anomaly analyzer.
type PriceAnalysis struct {
	Mean                   float64        `json:"mean"`
	Median                 float64        `json:"median"`
	StdDev                 float64        `json:"std_dev"`
	CoefficientOfVariation float64        `json:"coefficient_of_variation"`
	MinPrice               float64        `json:"min_price"`
	MaxPrice               float64        `json:"max_price"`
	ZScoreOutliers         []string       `json:"z_score_outliers"`
	IQROutliers            []string       `json:"iqr_outliers"`
	CoverBids              []CoverBidPair `json:"cover_bids"`
	RoundNumberRatio       float64        `json:"round_number_ratio"`
	Indicators             []string       `json:"indicators"`
	RiskScore              float64        `json:"risk_score"`
	Severity               Severity       `json:"severity"`
}

// DocumentPair is one cross-bidder document comparison with its cosine
// similarity and the severity band it falls into.
type DocumentPair struct {
	BidderA    string   `json:"bidder_a"`
	DocA       string   `json:"doc_a"`
	BidderB    string   `json:"bidder_b"`
	DocB       string   `json:"doc_b"`
	Similarity float64  `json:"similarity"`
	Band       Severity `json:"band"`
}

// SimilarityAnalysis is the output of the semantic similarity analyzer:
// all cross-bidder document pairs with their similarity, ordered
// deterministically, plus the subset at or above the high threshold.
type SimilarityAnalysis struct {
	Pairs         []DocumentPair `json:"pairs"`
	HighRiskPairs []DocumentPair `json:"high_risk_pairs"`
	Comparisons   int            `json:"comparisons"`
}

// StylometricAnalysis has the same shape as SimilarityAnalysis but is
// computed over linguistic feature vectors instead of content embeddings.
// Style and content are independent evidence channels: near-identical
// style with different wording must not be masked by a low content score.
type StylometricAnalysis struct {
	Pairs         []DocumentPair `json:"pairs"`
	HighRiskPairs []DocumentPair `json:"high_risk_pairs"`
	Comparisons   int            `json:"comparisons"`
}

// EdgeReason names the rule that contributed a relationship edge.
type EdgeReason string

const (
	ReasonContactEmail   EdgeReason = "contact_email"
	ReasonContactPhone   EdgeReason = "contact_phone"
	ReasonContactAddress EdgeReason = "contact_address"
	ReasonDocSimilarity  EdgeReason = "doc_similarity"
	ReasonStylometry     EdgeReason = "stylometry"
)

// Edge is one undirected relationship between two bidders. At most one
// logical edge exists per unordered pair; when several rules fire the
// weight is the maximum of the contributing weights and Reasons carries
// the union, so evidence stays multi-cause.
type Edge struct {
	BidderA string       `json:"bidder_a"`
	BidderB string       `json:"bidder_b"`
	Weight  float64      `json:"weight"`
	Reasons []EdgeReason `json:"reasons"`
}

// SuspiciousGroup is a clique or community large enough to flag for review.
type SuspiciousGroup struct {
	Kind    string   `json:"kind"` // "clique" or "community"
	Members []string `json:"members"`
	Size    int      `json:"size"`
}

// CentralityScore ranks a bidder by how connected it is in the network.
type CentralityScore struct {
	BidderID string  `json:"bidder_id"`
	Score    float64 `json:"score"`
}

// GraphAnalysis is the output of the relationship graph builder.
type GraphAnalysis struct {
	Nodes          []string          `json:"nodes"`
	Edges          []Edge            `json:"edges"`
	Communities    [][]string        `json:"communities"`
	Cliques        [][]string        `json:"cliques"`
	HighRiskGroups []SuspiciousGroup `json:"high_risk_groups"`
	Density        float64           `json:"density"`
	Centrality     []CentralityScore `json:"centrality"`
}

// Evidence is the structured, signal-type-specific backing of a risk
// signal. Exactly one field is set, matching the signal type.
type Evidence struct {
	CoverBid     *CoverBidPair    `json:"cover_bid,omitempty"`
	PriceSummary *PriceAnalysis   `json:"price_summary,omitempty"`
	DocumentPair *DocumentPair    `json:"document_pair,omitempty"`
	StylePair    *DocumentPair    `json:"style_pair,omitempty"`
	Group        *SuspiciousGroup `json:"group,omitempty"`
}

// RiskSignal is one independently reviewable finding. Each qualifying
// finding becomes its own signal; findings are never merged.
type RiskSignal struct {
	Type            SignalType `json:"signal_type"`
	Severity        Severity   `json:"severity"`
	Score           float64    `json:"score"`
	Description     string     `json:"description"`
	Evidence        Evidence   `json:"evidence"`
	AffectedBidders []string   `json:"affected_bidders"`
}

// Assessment is the final aggregated output of an analysis run.
// OverallRiskScore is the maximum individual signal score: one strong,
// well-evidenced signal is sufficient grounds for review.
type Assessment struct {
	TenderID         string               `json:"tender_id"`
	OverallRiskScore float64              `json:"overall_risk_score"`
	Confidence       float64              `json:"confidence"`
	Incomplete       bool                 `json:"incomplete"`
	FailedStages     []string             `json:"failed_stages,omitempty"`
	Signals          []RiskSignal         `json:"signals"`
	Price            *PriceAnalysis       `json:"price_analysis,omitempty"`
	Similarity       *SimilarityAnalysis  `json:"similarity_analysis,omitempty"`
	Stylometry       *StylometricAnalysis `json:"stylometry_analysis,omitempty"`
	Graph            *GraphAnalysis       `json:"relationship_graph,omitempty"`
}
