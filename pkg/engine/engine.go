// Package engine orchestrates a full analysis run as a bounded
// fan-out/fan-in task graph: the price, similarity and stylometry stages
// run concurrently, the relationship graph joins on the two document
// stages, and aggregation joins on everything.
//
// Each stage writes only its own slot of the run record, so merging is a
// pure reducer with no field ever written by two stages. A failed stage
// does not halt its siblings; the run completes with the stage marked
// failed and confidence reduced. Only invalid input (no bidders, no
// documents) or cancellation abort the whole run.
package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bitshield/procurement/backend/internal/util"
	"github.com/bitshield/procurement/backend/pkg/ai"
	"github.com/bitshield/procurement/backend/pkg/analysis/price"
	"github.com/bitshield/procurement/backend/pkg/analysis/risk"
	"github.com/bitshield/procurement/backend/pkg/analysis/similarity"
	"github.com/bitshield/procurement/backend/pkg/analysis/stylometry"
	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/nlp"
	"github.com/bitshield/procurement/backend/pkg/relgraph"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// Transient embedding failures are retried before a document is
// excluded.
const embedMaxTries = 3

// Stage names as reported in Assessment.FailedStages.
const (
	StagePrice      = "price"
	StageSimilarity = "similarity"
	StageStylometry = "stylometry"
	StageGraph      = "graph"
)

// EngineParams wires the engine's collaborators and analyzers. Embedder
// is required; every other field defaults to the standard component.
type EngineParams struct {
	Embedder         ai.EmbeddingClient
	Extractor        nlp.FeatureExtractor
	Price            *price.Analyzer
	Similarity       *similarity.Analyzer
	Stylometry       *stylometry.Analyzer
	Graph            *relgraph.Builder
	Aggregator       *risk.Aggregator
	EmbedParallelism int
}

// Engine runs analyses. Safe for concurrent use; all per-run state lives
// in the run record.
type Engine struct {
	embedder         ai.EmbeddingClient
	extractor        nlp.FeatureExtractor
	price            *price.Analyzer
	similarity       *similarity.Analyzer
	stylometry       *stylometry.Analyzer
	graph            *relgraph.Builder
	aggregator       *risk.Aggregator
	embedParallelism int
}

// NewEngine creates an Engine from params.
func NewEngine(params EngineParams) *Engine {
	e := &Engine{
		embedder:         params.Embedder,
		extractor:        params.Extractor,
		price:            params.Price,
		similarity:       params.Similarity,
		stylometry:       params.Stylometry,
		graph:            params.Graph,
		aggregator:       params.Aggregator,
		embedParallelism: params.EmbedParallelism,
	}
	if e.extractor == nil {
		e.extractor = nlp.NewHeuristicExtractor()
	}
	if e.price == nil {
		e.price = price.NewAnalyzer(price.AnalyzerParams{})
	}
	if e.similarity == nil {
		e.similarity = similarity.NewAnalyzer(similarity.AnalyzerParams{})
	}
	if e.stylometry == nil {
		e.stylometry = stylometry.NewAnalyzer(stylometry.AnalyzerParams{})
	}
	if e.graph == nil {
		e.graph = relgraph.NewBuilder(relgraph.BuilderParams{})
	}
	if e.aggregator == nil {
		e.aggregator = risk.NewAggregator(risk.AggregatorParams{})
	}
	if e.embedParallelism <= 0 {
		e.embedParallelism = 4
	}
	return e
}

// Request is one tender to analyze: the bidder list and the extracted
// plain-text documents.
type Request struct {
	TenderID  string
	Bidders   []tender.Bidder
	Documents []tender.Document
}

// record collects the per-stage results. Each field is written by
// exactly one stage goroutine before the fan-in, never concurrently.
type record struct {
	price   *tender.PriceAnalysis
	sim     *tender.SimilarityAnalysis
	sty     *tender.StylometricAnalysis
	graph   *tender.GraphAnalysis
	vectors []tender.DocumentVector

	priceFailed bool
	simFailed   bool
	styFailed   bool
}

// Analyze runs the full task graph for one tender. It returns an error
// only for invalid input (wrapping tender.ErrNoBidders or
// tender.ErrNoDocuments) or cancellation; stage failures are reported
// inside the assessment instead. On cancellation no partial assessment
// is returned.
func (e *Engine) Analyze(ctx context.Context, req Request) (*tender.Assessment, error) {
	assessment, _, err := e.AnalyzeWithVectors(ctx, req)
	return assessment, err
}

// AnalyzeWithVectors additionally returns the document embeddings the
// similarity stage fetched, so callers can persist them for cross-tender
// similarity queries without embedding twice.
func (e *Engine) AnalyzeWithVectors(ctx context.Context, req Request) (*tender.Assessment, []tender.DocumentVector, error) {
	if len(req.Bidders) == 0 {
		return nil, nil, fmt.Errorf("tender %s: %w", req.TenderID, tender.ErrNoBidders)
	}
	if len(req.Documents) == 0 {
		return nil, nil, fmt.Errorf("tender %s: %w", req.TenderID, tender.ErrNoDocuments)
	}

	rec := &record{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.runPrice(req, rec)
	})

	// The graph stage joins on both document stages but not on price.
	g.Go(func() error {
		inner, ictx := errgroup.WithContext(gctx)
		inner.Go(func() error {
			return e.runSimilarity(ictx, req, rec)
		})
		inner.Go(func() error {
			return e.runStylometry(ictx, req, rec)
		})
		if err := inner.Wait(); err != nil {
			return err
		}
		rec.graph = e.graph.Build(req.Bidders, rec.sim, rec.sty)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failed []string
	if rec.priceFailed {
		failed = append(failed, StagePrice)
	}
	if rec.simFailed {
		failed = append(failed, StageSimilarity)
	}
	if rec.styFailed {
		failed = append(failed, StageStylometry)
	}

	assessment := e.aggregator.Aggregate(risk.Input{
		TenderID:     req.TenderID,
		Bidders:      req.Bidders,
		Price:        rec.price,
		Similarity:   rec.sim,
		Stylometry:   rec.sty,
		Graph:        rec.graph,
		FailedStages: failed,
	})
	return assessment, rec.vectors, nil
}

func (e *Engine) runPrice(req Request, rec *record) error {
	result, err := e.price.Analyze(req.Bidders)
	if err != nil {
		if errors.Is(err, tender.ErrInsufficientData) {
			logger.Warn("Skipping price analysis", "tender", req.TenderID, "error", err)
			return nil
		}
		rec.priceFailed = true
		logger.Error("Price analysis failed", "tender", req.TenderID, "error", err)
		return nil
	}
	rec.price = result
	return nil
}

func (e *Engine) runSimilarity(ctx context.Context, req Request, rec *record) error {
	vectors, err := e.embedDocuments(ctx, req.Documents)
	if err != nil {
		return err
	}
	if vectors == nil {
		rec.simFailed = true
		return nil
	}
	rec.vectors = vectors
	rec.sim = e.similarity.Analyze(vectors)
	return nil
}

func (e *Engine) runStylometry(ctx context.Context, req Request, rec *record) error {
	styles, err := e.extractStyles(ctx, req.Documents)
	if err != nil {
		return err
	}
	if styles == nil {
		rec.styFailed = true
		return nil
	}
	rec.sty = e.stylometry.Analyze(styles)
	return nil
}

// embedDocuments fetches one embedding per document with bounded
// parallelism. A document whose embedding call fails is excluded with a
// warning so the remaining documents still produce results; if every
// document fails the stage as a whole is failed (nil return).
// Cancellation propagates as an error.
func (e *Engine) embedDocuments(ctx context.Context, docs []tender.Document) ([]tender.DocumentVector, error) {
	results := make([]*tender.DocumentVector, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.embedParallelism)
	for i := range docs {
		g.Go(func() error {
			doc := docs[i]
			vector, err := util.RetryWithContext(gctx, embedMaxTries, func(ctx context.Context) ([]float32, error) {
				return e.embedder.GenerateEmbedding(ctx, []byte(doc.Text))
			})
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warn("Excluding document from similarity analysis", "doc", doc.DocID, "error", err)
				return nil
			}
			results[i] = &tender.DocumentVector{
				BidderID: doc.BidderID,
				DocID:    doc.DocID,
				Vector:   vector,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vectors := make([]tender.DocumentVector, 0, len(docs))
	for _, r := range results {
		if r != nil {
			vectors = append(vectors, *r)
		}
	}
	if len(vectors) == 0 {
		logger.Error("Every embedding call failed, similarity stage has no input")
		return nil, nil
	}
	return vectors, nil
}

// extractStyles runs the linguistic feature extractor per document,
// excluding failures the same way embedDocuments does.
func (e *Engine) extractStyles(ctx context.Context, docs []tender.Document) ([]stylometry.StyleVector, error) {
	styles := make([]stylometry.StyleVector, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		features, err := e.extractor.Extract(ctx, doc.Text)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil, err
			}
			logger.Warn("Excluding document from stylometric analysis", "doc", doc.DocID, "error", err)
			continue
		}
		styles = append(styles, stylometry.StyleVector{
			BidderID: doc.BidderID,
			DocID:    doc.DocID,
			Features: features,
		})
	}
	if len(styles) == 0 {
		logger.Error("Every feature extraction failed, stylometry stage has no input")
		return nil, nil
	}
	return styles, nil
}
