package relgraph

import (
	"math"
	"reflect"
	"testing"

	"github.com/bitshield/procurement/backend/pkg/tender"
)

func bidder(id string, contact tender.Contact) tender.Bidder {
	return tender.Bidder{ID: id, Price: 100000, Contact: contact}
}

func TestBuildSingleBidderEmptyGraph(t *testing.T) {
	builder := NewBuilder(BuilderParams{})

	result := builder.Build([]tender.Bidder{bidder("b1", tender.Contact{})}, nil, nil)

	if len(result.Edges) != 0 {
		t.Errorf("expected no edges, got %d", len(result.Edges))
	}
	if !reflect.DeepEqual(result.Communities, [][]string{{"b1"}}) {
		t.Errorf("expected singleton community, got %v", result.Communities)
	}
	if result.Density != 0 {
		t.Errorf("expected density 0, got %f", result.Density)
	}
}

func TestBuildContactEdges(t *testing.T) {
	builder := NewBuilder(BuilderParams{})

	bidders := []tender.Bidder{
		bidder("b1", tender.Contact{Email: "ceo@alpha-corp.com", Phone: "+49 (0)30 123-456"}),
		bidder("b2", tender.Contact{Email: "sales@Alpha-Corp.com", Phone: "0049030123456"}),
		bidder("b3", tender.Contact{Email: "info@other.org", Address: "12 Main St., Berlin"}),
		bidder("b4", tender.Contact{Address: "12 main st Berlin"}),
	}

	result := builder.Build(bidders, nil, nil)

	if len(result.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d: %+v", len(result.Edges), result.Edges)
	}

	domainEdge := result.Edges[0]
	if domainEdge.BidderA != "b1" || domainEdge.BidderB != "b2" {
		t.Fatalf("expected b1-b2 edge first, got %+v", domainEdge)
	}
	if domainEdge.Weight != 0.8 {
		t.Errorf("shared email domain must weigh 0.8, got %f", domainEdge.Weight)
	}
	if !reflect.DeepEqual(domainEdge.Reasons, []tender.EdgeReason{tender.ReasonContactEmail}) {
		t.Errorf("unexpected reasons: %v", domainEdge.Reasons)
	}

	addressEdge := result.Edges[1]
	if addressEdge.BidderA != "b3" || addressEdge.BidderB != "b4" {
		t.Fatalf("expected b3-b4 edge, got %+v", addressEdge)
	}
	if addressEdge.Weight != 1.0 {
		t.Errorf("shared address must weigh 1.0, got %f", addressEdge.Weight)
	}
}

func TestBuildCollapsesMultiRuleEdges(t *testing.T) {
	builder := NewBuilder(BuilderParams{})

	bidders := []tender.Bidder{
		bidder("b1", tender.Contact{Email: "a@shared.com", Phone: "111 222"}),
		bidder("b2", tender.Contact{Email: "b@shared.com", Phone: "111-222"}),
	}
	sim := &tender.SimilarityAnalysis{
		Pairs: []tender.DocumentPair{
			{BidderA: "b1", DocA: "d1", BidderB: "b2", DocB: "d2", Similarity: 0.75},
		},
	}

	result := builder.Build(bidders, sim, nil)

	if len(result.Edges) != 1 {
		t.Fatalf("expected one collapsed edge, got %d", len(result.Edges))
	}
	edge := result.Edges[0]
	if edge.Weight != 0.9 {
		t.Errorf("expected max contributing weight 0.9 (phone), got %f", edge.Weight)
	}
	want := []tender.EdgeReason{
		tender.ReasonContactEmail,
		tender.ReasonContactPhone,
		tender.ReasonDocSimilarity,
	}
	if !reflect.DeepEqual(edge.Reasons, want) {
		t.Errorf("expected union of reasons %v, got %v", want, edge.Reasons)
	}
}

func TestBuildSimilarityBelowThresholdIgnored(t *testing.T) {
	builder := NewBuilder(BuilderParams{})

	bidders := []tender.Bidder{bidder("b1", tender.Contact{}), bidder("b2", tender.Contact{})}
	sim := &tender.SimilarityAnalysis{
		Pairs: []tender.DocumentPair{
			{BidderA: "b1", DocA: "d1", BidderB: "b2", DocB: "d2", Similarity: 0.65},
		},
	}
	sty := &tender.StylometricAnalysis{
		Pairs: []tender.DocumentPair{
			{BidderA: "b1", DocA: "d1", BidderB: "b2", DocB: "d2", Similarity: 0.78},
		},
	}

	result := builder.Build(bidders, sim, sty)

	if len(result.Edges) != 0 {
		t.Errorf("expected sub-threshold similarities to form no edges, got %+v", result.Edges)
	}
}

func TestBuildTriangleCliqueFlagged(t *testing.T) {
	builder := NewBuilder(BuilderParams{})

	bidders := []tender.Bidder{
		bidder("A", tender.Contact{}),
		bidder("B", tender.Contact{}),
		bidder("C", tender.Contact{}),
	}
	sim := &tender.SimilarityAnalysis{
		Pairs: []tender.DocumentPair{
			{BidderA: "A", DocA: "d1", BidderB: "B", DocB: "d2", Similarity: 0.9},
			{BidderA: "B", DocA: "d2", BidderB: "C", DocB: "d3", Similarity: 0.85},
			{BidderA: "A", DocA: "d1", BidderB: "C", DocB: "d3", Similarity: 0.95},
		},
	}

	result := builder.Build(bidders, sim, nil)

	if len(result.Cliques) != 1 || !reflect.DeepEqual(result.Cliques[0], []string{"A", "B", "C"}) {
		t.Fatalf("expected clique {A,B,C}, got %v", result.Cliques)
	}

	var cliqueGroup *tender.SuspiciousGroup
	for i := range result.HighRiskGroups {
		if result.HighRiskGroups[i].Kind == "clique" {
			cliqueGroup = &result.HighRiskGroups[i]
		}
	}
	if cliqueGroup == nil {
		t.Fatalf("expected the triangle to be flagged as a high-risk group, got %+v", result.HighRiskGroups)
	}
	if cliqueGroup.Size != 3 || !reflect.DeepEqual(cliqueGroup.Members, []string{"A", "B", "C"}) {
		t.Errorf("unexpected flagged group: %+v", cliqueGroup)
	}

	if math.Abs(result.Density-1.0) > 1e-9 {
		t.Errorf("complete triangle density must be 1.0, got %f", result.Density)
	}

	// All three nodes have degree 2 of 2 possible.
	for _, c := range result.Centrality {
		if math.Abs(c.Score-1.0) > 1e-9 {
			t.Errorf("expected centrality 1.0 for %s, got %f", c.BidderID, c.Score)
		}
	}
}

func TestDetectCommunitiesMergesConnectedGroup(t *testing.T) {
	builder := NewBuilder(BuilderParams{})

	// b1-b2-b3 tightly connected, b4 isolated.
	bidders := []tender.Bidder{
		bidder("b1", tender.Contact{Phone: "111"}),
		bidder("b2", tender.Contact{Phone: "111", Address: "5 side road"}),
		bidder("b3", tender.Contact{Address: "5 Side Road"}),
		bidder("b4", tender.Contact{}),
	}

	result := builder.Build(bidders, nil, nil)

	want := [][]string{{"b1", "b2", "b3"}, {"b4"}}
	if !reflect.DeepEqual(result.Communities, want) {
		t.Errorf("expected communities %v, got %v", want, result.Communities)
	}
}

func TestBuildDeterministic(t *testing.T) {
	bidders := []tender.Bidder{
		bidder("b3", tender.Contact{Email: "x@corp.io"}),
		bidder("b1", tender.Contact{Email: "y@corp.io", Phone: "42 42"}),
		bidder("b2", tender.Contact{Phone: "4242"}),
	}
	sim := &tender.SimilarityAnalysis{
		Pairs: []tender.DocumentPair{
			{BidderA: "b2", DocA: "d2", BidderB: "b3", DocB: "d3", Similarity: 0.82},
		},
	}

	builder := NewBuilder(BuilderParams{})
	first := builder.Build(bidders, sim, nil)
	for i := 0; i < 5; i++ {
		again := builder.Build(bidders, sim, nil)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}
