package price

import (
	"errors"
	"math"
	"testing"

	"github.com/bitshield/procurement/backend/pkg/tender"
)

func bidders(prices map[string]float64) []tender.Bidder {
	out := make([]tender.Bidder, 0, len(prices))
	for id, p := range prices {
		out = append(out, tender.Bidder{ID: id, Price: p})
	}
	return out
}

func TestAnalyze_InsufficientData(t *testing.T) {
	a := NewAnalyzer(AnalyzerParams{})

	_, err := a.Analyze([]tender.Bidder{{ID: "b1", Price: 1000}})
	if !errors.Is(err, tender.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	_, err = a.Analyze(nil)
	if !errors.Is(err, tender.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty input, got %v", err)
	}
}

func TestAnalyze_CoverBiddingScenario(t *testing.T) {
	// Two high bids 0.83% apart, both more than 15% above the lowest bid.
	a := NewAnalyzer(AnalyzerParams{})
	got, err := a.Analyze(bidders(map[string]float64{
		"b1": 100000,
		"b2": 120000,
		"b3": 121000,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.CoverBids) != 1 {
		t.Fatalf("expected 1 cover-bid pair, got %d", len(got.CoverBids))
	}
	pair := got.CoverBids[0]
	if pair.BidderA != "b2" || pair.BidderB != "b3" {
		t.Errorf("expected pair (b2, b3), got (%s, %s)", pair.BidderA, pair.BidderB)
	}
	if pair.Pattern != "clustered_high_bids" {
		t.Errorf("expected pattern clustered_high_bids, got %s", pair.Pattern)
	}
	if math.Abs(pair.DiffPct-100*1000.0/120000.0) > 1e-9 {
		t.Errorf("unexpected diff pct: %v", pair.DiffPct)
	}

	// CV < 0.1, cover pair found, all prices round: 0.3 + 0.4 + 0.2 = 0.9.
	if math.Abs(got.RiskScore-0.9) > 1e-9 {
		t.Errorf("risk score = %v, want 0.9", got.RiskScore)
	}
	if got.RiskScore < 0.7 {
		t.Errorf("risk score = %v, want >= 0.7", got.RiskScore)
	}
	if got.Severity != tender.SeverityHigh {
		t.Errorf("severity = %s, want high", got.Severity)
	}
}

func TestAnalyze_ConstantPricesNoSpuriousOutliers(t *testing.T) {
	a := NewAnalyzer(AnalyzerParams{})
	got, err := a.Analyze(bidders(map[string]float64{
		"b1": 50000,
		"b2": 50000,
		"b3": 50000,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CoefficientOfVariation != 0 {
		t.Errorf("CV = %v, want 0 for constant prices", got.CoefficientOfVariation)
	}
	if len(got.ZScoreOutliers) != 0 {
		t.Errorf("expected no z-score outliers on constant prices, got %v", got.ZScoreOutliers)
	}
	// Equal prices sit at the minimum, so no bid clears the cover-bid floor.
	if len(got.CoverBids) != 0 {
		t.Errorf("expected no cover bids, got %v", got.CoverBids)
	}
}

func TestAnalyze_RoundNumberRatio(t *testing.T) {
	a := NewAnalyzer(AnalyzerParams{})
	got, err := a.Analyze(bidders(map[string]float64{
		"b1": 10000,
		"b2": 25000,
		"b3": 31417,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got.RoundNumberRatio-2.0/3.0) > 1e-9 {
		t.Errorf("round number ratio = %v, want 2/3", got.RoundNumberRatio)
	}
}

func TestAnalyze_ZScoreOutlier(t *testing.T) {
	a := NewAnalyzer(AnalyzerParams{OutlierStdThreshold: 1.5})
	got, err := a.Analyze(bidders(map[string]float64{
		"b1": 100, "b2": 101, "b3": 99, "b4": 100, "b5": 102, "b6": 300,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.ZScoreOutliers) != 1 || got.ZScoreOutliers[0] != "b6" {
		t.Errorf("expected z-score outlier [b6], got %v", got.ZScoreOutliers)
	}
	if len(got.IQROutliers) != 1 || got.IQROutliers[0] != "b6" {
		t.Errorf("expected IQR outlier [b6], got %v", got.IQROutliers)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := NewAnalyzer(AnalyzerParams{})
	input := bidders(map[string]float64{
		"b1": 100000, "b2": 120000, "b3": 121000, "b4": 119500,
	})

	first, err := a.Analyze(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := a.Analyze(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(again.CoverBids) != len(first.CoverBids) {
			t.Fatalf("run %d: cover bids differ: %v vs %v", i, again.CoverBids, first.CoverBids)
		}
		for j := range first.CoverBids {
			if again.CoverBids[j] != first.CoverBids[j] {
				t.Fatalf("run %d: cover bid %d differs: %v vs %v", i, j, again.CoverBids[j], first.CoverBids[j])
			}
		}
		if again.RiskScore != first.RiskScore {
			t.Fatalf("run %d: risk score differs: %v vs %v", i, again.RiskScore, first.RiskScore)
		}
	}
}
