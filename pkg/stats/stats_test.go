package stats

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{5}, want: 5},
		{name: "several", values: []float64{1, 2, 3, 4}, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.values); !almostEqual(got, tt.want) {
				t.Errorf("Mean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "constant", values: []float64{3, 3, 3}, want: 0},
		{name: "population", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StdDev(tt.values); !almostEqual(got, tt.want) {
				t.Errorf("StdDev() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "odd count", values: []float64{3, 1, 2}, want: 2},
		{name: "even count", values: []float64{4, 1, 3, 2}, want: 2.5},
		{name: "single", values: []float64{9}, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.values); !almostEqual(got, tt.want) {
				t.Errorf("Median() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	if got := CoefficientOfVariation([]float64{5, 5, 5}); got != 0 {
		t.Errorf("constant values: CV = %v, want 0", got)
	}
	if got := CoefficientOfVariation([]float64{0, 0}); got != 0 {
		t.Errorf("zero mean: CV = %v, want 0", got)
	}
	if got := CoefficientOfVariation([]float64{1, 3}); !almostEqual(got, 0.5) {
		t.Errorf("CV = %v, want 0.5", got)
	}
	if got := CoefficientOfVariation([]float64{100, 120, 140}); got < 0 {
		t.Errorf("CV must be non-negative, got %v", got)
	}
}

func TestZScores(t *testing.T) {
	t.Run("constant input yields all zeros", func(t *testing.T) {
		got := ZScores([]float64{7, 7, 7})
		for i, z := range got {
			if z != 0 {
				t.Errorf("ZScores()[%d] = %v, want 0", i, z)
			}
		}
	})

	t.Run("symmetric values", func(t *testing.T) {
		got := ZScores([]float64{1, 2, 3})
		want := []float64{-math.Sqrt(1.5), 0, math.Sqrt(1.5)}
		for i := range want {
			if !almostEqual(got[i], want[i]) {
				t.Errorf("ZScores()[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})
}

func TestPercentileAndIQRBounds(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	if got := Percentile(values, 25); !almostEqual(got, 2.75) {
		t.Errorf("Percentile(25) = %v, want 2.75", got)
	}
	if got := Percentile(values, 75); !almostEqual(got, 6.25) {
		t.Errorf("Percentile(75) = %v, want 6.25", got)
	}

	lower, upper := IQRBounds(values)
	if !almostEqual(lower, 2.75-1.5*3.5) {
		t.Errorf("IQR lower bound = %v, want %v", lower, 2.75-1.5*3.5)
	}
	if !almostEqual(upper, 6.25+1.5*3.5) {
		t.Errorf("IQR upper bound = %v, want %v", upper, 6.25+1.5*3.5)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 2}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{0.3, 0.1, 0.9, 0.2}
	b := []float32{0.25, 0.15, 0.85, 0.3}
	if got, rev := Cosine32(a, b), Cosine32(b, a); !almostEqual(got, rev) {
		t.Errorf("Cosine32 not symmetric: %v vs %v", got, rev)
	}
	if got := Cosine32(a, a); !almostEqual(got, 1) {
		t.Errorf("Cosine32(a,a) = %v, want 1", got)
	}
}
