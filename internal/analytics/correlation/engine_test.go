package correlation

import (
	"math"
	"testing"
	"time"

	"FinSight/internal/domain/models"
)

func buildIndex(t *testing.T, series map[string][]float64) *models.ReturnsIndex {
	t.Helper()
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ix := models.NewReturnsIndex()
	for key, returns := range series {
		for i, r := range returns {
			ix.Add(key, models.ClassEquity, base.AddDate(0, 0, i), r)
		}
	}
	return ix
}

func findPair(pairs []models.CorrelationPair, a, b string) *models.CorrelationPair {
	for i := range pairs {
		if pairs[i].Asset1 == a && pairs[i].Asset2 == b {
			return &pairs[i]
		}
	}
	return nil
}

func TestIdenticalReturnsCorrelateToOne(t *testing.T) {
	returns := make([]float64, 30)
	for i := range returns {
		returns[i] = 0.01 * float64(i%5-2)
	}
	ix := buildIndex(t, map[string][]float64{"AAA": returns, "BBB": returns})

	asOf := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	pairs := New(DefaultConfig(asOf)).Compute(ix)

	ab := findPair(pairs, "AAA", "BBB")
	if ab == nil {
		t.Fatal("expected AAA/BBB pair")
	}
	if math.Abs(ab.Correlation-1.0) > 1e-9 {
		t.Fatalf("identical returns: got corr %v, want 1.0", ab.Correlation)
	}
	if ab.Observations != 30 {
		t.Fatalf("observations: got %d, want 30", ab.Observations)
	}
	if ab.Strength != models.StrengthSignificant {
		t.Fatalf("strength: got %q, want %q", ab.Strength, models.StrengthSignificant)
	}
	if ab.Relationship != models.RelStrongPositive {
		t.Fatalf("relationship: got %q, want %q", ab.Relationship, models.RelStrongPositive)
	}
	if !ab.AsOf.Equal(asOf) {
		t.Fatalf("as-of: got %v, want %v", ab.AsOf, asOf)
	}
}

func TestSymmetricAndNoSelfPairs(t *testing.T) {
	a := make([]float64, 40)
	b := make([]float64, 40)
	for i := range a {
		a[i] = math.Sin(float64(i)) * 0.02
		b[i] = a[i]*0.7 + math.Cos(float64(i))*0.005
	}
	ix := buildIndex(t, map[string][]float64{"AAA": a, "BBB": b})
	pairs := New(DefaultConfig(time.Now())).Compute(ix)

	ab := findPair(pairs, "AAA", "BBB")
	ba := findPair(pairs, "BBB", "AAA")
	if ab == nil || ba == nil {
		t.Fatal("expected the pair in both directions")
	}
	if ab.Correlation != ba.Correlation {
		t.Fatalf("asymmetric coefficients: %v vs %v", ab.Correlation, ba.Correlation)
	}
	if findPair(pairs, "AAA", "AAA") != nil || findPair(pairs, "BBB", "BBB") != nil {
		t.Fatal("self-pairs must never be emitted")
	}
}

func TestObservationFloor(t *testing.T) {
	short := []float64{0.01, -0.01, 0.02, 0.01, -0.02}
	ix := buildIndex(t, map[string][]float64{"AAA": short, "BBB": short})
	pairs := New(DefaultConfig(time.Now())).Compute(ix)
	if len(pairs) != 0 {
		t.Fatalf("pairs below the observation floor must not be emitted, got %d", len(pairs))
	}
}

func TestNearZeroCorrelationFiltered(t *testing.T) {
	a := make([]float64, 60)
	b := make([]float64, 60)
	for i := range a {
		// Orthogonal over full periods, so the coefficient sits near zero.
		a[i] = math.Sin(2 * math.Pi * float64(i) / 30)
		b[i] = math.Cos(2 * math.Pi * float64(i) / 30)
	}
	ix := buildIndex(t, map[string][]float64{"AAA": a, "BBB": b})
	pairs := New(DefaultConfig(time.Now())).Compute(ix)
	if p := findPair(pairs, "AAA", "BBB"); p != nil {
		t.Fatalf("near-zero correlation %v should be filtered", p.Correlation)
	}
}

func TestZeroVarianceSkipped(t *testing.T) {
	flat := make([]float64, 40)
	noisy := make([]float64, 40)
	for i := range noisy {
		noisy[i] = 0.01 * float64(i%3-1)
	}
	ix := buildIndex(t, map[string][]float64{"FLAT": flat, "BBB": noisy})
	pairs := New(DefaultConfig(time.Now())).Compute(ix)
	if len(pairs) != 0 {
		t.Fatalf("undefined coefficient must be skipped, got %d pairs", len(pairs))
	}
}

func TestSignProxyMode(t *testing.T) {
	a := make([]float64, 25)
	b := make([]float64, 25)
	for i := range a {
		a[i] = 0.01
		b[i] = 0.02
	}
	cfg := DefaultConfig(time.Now())
	cfg.Method = models.MethodSignProxy
	pairs := New(cfg).Compute(buildIndex(t, map[string][]float64{"AAA": a, "BBB": b}))

	ab := findPair(pairs, "AAA", "BBB")
	if ab == nil {
		t.Fatal("expected AAA/BBB pair")
	}
	if ab.Method != models.MethodSignProxy {
		t.Fatalf("method: got %q, want %q", ab.Method, models.MethodSignProxy)
	}
	if ab.Correlation != 0.5 {
		t.Fatalf("same-sign latest returns: got %v, want 0.5", ab.Correlation)
	}

	b[len(b)-1] = -0.02
	pairs = New(cfg).Compute(buildIndex(t, map[string][]float64{"AAA": a, "BBB": b}))
	if ab = findPair(pairs, "AAA", "BBB"); ab == nil || ab.Correlation != -0.5 {
		t.Fatalf("opposite-sign latest returns should give -0.5, got %+v", ab)
	}
}
