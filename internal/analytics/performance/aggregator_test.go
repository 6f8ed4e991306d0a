package performance

import (
	"math"
	"testing"
	"time"

	"FinSight/internal/domain/models"
)

func history(key string, class models.AssetClass, closes []float64) []models.IndicatorSnapshot {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	snaps := make([]models.IndicatorSnapshot, 0, len(closes))
	for i, c := range closes {
		s := models.IndicatorSnapshot{
			AssetKey:  key,
			Class:     class,
			Date:      base.AddDate(0, 0, i),
			Close:     c,
			MASignal:  models.CrossNeutral,
			RSISignal: models.RSINeutral,
		}
		if i > 0 && closes[i-1] > 0 {
			r := c/closes[i-1] - 1
			s.DailyReturn = &r
		}
		snaps = append(snaps, s)
	}
	return snaps
}

func growth(start, daily float64, n int) []float64 {
	closes := make([]float64, n)
	p := start
	for i := range closes {
		closes[i] = p
		p *= 1 + daily
	}
	return closes
}

func approx(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %v", name, want)
	}
	if math.Abs(*got-want) > 1e-9 {
		t.Fatalf("%s: got %v, want %v", name, *got, want)
	}
}

func TestTotalAndAnnualizedReturn(t *testing.T) {
	closes := growth(100, 0.001, 300)
	summaries := New(DefaultConfig()).Summarize(map[string][]models.IndicatorSnapshot{
		"AAA": history("AAA", models.ClassEquity, closes),
	}, nil)

	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	last, first := closes[len(closes)-1], closes[0]
	approx(t, "total return", s.TotalReturn, last/first-1)
	approx(t, "annualized return", s.AnnualizedReturn, math.Pow(last/first, 252.0/300.0)-1)
	if s.DaysOfHistory != 300 {
		t.Fatalf("days of history: got %d, want 300", s.DaysOfHistory)
	}
}

func TestAnnualizedReturnNeedsFullPeriod(t *testing.T) {
	summaries := New(DefaultConfig()).Summarize(map[string][]models.IndicatorSnapshot{
		"AAA": history("AAA", models.ClassEquity, growth(100, 0.001, 100)),
	}, nil)
	if s := summaries[0]; s.AnnualizedReturn != nil {
		t.Fatalf("under one period of history should give nil, got %v", *s.AnnualizedReturn)
	}
}

func TestClassRankings(t *testing.T) {
	histories := map[string][]models.IndicatorSnapshot{
		"WIN":  history("WIN", models.ClassEquity, growth(100, 0.002, 50)),
		"LOSE": history("LOSE", models.ClassEquity, growth(100, -0.002, 50)),
		"COIN": history("COIN", models.ClassCrypto, growth(100, 0.005, 50)),
	}
	summaries := New(DefaultConfig()).Summarize(histories, nil)

	byKey := make(map[string]models.PerformanceSummary)
	for _, s := range summaries {
		byKey[s.AssetKey] = s
	}
	if byKey["WIN"].RankTotalReturn != 1 || byKey["LOSE"].RankTotalReturn != 2 {
		t.Fatalf("equity total-return ranks: WIN=%d LOSE=%d",
			byKey["WIN"].RankTotalReturn, byKey["LOSE"].RankTotalReturn)
	}
	// Ranks are within class, so the lone crypto asset is first of its peers.
	if byKey["COIN"].RankTotalReturn != 1 {
		t.Fatalf("crypto rank: got %d, want 1", byKey["COIN"].RankTotalReturn)
	}
	if byKey["WIN"].RankSharpe == 0 || byKey["WIN"].RankLowVolatility == 0 {
		t.Fatal("all rank criteria must be assigned")
	}
}

func TestBetaProxyAgainstReference(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	ix := models.NewReturnsIndex()
	for i := 0; i < 40; i++ {
		r := 0.01 * float64(i%5-2)
		ix.Add("AAA", models.ClassEquity, base.AddDate(0, 0, i), r)
		ix.Add("REF", models.ClassEquity, base.AddDate(0, 0, i), r)
	}

	cfg := DefaultConfig()
	cfg.ReferenceAssets = map[models.AssetClass]string{models.ClassEquity: "REF"}
	summaries := New(cfg).Summarize(map[string][]models.IndicatorSnapshot{
		"AAA": history("AAA", models.ClassEquity, growth(100, 0.001, 40)),
		"REF": history("REF", models.ClassEquity, growth(100, 0.001, 40)),
	}, ix)

	for _, s := range summaries {
		switch s.AssetKey {
		case "AAA":
			approx(t, "beta proxy vs identical reference", s.BetaProxy, 1.0)
		case "REF":
			if s.BetaProxy != nil {
				t.Fatalf("reference against itself should give nil, got %v", *s.BetaProxy)
			}
		}
	}
}

func TestRiskReturnProfile(t *testing.T) {
	// Steady strong growth with almost no variance: high return, low risk.
	closes := growth(100, 0.001, 300)
	summaries := New(DefaultConfig()).Summarize(map[string][]models.IndicatorSnapshot{
		"AAA": history("AAA", models.ClassEquity, closes),
	}, nil)
	s := summaries[0]
	if s.RiskReturnProfile != models.ProfileHighReturnLowRisk {
		t.Fatalf("profile: got %q, want %q", s.RiskReturnProfile, models.ProfileHighReturnLowRisk)
	}
	if s.RiskLevel != models.RiskLow {
		t.Fatalf("risk level: got %q, want %q", s.RiskLevel, models.RiskLow)
	}
}

func TestShortHistoryIsUnclassified(t *testing.T) {
	summaries := New(DefaultConfig()).Summarize(map[string][]models.IndicatorSnapshot{
		"AAA": history("AAA", models.ClassEquity, growth(100, 0.001, 10)),
	}, nil)
	if s := summaries[0]; s.RiskReturnProfile != models.ProfileUnclassified {
		t.Fatalf("profile: got %q, want %q", s.RiskReturnProfile, models.ProfileUnclassified)
	}
}

func TestDominantSignals(t *testing.T) {
	snaps := history("AAA", models.ClassEquity, growth(100, 0.001, 12))
	for i := range snaps {
		if i >= 2 {
			snaps[i].MASignal = models.CrossGolden
		}
		snaps[i].RSISignal = models.RSINeutral
	}
	snaps[len(snaps)-1].MASignal = models.CrossDeath

	summaries := New(DefaultConfig()).Summarize(map[string][]models.IndicatorSnapshot{"AAA": snaps}, nil)
	if s := summaries[0]; s.DominantMASignal != models.CrossGolden {
		t.Fatalf("dominant MA signal: got %q, want %q", s.DominantMASignal, models.CrossGolden)
	}
}
