package indicators

import (
	"math"
	"testing"
	"time"

	"FinSight/internal/domain/models"
)

func seq(closes ...float64) []models.CanonicalSeriesPoint {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.CanonicalSeriesPoint, 0, len(closes))
	for i, c := range closes {
		points = append(points, models.CanonicalSeriesPoint{
			AssetKey: "TEST",
			Class:    models.ClassEquity,
			Date:     base.AddDate(0, 0, i),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1000,
		})
	}
	return points
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

func TestSteadyClimb(t *testing.T) {
	cfg := DefaultConfig(models.ClassEquity)
	cfg.ShortMAWindow = 2
	cfg.LongMAWindow = 50
	snaps := New(cfg).Compute(seq(100, 105, 110.25))

	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].DailyReturn != nil {
		t.Fatalf("first return should be nil, got %v", *snaps[0].DailyReturn)
	}
	approx(t, "return day 2", snaps[1].DailyReturn, 0.05)
	approx(t, "return day 3", snaps[2].DailyReturn, 0.05)
	approx(t, "RSI after gains only", snaps[2].RSI, 100)
	approx(t, "MA(2) day 3", snaps[2].MA(2), 107.625)
	if snaps[2].RSISignal != models.RSIOverbought {
		t.Fatalf("RSI signal: got %q, want %q", snaps[2].RSISignal, models.RSIOverbought)
	}
}

func TestSingleObservation(t *testing.T) {
	snaps := New(DefaultConfig(models.ClassEquity)).Compute(seq(100))
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	s := snaps[0]
	if s.DailyReturn != nil || s.Volatility != nil || s.RSI != nil ||
		s.SharpeRatio != nil || s.MaxDrawdown != nil {
		t.Fatalf("window metrics should all be nil on a single observation: %+v", s)
	}
	approx(t, "MA(20) day 1", s.MA(20), 100)
	if s.MASignal != models.CrossNeutral {
		t.Fatalf("cross signal: got %q, want %q", s.MASignal, models.CrossNeutral)
	}
}

func TestRSIEdgeOrder(t *testing.T) {
	cfg := DefaultConfig(models.ClassEquity)
	calc := New(cfg)

	down := calc.Compute(seq(100, 95, 90))
	approx(t, "RSI after losses only", down[2].RSI, 0)
	if down[2].RSISignal != models.RSIOversold {
		t.Fatalf("RSI signal: got %q, want %q", down[2].RSISignal, models.RSIOversold)
	}

	// One gain of 10% and one loss of 5% on the same base leaves
	// RS = avgGain/avgLoss computed from the raw relative moves.
	mixed := calc.Compute(seq(100, 110, 104.5))
	gain, loss := 0.10, 0.05
	want := 100 - 100/(1+gain/loss)
	approx(t, "RSI mixed", mixed[2].RSI, want)
}

func TestFlatSeriesHasNoSharpe(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50
	}
	snaps := New(DefaultConfig(models.ClassEquity)).Compute(seq(closes...))
	last := snaps[len(snaps)-1]
	if last.SharpeRatio != nil {
		t.Fatalf("Sharpe on zero-variance returns should be nil, got %v", *last.SharpeRatio)
	}
	approx(t, "volatility of flat series", last.Volatility, 0)
}

func TestMaxDrawdownFromTrailingPeak(t *testing.T) {
	snaps := New(DefaultConfig(models.ClassEquity)).Compute(seq(100, 110, 99))
	approx(t, "drawdown at peak", snaps[1].MaxDrawdown, 0)
	approx(t, "drawdown after fall", snaps[2].MaxDrawdown, 99.0/110.0-1)
}

func TestBollingerBands(t *testing.T) {
	cfg := DefaultConfig(models.ClassEquity)
	cfg.BollingerWindow = 3
	snaps := New(cfg).Compute(seq(10, 12, 14))
	last := snaps[2]

	mean := 12.0
	sd := math.Sqrt(((10-mean)*(10-mean) + (12-mean)*(12-mean) + (14-mean)*(14-mean)) / 2)
	approx(t, "bollinger mid", last.BollingerMid, mean)
	approx(t, "bollinger up", last.BollingerUp, mean+2*sd)
	approx(t, "bollinger low", last.BollingerLow, mean-2*sd)

	if snaps[0].BollingerMid != nil {
		t.Fatalf("bands need at least two points, got mid %v", *snaps[0].BollingerMid)
	}
}

func TestCrossSignals(t *testing.T) {
	cfg := DefaultConfig(models.ClassEquity)
	cfg.ShortMAWindow = 2
	cfg.LongMAWindow = 4
	calc := New(cfg)

	up := calc.Compute(seq(10, 10, 10, 10, 12, 14))
	if got := up[len(up)-1].MASignal; got != models.CrossGolden {
		t.Fatalf("rising short MA: got %q, want %q", got, models.CrossGolden)
	}
	down := calc.Compute(seq(14, 14, 14, 14, 12, 10))
	if got := down[len(down)-1].MASignal; got != models.CrossDeath {
		t.Fatalf("falling short MA: got %q, want %q", got, models.CrossDeath)
	}
}

func TestExtremeRSIBands(t *testing.T) {
	cfg := DefaultConfig(models.ClassEquity)
	cfg.ExtremeRSIBands = true
	snaps := New(cfg).Compute(seq(100, 105, 110, 115))
	if got := snaps[3].RSISignal; got != models.RSIExtremeOverbought {
		t.Fatalf("RSI 100 with extreme bands: got %q, want %q", got, models.RSIExtremeOverbought)
	}
}
