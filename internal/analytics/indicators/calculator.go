package indicators

import (
	"math"

	"FinSight/internal/analytics/window"
	"FinSight/internal/domain/models"
	domsvc "FinSight/internal/domain/service"
)

var _ domsvc.SnapshotCalculator = (*Calculator)(nil)

// Config holds the window sizes and rates for one asset class. All windows
// are counts of available observations, never calendar spans.
type Config struct {
	MAWindows        []int
	ShortMAWindow    int
	LongMAWindow     int
	VolumeWindow     int
	VolatilityWindow int
	RSIPeriod        int
	BollingerWindow  int
	BollingerK       float64
	AnnualPeriod     int
	RiskFreeRate     float64
	ExtremeRSIBands  bool
}

// DefaultConfig returns the conventional windows for an asset class: 20/50/200
// day classes for equities, 7/30/90 for crypto and economic series.
func DefaultConfig(class models.AssetClass) Config {
	cfg := Config{
		BollingerWindow: 20,
		BollingerK:      2,
		RSIPeriod:       14,
		RiskFreeRate:    0.045,
		AnnualPeriod:    class.AnnualizationPeriod(),
	}
	switch class {
	case models.ClassCrypto:
		cfg.MAWindows = []int{7, 30, 90}
		cfg.ShortMAWindow = 7
		cfg.LongMAWindow = 30
		cfg.VolumeWindow = 30
		cfg.VolatilityWindow = 30
	case models.ClassEconomic:
		cfg.MAWindows = []int{3, 12}
		cfg.ShortMAWindow = 3
		cfg.LongMAWindow = 12
		cfg.VolumeWindow = 12
		cfg.VolatilityWindow = 12
	default:
		cfg.MAWindows = []int{20, 50, 200}
		cfg.ShortMAWindow = 20
		cfg.LongMAWindow = 50
		cfg.VolumeWindow = 20
		cfg.VolatilityWindow = 20
	}
	return cfg
}

// Calculator derives the indicator history for one asset sequence in a single
// left-to-right pass, using one rolling window engine per (metric, window)
// pair.
type Calculator struct {
	cfg Config
}

// New creates a calculator. The signal pair windows are added to MAWindows if
// missing, so the cross signal always has its inputs.
func New(cfg Config) *Calculator {
	if cfg.BollingerK <= 0 {
		cfg.BollingerK = 2
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.AnnualPeriod <= 0 {
		cfg.AnnualPeriod = 252
	}
	cfg.MAWindows = ensureWindow(cfg.MAWindows, cfg.ShortMAWindow)
	cfg.MAWindows = ensureWindow(cfg.MAWindows, cfg.LongMAWindow)
	return &Calculator{cfg: cfg}
}

func ensureWindow(windows []int, w int) []int {
	if w <= 0 {
		return windows
	}
	for _, have := range windows {
		if have == w {
			return windows
		}
	}
	return append(windows, w)
}

// Compute produces one immutable snapshot per canonical point. Metrics whose
// smallest viable window exceeds the available history are nil, never an
// error: a single-observation asset yields a snapshot where return,
// volatility, RSI, Sharpe, and drawdown are all nil.
func (c *Calculator) Compute(points []models.CanonicalSeriesPoint) []models.IndicatorSnapshot {
	if len(points) == 0 {
		return nil
	}

	maEngines := make(map[int]*window.Engine, len(c.cfg.MAWindows))
	for _, w := range c.cfg.MAWindows {
		maEngines[w] = window.New(w)
	}
	volumeEng := window.New(c.cfg.VolumeWindow)
	volEng := window.New(c.cfg.VolatilityWindow)
	gainEng := window.New(c.cfg.RSIPeriod)
	lossEng := window.New(c.cfg.RSIPeriod)
	bollEng := window.New(c.cfg.BollingerWindow)
	sharpeEng := window.New(c.cfg.AnnualPeriod)
	ddEng := window.New(c.cfg.AnnualPeriod)

	out := make([]models.IndicatorSnapshot, 0, len(points))
	var prevClose float64

	for i, p := range points {
		snap := models.IndicatorSnapshot{
			AssetKey:  p.AssetKey,
			Class:     p.Class,
			Date:      p.Date,
			Close:     p.Close,
			Volume:    p.Volume,
			MovingAvg: make(map[int]*float64, len(maEngines)),
			MASignal:  models.CrossNeutral,
			RSISignal: models.RSINeutral,
		}

		if i > 0 && prevClose != 0 {
			r := p.Close/prevClose - 1
			snap.DailyReturn = &r
		}
		prevClose = p.Close

		for w, eng := range maEngines {
			s := eng.Push(p.Close)
			mean := s.Mean
			snap.MovingAvg[w] = &mean
		}
		vs := volumeEng.Push(p.Volume)
		vma := vs.Mean
		snap.VolumeMA = &vma

		bs := bollEng.Push(p.Close)
		if bs.StdDev != nil {
			mid := bs.Mean
			up := mid + c.cfg.BollingerK**bs.StdDev
			low := mid - c.cfg.BollingerK**bs.StdDev
			snap.BollingerMid = &mid
			snap.BollingerUp = &up
			snap.BollingerLow = &low
		}

		dds := ddEng.Push(p.Close)
		if dds.Count >= 2 && dds.Max != 0 {
			dd := p.Close/dds.Max - 1
			snap.MaxDrawdown = &dd
		}

		if snap.DailyReturn != nil {
			r := *snap.DailyReturn
			rs := volEng.Push(r)
			if rs.StdDev != nil {
				snap.Volatility = ptr(*rs.StdDev)
			}

			gs := gainEng.Push(math.Max(r, 0))
			ls := lossEng.Push(math.Max(-r, 0))
			snap.RSI = ptr(rsiValue(gs.Mean, ls.Mean))

			ss := sharpeEng.Push(r)
			if ss.StdDev != nil && *ss.StdDev > 0 {
				period := float64(c.cfg.AnnualPeriod)
				annMean := ss.Mean * period
				annSD := *ss.StdDev * math.Sqrt(period)
				snap.SharpeRatio = ptr((annMean - c.cfg.RiskFreeRate) / annSD)
			}
		}

		snap.MASignal = crossSignal(snap.MA(c.cfg.ShortMAWindow), snap.MA(c.cfg.LongMAWindow))
		snap.RSISignal = rsiRegime(snap.RSI, c.cfg.ExtremeRSIBands)

		out = append(out, snap)
	}
	return out
}

// rsiValue applies the RSI edge cases in their required order: an all-gain
// window saturates to 100 before the zero-gain check can fire.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	if avgGain == 0 {
		return 0
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

func crossSignal(short, long *float64) models.CrossSignal {
	if short == nil || long == nil {
		return models.CrossNeutral
	}
	switch {
	case *short > *long:
		return models.CrossGolden
	case *short < *long:
		return models.CrossDeath
	default:
		return models.CrossNeutral
	}
}

func rsiRegime(rsi *float64, extreme bool) models.RSIRegime {
	if rsi == nil {
		return models.RSINeutral
	}
	v := *rsi
	if extreme {
		switch {
		case v > 80:
			return models.RSIExtremeOverbought
		case v < 20:
			return models.RSIExtremeOversold
		}
	}
	switch {
	case v > 70:
		return models.RSIOverbought
	case v < 30:
		return models.RSIOversold
	default:
		return models.RSINeutral
	}
}

func ptr(v float64) *float64 { return &v }
