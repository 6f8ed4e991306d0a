package performance

import (
	"math"
	"sort"

	"FinSight/internal/domain/models"
	domsvc "FinSight/internal/domain/service"
)

var _ domsvc.PerformanceReducer = (*Aggregator)(nil)

// Config holds the reduction thresholds and the per-class beta references.
type Config struct {
	RiskFreeRate float64

	// ReferenceAssets maps each asset class to the asset key its beta proxy is
	// correlated against, e.g. an index tracker for equities or BTC for
	// crypto. Classes without a reference produce a nil proxy.
	ReferenceAssets map[models.AssetClass]string

	// DominantSignalWindow is how many trailing snapshots vote for the
	// dominant categorical signals.
	DominantSignalWindow int

	// MinBetaObservations gates the proxy the same way correlations are gated.
	MinBetaObservations int

	// Profile thresholds on annualized return and volatility.
	HighReturnThreshold float64
	HighRiskThreshold   float64
}

// DefaultConfig returns the conventional thresholds: 10% annualized return
// and 30% annualized volatility split the four risk/return quadrants.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:         0.045,
		DominantSignalWindow: 10,
		MinBetaObservations:  20,
		HighReturnThreshold:  0.10,
		HighRiskThreshold:    0.30,
	}
}

// Aggregator reduces each asset's full indicator history to one
// current-state summary and ranks peers within each asset class. Ranking
// requires every summary to be materialized first, so Summarize is the
// barrier at the end of the per-asset fan-out.
type Aggregator struct {
	cfg Config
}

func New(cfg Config) *Aggregator {
	if cfg.DominantSignalWindow < 1 {
		cfg.DominantSignalWindow = 10
	}
	if cfg.MinBetaObservations < 2 {
		cfg.MinBetaObservations = 2
	}
	return &Aggregator{cfg: cfg}
}

// Summarize produces one summary per asset with histories keyed by asset key,
// sorted by asset key for deterministic output. The returns index supplies
// the date-aligned series for the beta proxy.
func (a *Aggregator) Summarize(histories map[string][]models.IndicatorSnapshot, index *models.ReturnsIndex) []models.PerformanceSummary {
	out := make([]models.PerformanceSummary, 0, len(histories))
	for key, history := range histories {
		if len(history) == 0 {
			continue
		}
		out = append(out, a.summarizeAsset(key, history, index))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetKey < out[j].AssetKey })

	a.rank(out)
	return out
}

func (a *Aggregator) summarizeAsset(key string, history []models.IndicatorSnapshot, index *models.ReturnsIndex) models.PerformanceSummary {
	first, last := history[0], history[len(history)-1]

	s := models.PerformanceSummary{
		AssetKey:      key,
		Class:         last.Class,
		AsOf:          last.Date,
		CurrentPrice:  last.Close,
		CurrentReturn: last.DailyReturn,
		CurrentVol:    last.Volatility,
		CurrentRSI:    last.RSI,
		SharpeRatio:   last.SharpeRatio,
		MaxDrawdown:   last.MaxDrawdown,
		DaysOfHistory: len(history),
	}

	if first.Close > 0 {
		tr := last.Close/first.Close - 1
		s.TotalReturn = &tr
	}

	period := last.Class.AnnualizationPeriod()
	if len(history) >= period && first.Close > 0 && last.Close > 0 {
		ar := math.Pow(last.Close/first.Close, float64(period)/float64(len(history))) - 1
		s.AnnualizedReturn = &ar
	}

	if sd, ok := returnStdDev(history); ok {
		av := sd * math.Sqrt(float64(period))
		s.AnnualizedVolatility = &av
	}

	s.BetaProxy = a.betaProxy(key, last.Class, index)
	s.DominantMASignal, s.DominantRSISignal = a.dominantSignals(history)
	s.RiskLevel = riskLevel(s.AnnualizedVolatility)
	s.RiskReturnProfile = a.profile(s.AnnualizedReturn, s.AnnualizedVolatility)
	return s
}

// betaProxy is the correlation of the asset's returns against its class
// reference, nil when no reference is configured, the asset is its own
// reference, or too few dates align.
func (a *Aggregator) betaProxy(key string, class models.AssetClass, index *models.ReturnsIndex) *float64 {
	ref, ok := a.cfg.ReferenceAssets[class]
	if !ok || ref == key || index == nil {
		return nil
	}
	xs, ys := index.AlignedReturns(key, ref, 0)
	if len(xs) < a.cfg.MinBetaObservations {
		return nil
	}
	corr, ok := pearson(xs, ys)
	if !ok {
		return nil
	}
	return &corr
}

// dominantSignals takes the most frequent signal over the trailing vote
// window, breaking ties in favor of the latest snapshot's value.
func (a *Aggregator) dominantSignals(history []models.IndicatorSnapshot) (models.CrossSignal, models.RSIRegime) {
	start := len(history) - a.cfg.DominantSignalWindow
	if start < 0 {
		start = 0
	}
	recent := history[start:]
	last := recent[len(recent)-1]

	maVotes := make(map[models.CrossSignal]int)
	rsiVotes := make(map[models.RSIRegime]int)
	for i := range recent {
		maVotes[recent[i].MASignal]++
		rsiVotes[recent[i].RSISignal]++
	}

	ma := last.MASignal
	for _, cand := range []models.CrossSignal{models.CrossGolden, models.CrossDeath, models.CrossNeutral} {
		if maVotes[cand] > maVotes[ma] {
			ma = cand
		}
	}
	rsi := last.RSISignal
	for _, cand := range []models.RSIRegime{
		models.RSIExtremeOverbought, models.RSIOverbought,
		models.RSIExtremeOversold, models.RSIOversold, models.RSINeutral,
	} {
		if rsiVotes[cand] > rsiVotes[rsi] {
			rsi = cand
		}
	}
	return ma, rsi
}

func (a *Aggregator) profile(annReturn, annVol *float64) models.RiskReturnProfile {
	if annReturn == nil || annVol == nil {
		return models.ProfileUnclassified
	}
	highReturn := *annReturn > a.cfg.HighReturnThreshold
	highRisk := *annVol > a.cfg.HighRiskThreshold
	switch {
	case highReturn && !highRisk:
		return models.ProfileHighReturnLowRisk
	case highReturn:
		return models.ProfileHighReturnHighRisk
	case !highRisk:
		return models.ProfileLowReturnLowRisk
	default:
		return models.ProfileLowReturnHighRisk
	}
}

func riskLevel(annVol *float64) models.RiskLevel {
	switch {
	case annVol != nil && *annVol > 0.5:
		return models.RiskHigh
	case annVol != nil && *annVol > 0.3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// rank assigns 1-based ranks among same-class peers per criterion. Assets
// whose criterion is nil sort last; ties break by asset key so repeated runs
// rank identically.
func (a *Aggregator) rank(summaries []models.PerformanceSummary) {
	byClass := make(map[models.AssetClass][]*models.PerformanceSummary)
	for i := range summaries {
		s := &summaries[i]
		byClass[s.Class] = append(byClass[s.Class], s)
	}

	for _, peers := range byClass {
		assign(peers, func(s *models.PerformanceSummary) *float64 { return s.TotalReturn }, true,
			func(s *models.PerformanceSummary, r int) { s.RankTotalReturn = r })
		assign(peers, func(s *models.PerformanceSummary) *float64 { return s.AnnualizedReturn }, true,
			func(s *models.PerformanceSummary, r int) { s.RankAnnualizedReturn = r })
		assign(peers, func(s *models.PerformanceSummary) *float64 { return s.AnnualizedVolatility }, false,
			func(s *models.PerformanceSummary, r int) { s.RankLowVolatility = r })
		assign(peers, func(s *models.PerformanceSummary) *float64 { return s.SharpeRatio }, true,
			func(s *models.PerformanceSummary, r int) { s.RankSharpe = r })
	}
}

func assign(peers []*models.PerformanceSummary, value func(*models.PerformanceSummary) *float64, descending bool, set func(*models.PerformanceSummary, int)) {
	order := make([]*models.PerformanceSummary, len(peers))
	copy(order, peers)
	sort.SliceStable(order, func(i, j int) bool {
		vi, vj := value(order[i]), value(order[j])
		switch {
		case vi == nil && vj == nil:
			return order[i].AssetKey < order[j].AssetKey
		case vi == nil:
			return false
		case vj == nil:
			return true
		case *vi != *vj:
			if descending {
				return *vi > *vj
			}
			return *vi < *vj
		default:
			return order[i].AssetKey < order[j].AssetKey
		}
	})
	for i, s := range order {
		set(s, i+1)
	}
}

func returnStdDev(history []models.IndicatorSnapshot) (float64, bool) {
	var sum float64
	var n int
	for i := range history {
		if history[i].DailyReturn != nil {
			sum += *history[i].DailyReturn
			n++
		}
	}
	if n < 2 {
		return 0, false
	}
	mean := sum / float64(n)
	var ss float64
	for i := range history {
		if history[i].DailyReturn != nil {
			d := *history[i].DailyReturn - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1)), true
}

func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	corr := cov / math.Sqrt(varX*varY)
	return corr, true
}
