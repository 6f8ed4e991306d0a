package correlation

import (
	"math"
	"time"

	"FinSight/internal/domain/models"
	domsvc "FinSight/internal/domain/service"
)

var _ domsvc.Correlator = (*Engine)(nil)

// Config bounds the pairwise computation.
type Config struct {
	// Method picks the coefficient. The two modes are explicitly named and
	// never mixed within a run; pearson is the default.
	Method models.CorrelationMethod

	// WindowObservations caps the trailing number of paired daily returns,
	// conventionally a year.
	WindowObservations int

	// MinObservations is the floor below which a pair is never emitted.
	MinObservations int

	// MinAbsCorrelation filters near-zero coefficients out of the output.
	MinAbsCorrelation float64

	AsOf time.Time
}

// DefaultConfig returns the conventional trailing-year Pearson setup.
func DefaultConfig(asOf time.Time) Config {
	return Config{
		Method:             models.MethodPearson,
		WindowObservations: 252,
		MinObservations:    20,
		MinAbsCorrelation:  0.1,
		AsOf:               asOf,
	}
}

// Engine computes pairwise return correlations across every tracked asset
// from a prebuilt returns index, so the O(assets^2) stage never re-scans
// source sequences.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.Method == "" {
		cfg.Method = models.MethodPearson
	}
	if cfg.MinObservations < 2 {
		cfg.MinObservations = 2
	}
	return &Engine{cfg: cfg}
}

// Compute emits every qualifying pair in both directions with identical
// coefficients. Self-pairs are never emitted; pairs below the observation
// floor or inside the +/-MinAbsCorrelation band are dropped, not zeroed.
func (e *Engine) Compute(index *models.ReturnsIndex) []models.CorrelationPair {
	assets := index.Assets()
	var out []models.CorrelationPair

	for i := 0; i < len(assets); i++ {
		for j := i + 1; j < len(assets); j++ {
			a, b := assets[i], assets[j]
			xs, ys := index.AlignedReturns(a, b, e.cfg.WindowObservations)
			if len(xs) < e.cfg.MinObservations {
				continue
			}

			corr, ok := e.coefficient(xs, ys)
			if !ok || math.Abs(corr) <= e.cfg.MinAbsCorrelation {
				continue
			}

			pair := models.CorrelationPair{
				Asset1:       a,
				Asset2:       b,
				AsOf:         e.cfg.AsOf,
				Method:       e.cfg.Method,
				Correlation:  corr,
				Observations: len(xs),
				Strength:     strength(corr, len(xs)),
				Relationship: relationship(corr),
			}
			mirror := pair
			mirror.Asset1, mirror.Asset2 = b, a
			out = append(out, pair, mirror)
		}
	}
	return out
}

func (e *Engine) coefficient(xs, ys []float64) (float64, bool) {
	if e.cfg.Method == models.MethodSignProxy {
		return signProxy(xs, ys), true
	}
	return pearson(xs, ys)
}

// pearson returns false when either series has zero variance, since the
// coefficient is undefined there.
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
	return cov / math.Sqrt(varX*varY), true
}

// signProxy looks only at the latest aligned pair of returns: +0.5 when they
// share a strict sign, else -0.5. A zero return never counts as agreement.
func signProxy(xs, ys []float64) float64 {
	last := len(xs) - 1
	if xs[last]*ys[last] > 0 {
		return 0.5
	}
	return -0.5
}

func strength(corr float64, obs int) models.CorrelationStrength {
	abs := math.Abs(corr)
	switch {
	case obs >= 30 && abs > 0.3:
		return models.StrengthSignificant
	case obs >= 30 && abs > 0.1:
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}

func relationship(corr float64) models.Relationship {
	abs := math.Abs(corr)
	positive := corr > 0
	switch {
	case abs > 0.7 && positive:
		return models.RelStrongPositive
	case abs > 0.7:
		return models.RelStrongNegative
	case abs > 0.3 && positive:
		return models.RelModeratePositive
	case abs > 0.3:
		return models.RelModerateNegative
	case abs > 0.1 && positive:
		return models.RelWeakPositive
	case abs > 0.1:
		return models.RelWeakNegative
	default:
		return models.RelNone
	}
}
