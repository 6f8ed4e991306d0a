package models

import "time"

// CorrelationMethod selects how pairwise correlation is computed. The two
// modes are never mixed within one run.
type CorrelationMethod string

const (
	// MethodPearson is the statistically rigorous Pearson coefficient over
	// date-aligned daily returns.
	MethodPearson CorrelationMethod = "pearson"
	// MethodSignProxy is a coarse heuristic: +0.5 when the latest aligned
	// returns share a sign, else -0.5, irrespective of magnitude or sample
	// size.
	MethodSignProxy CorrelationMethod = "signproxy"
)

// CorrelationStrength classifies sample confidence.
type CorrelationStrength string

const (
	StrengthSignificant CorrelationStrength = "Significant"
	StrengthModerate    CorrelationStrength = "Moderate"
	StrengthWeak        CorrelationStrength = "Weak"
)

// Relationship buckets the coefficient at the +/-0.7/0.3/0.1 boundaries.
type Relationship string

const (
	RelStrongPositive   Relationship = "Strong Positive"
	RelModeratePositive Relationship = "Moderate Positive"
	RelWeakPositive     Relationship = "Weak Positive"
	RelStrongNegative   Relationship = "Strong Negative"
	RelModerateNegative Relationship = "Moderate Negative"
	RelWeakNegative     Relationship = "Weak Negative"
	RelNone             Relationship = "No Correlation"
)

// CorrelationPair is the correlation of daily returns between two distinct
// assets over a trailing window, as of AsOf. Pairs are emitted in both
// directions with identical coefficients; (a,a) is never emitted.
type CorrelationPair struct {
	Asset1       string
	Asset2       string
	AsOf         time.Time
	Method       CorrelationMethod
	Correlation  float64
	Observations int
	Strength     CorrelationStrength
	Relationship Relationship
}
