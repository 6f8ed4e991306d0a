package models

import "time"

// RiskLevel is the coarse volatility bucket: annualized volatility above 0.5
// is High, above 0.3 Medium, else Low.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// RiskReturnProfile is the categorical profile from fixed thresholds on
// annualized return and volatility.
type RiskReturnProfile string

const (
	ProfileHighReturnLowRisk  RiskReturnProfile = "High Return, Low Risk"
	ProfileHighReturnHighRisk RiskReturnProfile = "High Return, High Risk"
	ProfileLowReturnLowRisk   RiskReturnProfile = "Low Return, Low Risk"
	ProfileLowReturnHighRisk  RiskReturnProfile = "Low Return, High Risk"
	ProfileUnclassified       RiskReturnProfile = "Unclassified"
)

// PerformanceSummary reduces one asset's full indicator history to a single
// current-state row with rankings among same-class peers.
type PerformanceSummary struct {
	AssetKey  string
	AssetName string
	Class     AssetClass
	AsOf      time.Time

	CurrentPrice  float64
	CurrentReturn *float64
	CurrentVol    *float64
	CurrentRSI    *float64

	TotalReturn          *float64
	AnnualizedReturn     *float64
	AnnualizedVolatility *float64
	SharpeRatio          *float64
	MaxDrawdown          *float64
	BetaProxy            *float64

	DominantMASignal  CrossSignal
	DominantRSISignal RSIRegime

	DaysOfHistory int

	RankTotalReturn      int
	RankAnnualizedReturn int
	RankLowVolatility    int
	RankSharpe           int

	RiskLevel         RiskLevel
	RiskReturnProfile RiskReturnProfile
}
