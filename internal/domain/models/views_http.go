package models

// Requests for the read-only result views. Defined in domain for consistency
// and reuse.

type IndicatorsRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}

type AnomaliesRequest struct {
	Asset    string `query:"asset" json:"asset"`
	Days     int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=3650"`
	Severity string `query:"severity" json:"severity" default:"Moderate" validate:"oneof=Moderate High Critical"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type CorrelationsRequest struct {
	Asset string  `query:"asset" json:"asset"`
	Min   float64 `query:"min" json:"min" default:"0.1" validate:"gte=0,lte=1"`
	Limit int     `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type PerformanceRequest struct {
	Class string `query:"class" json:"class" validate:"omitempty,oneof=equity crypto economic"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type RefreshRequest struct {
	Wait bool `query:"wait" json:"wait"`
}
