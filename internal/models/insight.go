package models

import "time"

// Trend is the month-over-month spending direction.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// NamedAmount is one row of a ranked breakdown.
type NamedAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// InsightRecord is a point-in-time summary of financial activity. Records are appended to
// the insight history and never modified.
type InsightRecord struct {
	ID                   string             `json:"id"`
	TotalSpending        float64            `json:"total_spending"`
	TotalIncome          float64            `json:"total_income"`
	NetCashflow          float64            `json:"net_cashflow"`
	SavingsRatePercent   float64            `json:"savings_rate_percent"`
	TotalBalance         float64            `json:"total_balance"`
	SpendingByCategory   map[string]float64 `json:"spending_by_category"`
	TopCategories        []NamedAmount      `json:"top_categories"`
	TopMerchants         []NamedAmount      `json:"top_merchants"`
	MonthlySpending      map[string]float64 `json:"monthly_spending"`
	MonthlyTrend         Trend              `json:"monthly_trend"`
	Recommendations      []string           `json:"recommendations"`
	TransactionCount     int                `json:"transaction_count"`
	AdjustedCount        int                `json:"adjusted_count"`
	AnalysisPeriodMonths int                `json:"analysis_period_months"`
	GeneratedAt          time.Time          `json:"generated_at"`
}
