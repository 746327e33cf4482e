package aggregator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
)

var fixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregator() *Aggregator {
	return New(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "insight-1" }),
	)
}

func adjusted(amount, date, name string, category ...string) models.AdjustedTransaction {
	return models.Passthrough(models.Transaction{
		ID:           name + date,
		Amount:       decimal.RequireFromString(amount),
		PostedDate:   models.MustParseDate(date),
		Description:  name,
		CategoryPath: category,
	})
}

func withMerchant(a models.AdjustedTransaction, merchant string) models.AdjustedTransaction {
	a.MerchantName = models.StringPtr(merchant)
	return a
}

func TestAggregate_BasicScenario(t *testing.T) {
	txs := []models.AdjustedTransaction{
		adjusted("50", "2024-01-10", "Lunch", "Food"),
		adjusted("30", "2024-01-12", "Dinner", "Food"),
		adjusted("-1000", "2024-01-15", "Payroll"),
	}
	accounts := []models.Account{
		{ID: "a", Balance: decimal.RequireFromString("100.10")},
		{ID: "b", Balance: decimal.RequireFromString("200.20")},
	}

	got, err := newTestAggregator().Aggregate(txs, accounts)
	require.NoError(t, err)

	assert.Equal(t, "insight-1", got.ID)
	assert.Equal(t, fixedNow, got.GeneratedAt)
	assert.Equal(t, 80.0, got.TotalSpending)
	assert.Equal(t, 1000.0, got.TotalIncome)
	assert.Equal(t, 920.0, got.NetCashflow)
	assert.Equal(t, 92.0, got.SavingsRatePercent)
	assert.Equal(t, 300.3, got.TotalBalance)
	assert.Equal(t, map[string]float64{"Food": 80}, got.SpendingByCategory)
	assert.Equal(t, []models.NamedAmount{{Name: "Food", Amount: 80}}, got.TopCategories)
	assert.Empty(t, got.TopMerchants)
	assert.Equal(t, map[string]float64{"2024-01": 80}, got.MonthlySpending)
	assert.Equal(t, models.TrendDecreasing, got.MonthlyTrend)
	assert.Equal(t, 3, got.TransactionCount)
	assert.Equal(t, 0, got.AdjustedCount)
	assert.Equal(t, 1, got.AnalysisPeriodMonths)
	assert.Equal(t, []string{
		"Your top spending category is Food at $80",
		"Set up automatic transfers to a high-yield savings account",
	}, got.Recommendations)
}

func TestAggregate_EmptyInput(t *testing.T) {
	_, err := newTestAggregator().Aggregate(nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoTransactions)
}

func TestAggregate_ZeroIncomeGuard(t *testing.T) {
	got, err := newTestAggregator().Aggregate([]models.AdjustedTransaction{
		adjusted("25", "2024-01-10", "Snacks"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, got.SavingsRatePercent)
	assert.Equal(t, -25.0, got.NetCashflow)
	assert.Contains(t, got.Recommendations, "Your savings rate is 0.0%. Aim for at least 20% by reducing discretionary spending")
	assert.Empty(t, got.TopCategories)
}

func TestAggregate_ZeroAmountsIgnored(t *testing.T) {
	got, err := newTestAggregator().Aggregate([]models.AdjustedTransaction{
		adjusted("0", "2024-01-10", "Adjustment", "Fees"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, got.TotalSpending)
	assert.Equal(t, 0.0, got.TotalIncome)
	assert.Empty(t, got.SpendingByCategory)
	assert.Empty(t, got.MonthlySpending)
	assert.Equal(t, 1, got.AnalysisPeriodMonths)
}

func TestAggregate_TopNTieStability(t *testing.T) {
	txs := []models.AdjustedTransaction{
		withMerchant(adjusted("10", "2024-01-01", "x", "Zeta"), "Shop Z"),
		withMerchant(adjusted("10", "2024-01-02", "x", "Alpha"), "Shop A"),
		withMerchant(adjusted("5", "2024-01-03", "x", "Mid"), "Shop M"),
		withMerchant(adjusted("10", "2024-01-04", "x", "Beta"), "Shop B"),
		adjusted("1", "2024-01-05", "x", "Tail1"),
		adjusted("1", "2024-01-06", "x", "Tail2"),
		adjusted("20", "2024-01-07", "x", "Top"),
	}

	got, err := newTestAggregator().Aggregate(txs, nil)
	require.NoError(t, err)

	require.Len(t, got.TopCategories, TopN)
	names := make([]string, len(got.TopCategories))
	for i, c := range got.TopCategories {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Top", "Zeta", "Alpha", "Beta", "Mid"}, names)

	assert.Equal(t, []models.NamedAmount{
		{Name: "Shop Z", Amount: 10},
		{Name: "Shop A", Amount: 10},
		{Name: "Shop B", Amount: 10},
		{Name: "Shop M", Amount: 5},
	}, got.TopMerchants)
}

func TestAggregate_UsesEffectiveDateForMonths(t *testing.T) {
	early := models.Shifted(models.Transaction{
		ID:           "mortgage",
		Amount:       decimal.RequireFromString("3416.03"),
		PostedDate:   models.MustParseDate("2024-02-28"),
		Description:  "MORTGAGE",
		CategoryPath: []string{"Housing"},
	}, models.MustParseDate("2024-03-01"), "mortgage")

	txs := []models.AdjustedTransaction{
		adjusted("100", "2024-02-10", "Groceries", "Food"),
		early,
		adjusted("-5000", "2024-02-15", "Payroll"),
	}

	got, err := newTestAggregator().Aggregate(txs, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"2024-02": 100, "2024-03": 3416.03}, got.MonthlySpending)
	assert.Equal(t, models.TrendIncreasing, got.MonthlyTrend)
	assert.Equal(t, 1, got.AdjustedCount)
	assert.Equal(t, 2, got.AnalysisPeriodMonths)
	assert.Equal(t, []string{
		"Adjusted 1 early payment(s) to their intended month for accurate monthly tracking",
		"Your top spending category is Housing at $3,416",
		"Your spending is trending upward. Review your budget for the coming month",
		"Set up automatic transfers to a high-yield savings account",
	}, got.Recommendations)
}

func TestAggregate_RecommendationOrder(t *testing.T) {
	early := models.Shifted(models.Transaction{
		ID:           "m",
		Amount:       decimal.NewFromInt(900),
		PostedDate:   models.MustParseDate("2024-01-30"),
		Description:  "Mortgage",
		CategoryPath: []string{"Housing"},
	}, models.MustParseDate("2024-02-01"), "mortgage")

	txs := []models.AdjustedTransaction{
		adjusted("100", "2024-01-05", "Streaming SUBSCRIPTION", "Entertainment"),
		adjusted("-1000", "2024-01-15", "Payroll"),
		early,
	}

	got, err := newTestAggregator().Aggregate(txs, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Adjusted 1 early payment(s) to their intended month for accurate monthly tracking",
		"Your savings rate is 0.0%. Aim for at least 20% by reducing discretionary spending",
		"Your top spending category is Housing at $900",
		"Review your subscriptions and recurring monthly charges for services you no longer use",
		"Your spending is trending upward. Review your budget for the coming month",
		"Set up automatic transfers to a high-yield savings account",
	}, got.Recommendations)
}

func TestAggregate_SavingsRateOneDecimal(t *testing.T) {
	got, err := newTestAggregator().Aggregate([]models.AdjustedTransaction{
		adjusted("2000", "2024-01-10", "Rent", "Housing"),
		adjusted("-2300", "2024-01-15", "Payroll"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 13.04, got.SavingsRatePercent)
	assert.Equal(t, "Your savings rate is 13.0%. Aim for at least 20% by reducing discretionary spending", got.Recommendations[0])
}

func TestAggregate_TopCategoryRoundedOnce(t *testing.T) {
	got, err := newTestAggregator().Aggregate([]models.AdjustedTransaction{
		adjusted("10.495", "2024-01-10", "Lunch", "Food"),
		adjusted("-1000", "2024-01-15", "Payroll"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 10.5, got.TopCategories[0].Amount)
	assert.Contains(t, got.Recommendations, "Your top spending category is Food at $10")
}

func TestMonthlyTrend(t *testing.T) {
	tests := []struct {
		name   string
		months map[string]decimal.Decimal
		want   models.Trend
	}{
		{"no months", map[string]decimal.Decimal{}, models.TrendDecreasing},
		{"single month", map[string]decimal.Decimal{"2024-01": decimal.NewFromInt(10)}, models.TrendDecreasing},
		{"equal months", map[string]decimal.Decimal{"2024-01": decimal.NewFromInt(10), "2024-02": decimal.NewFromInt(10)}, models.TrendDecreasing},
		{"latest higher", map[string]decimal.Decimal{"2023-12": decimal.NewFromInt(10), "2024-01": decimal.NewFromInt(11)}, models.TrendIncreasing},
		{"only two latest count", map[string]decimal.Decimal{
			"2023-11": decimal.NewFromInt(1000),
			"2023-12": decimal.NewFromInt(10),
			"2024-01": decimal.NewFromInt(20),
		}, models.TrendIncreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, monthlyTrend(tt.months))
		})
	}
}

func TestNew_DefaultsProduceUUIDs(t *testing.T) {
	logger := logging.NewMockLogger()
	agg := New(WithLogger(logger))

	first, err := agg.Aggregate([]models.AdjustedTransaction{adjusted("1", "2024-01-01", "x")}, nil)
	require.NoError(t, err)
	second, err := agg.Aggregate([]models.AdjustedTransaction{adjusted("1", "2024-01-01", "x")}, nil)
	require.NoError(t, err)

	assert.Len(t, first.ID, 36)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.GeneratedAt.IsZero())
	assert.True(t, logger.HasEntry("INFO", "Generated insight"))
}
