// Package aggregator turns an adjusted transaction view into an InsightRecord: totals,
// breakdowns, a monthly trend and rule-based recommendations.
package aggregator

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
)

// TopN is the length of the ranked category and merchant lists.
const TopN = 5

// Aggregator computes insight records. The clock and ID source are injectable.
type Aggregator struct {
	now    func() time.Time
	newID  func() string
	logger logging.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the GeneratedAt source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithIDGenerator overrides the insight ID source.
func WithIDGenerator(newID func() string) Option {
	return func(a *Aggregator) { a.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// New creates an Aggregator using the wall clock and random UUIDs unless overridden.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithField(logging.FieldComponent, "aggregator")
	return a
}

// Aggregate summarizes adjusted against the given accounts. It returns
// apperrors.ErrNoTransactions when adjusted is empty.
func (a *Aggregator) Aggregate(adjusted []models.AdjustedTransaction, accounts []models.Account) (models.InsightRecord, error) {
	if len(adjusted) == 0 {
		return models.InsightRecord{}, apperrors.ErrNoTransactions
	}

	spending := decimal.Zero
	income := decimal.Zero
	byCategory := newRanking()
	byMerchant := newRanking()
	byMonth := map[string]decimal.Decimal{}
	periodMonths := map[string]struct{}{}
	adjustedCount := 0
	hasRecurring := false

	for _, tx := range adjusted {
		periodMonths[tx.EffectiveDate.MonthKey()] = struct{}{}
		if tx.WasAdjusted {
			adjustedCount++
		}
		if isRecurringDescription(tx.Description) {
			hasRecurring = true
		}

		switch {
		case tx.IsSpending():
			spending = spending.Add(tx.Amount)
			if cat, ok := tx.TopCategory(); ok {
				byCategory.add(cat, tx.Amount)
			}
			if merchant, ok := tx.Merchant(); ok {
				byMerchant.add(merchant, tx.Amount)
			}
			key := tx.EffectiveDate.MonthKey()
			byMonth[key] = byMonth[key].Add(tx.Amount)
		case tx.IsIncome():
			income = income.Add(tx.Amount.Abs())
		}
	}

	net := income.Sub(spending)
	savingsRate := decimal.Zero
	if !income.IsZero() {
		savingsRate = net.Div(income).Mul(decimal.NewFromInt(100))
	}

	balance := decimal.Zero
	for _, acc := range accounts {
		balance = balance.Add(acc.Balance)
	}

	topCategories := byCategory.top(TopN)
	trend := monthlyTrend(byMonth)

	record := models.InsightRecord{
		ID:                   a.newID(),
		TotalSpending:        models.RoundMoney(spending),
		TotalIncome:          models.RoundMoney(income),
		NetCashflow:          models.RoundMoney(net),
		SavingsRatePercent:   models.RoundMoney(savingsRate),
		TotalBalance:         models.RoundMoney(balance),
		SpendingByCategory:   byCategory.rounded(),
		TopCategories:        topCategories,
		TopMerchants:         byMerchant.top(TopN),
		MonthlySpending:      roundedMap(byMonth),
		MonthlyTrend:         trend,
		TransactionCount:     len(adjusted),
		AdjustedCount:        adjustedCount,
		AnalysisPeriodMonths: len(periodMonths),
		GeneratedAt:          a.now(),
	}
	input := recommendationInput{
		adjustedCount: adjustedCount,
		savingsRate:   savingsRate,
		hasRecurring:  hasRecurring,
		trend:         trend,
	}
	if len(topCategories) > 0 {
		input.topCategory = topCategories[0].Name
		input.topCategoryTotal = byCategory.totals[input.topCategory]
	}
	record.Recommendations = recommend(input)

	a.logger.Info("Generated insight",
		logging.F("insight_id", record.ID),
		logging.F(logging.FieldCount, record.TransactionCount),
		logging.F(logging.FieldAdjusted, record.AdjustedCount))
	return record, nil
}

// monthlyTrend compares the two latest months. Fewer than two months reads as decreasing.
func monthlyTrend(byMonth map[string]decimal.Decimal) models.Trend {
	if len(byMonth) < 2 {
		return models.TrendDecreasing
	}
	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	latest := byMonth[keys[len(keys)-1]]
	prior := byMonth[keys[len(keys)-2]]
	if latest.GreaterThan(prior) {
		return models.TrendIncreasing
	}
	return models.TrendDecreasing
}

func isRecurringDescription(description string) bool {
	lower := strings.ToLower(description)
	return strings.Contains(lower, "subscription") || strings.Contains(lower, "monthly")
}

func roundedMap(m map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = models.RoundMoney(v)
	}
	return out
}

// ranking accumulates amounts per name and remembers first-seen order for tie breaks.
type ranking struct {
	order  []string
	totals map[string]decimal.Decimal
}

func newRanking() *ranking {
	return &ranking{totals: map[string]decimal.Decimal{}}
}

func (r *ranking) add(name string, amount decimal.Decimal) {
	if _, seen := r.totals[name]; !seen {
		r.order = append(r.order, name)
	}
	r.totals[name] = r.totals[name].Add(amount)
}

func (r *ranking) top(n int) []models.NamedAmount {
	names := append([]string(nil), r.order...)
	sort.SliceStable(names, func(i, j int) bool {
		return r.totals[names[i]].GreaterThan(r.totals[names[j]])
	})
	if len(names) > n {
		names = names[:n]
	}
	out := make([]models.NamedAmount, len(names))
	for i, name := range names {
		out[i] = models.NamedAmount{Name: name, Amount: models.RoundMoney(r.totals[name])}
	}
	return out
}

func (r *ranking) rounded() map[string]float64 {
	return roundedMap(r.totals)
}
