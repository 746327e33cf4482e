package aggregator

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fjacquet/finagent/internal/models"
)

// SavingsRateTarget is the savings rate below which a warning is produced.
var SavingsRateTarget = decimal.NewFromInt(20)

var printer = message.NewPrinter(language.English)

type recommendationInput struct {
	adjustedCount    int
	savingsRate      decimal.Decimal
	topCategory      string // empty when no spending had a category
	topCategoryTotal decimal.Decimal
	hasRecurring     bool
	trend            models.Trend
}

// recommend builds the recommendation list. The order is fixed.
func recommend(in recommendationInput) []string {
	var out []string
	if in.adjustedCount > 0 {
		out = append(out, fmt.Sprintf("Adjusted %d early payment(s) to their intended month for accurate monthly tracking", in.adjustedCount))
	}
	if in.savingsRate.LessThan(SavingsRateTarget) {
		rate := in.savingsRate.Round(1).InexactFloat64()
		out = append(out, fmt.Sprintf("Your savings rate is %.1f%%. Aim for at least 20%% by reducing discretionary spending", rate))
	}
	if in.topCategory != "" {
		dollars := in.topCategoryTotal.Round(0).IntPart()
		out = append(out, fmt.Sprintf("Your top spending category is %s at $%s", in.topCategory, printer.Sprintf("%d", dollars)))
	}
	if in.hasRecurring {
		out = append(out, "Review your subscriptions and recurring monthly charges for services you no longer use")
	}
	if in.trend == models.TrendIncreasing {
		out = append(out, "Your spending is trending upward. Review your budget for the coming month")
	}
	out = append(out, "Set up automatic transfers to a high-yield savings account")
	return out
}
