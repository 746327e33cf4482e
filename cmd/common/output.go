// Package common contains shared output helpers for command handlers
package common

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"fjacquet/finagent/internal/models"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue)
	red    = color.New(color.FgRed)
)

// Header prints a section header.
func Header(w io.Writer, text string) {
	line := strings.Repeat("=", 60)
	green.Fprintf(w, "%s\n%s\n%s\n", line, text, line)
}

// Success prints a success message.
func Success(w io.Writer, text string) {
	green.Fprintf(w, "  → %s\n", text)
}

// Info prints an info message.
func Info(w io.Writer, text string) {
	fmt.Fprintf(w, "  → %s\n", text)
}

// Warning prints a warning message.
func Warning(w io.Writer, text string) {
	yellow.Fprintf(w, "  ⚠ %s\n", text)
}

// Error prints an error message.
func Error(w io.Writer, text string) {
	red.Fprintf(w, "Error: %s\n", text)
}

// PrintAccounts lists accounts with their balances.
func PrintAccounts(w io.Writer, accounts []models.Account) {
	if len(accounts) == 0 {
		Warning(w, "No accounts linked")
		return
	}
	for _, acc := range accounts {
		fmt.Fprintf(w, "  %-24s %-12s %-14s %12s\n", acc.Name, acc.Type, acc.Subtype, acc.Balance.StringFixed(models.MoneyPlaces))
	}
}

// PrintInsight renders one insight record.
func PrintInsight(w io.Writer, record models.InsightRecord) {
	Header(w, fmt.Sprintf("Insight %s (%s)", record.ID, record.GeneratedAt.Format("2006-01-02 15:04")))

	fmt.Fprintf(w, "  Total spending:  %12.2f\n", record.TotalSpending)
	fmt.Fprintf(w, "  Total income:    %12.2f\n", record.TotalIncome)
	netColor := green
	if record.NetCashflow < 0 {
		netColor = red
	}
	netColor.Fprintf(w, "  Net cashflow:    %12.2f\n", record.NetCashflow)
	fmt.Fprintf(w, "  Savings rate:    %11.1f%%\n", record.SavingsRatePercent)
	fmt.Fprintf(w, "  Total balance:   %12.2f\n", record.TotalBalance)
	fmt.Fprintf(w, "  Transactions:    %12d (%d adjusted, %d month(s))\n",
		record.TransactionCount, record.AdjustedCount, record.AnalysisPeriodMonths)

	printRanking(w, "Top categories", record.TopCategories)
	printRanking(w, "Top merchants", record.TopMerchants)

	if len(record.MonthlySpending) > 0 {
		blue.Fprintf(w, "\n  Monthly spending (%s)\n", record.MonthlyTrend)
		months := make([]string, 0, len(record.MonthlySpending))
		for month := range record.MonthlySpending {
			months = append(months, month)
		}
		sort.Strings(months)
		for _, month := range months {
			fmt.Fprintf(w, "    %-10s %12.2f\n", month, record.MonthlySpending[month])
		}
	}

	if len(record.Recommendations) > 0 {
		blue.Fprintln(w, "\n  Recommendations")
		for _, rec := range record.Recommendations {
			yellow.Fprintf(w, "    • %s\n", rec)
		}
	}
	fmt.Fprintln(w)
}

func printRanking(w io.Writer, title string, items []models.NamedAmount) {
	if len(items) == 0 {
		return
	}
	blue.Fprintf(w, "\n  %s\n", title)
	for i, item := range items {
		fmt.Fprintf(w, "    %d. %-28s %12.2f\n", i+1, item.Name, item.Amount)
	}
}

// PrintTransactions renders adjusted transactions, one per line. Shifted transactions
// show their posted date next to the effective one.
func PrintTransactions(w io.Writer, adjusted []models.AdjustedTransaction) {
	if len(adjusted) == 0 {
		Warning(w, "No transactions stored. Run fetch first.")
		return
	}
	for _, tx := range adjusted {
		line := fmt.Sprintf("  %s  %-36s %12s", tx.EffectiveDate, truncate(tx.Description, 36), tx.Amount.StringFixed(models.MoneyPlaces))
		if tx.WasAdjusted && tx.OriginalDate != nil {
			yellow.Fprintf(w, "%s  [%s, posted %s]\n", line, tx.MatchedProfile, tx.OriginalDate)
			continue
		}
		fmt.Fprintln(w, line)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
