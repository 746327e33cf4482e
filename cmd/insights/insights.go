// Package insights generates and displays spending insights
package insights

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fjacquet/finagent/cmd/common"
	"fjacquet/finagent/cmd/root"
	"fjacquet/finagent/internal/apperrors"
)

var history int

// Cmd represents the insights command
var Cmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate a spending insight, or show earlier ones",
	Long: `Generate a spending insight from the stored transactions after moving early
recurring payments to their intended month, and append it to the history.
With --history N, show the last N stored insights instead.`,
	Args: cobra.NoArgs,
	RunE: insightsFunc,
}

func init() {
	Cmd.Flags().IntVarP(&history, "history", "n", 0, "Show the last N stored insights instead of generating one")
}

func insightsFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	svc := c.GetService()

	if history < 0 {
		return fmt.Errorf("--history must not be negative, got %d", history)
	}
	if history > 0 {
		records := svc.GetLatestInsights(history)
		if len(records) == 0 {
			common.Warning(out, "No insights stored yet")
			return nil
		}
		for _, record := range records {
			common.PrintInsight(out, record)
		}
		return nil
	}

	record, err := svc.GenerateAndStoreInsight(cmd.Context())
	if errors.Is(err, apperrors.ErrNoTransactions) {
		common.Warning(out, "No transactions available. Run fetch first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to generate insight: %w", err)
	}
	common.PrintInsight(out, record)
	return nil
}
