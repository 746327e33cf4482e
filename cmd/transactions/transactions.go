// Package transactions lists or exports the adjusted transaction view
package transactions

import (
	"fmt"

	"github.com/spf13/cobra"

	"fjacquet/finagent/cmd/common"
	"fjacquet/finagent/cmd/root"
	"fjacquet/finagent/internal/models"
)

var (
	csvFile      string
	adjustedOnly bool
)

// Cmd represents the transactions command
var Cmd = &cobra.Command{
	Use:   "transactions",
	Short: "Show stored transactions with early payments moved to their intended month",
	Long: `Show stored transactions after early-payment reclassification. Shifted payments
are highlighted with the profile that matched them. With --csv FILE the adjusted
view is written to a CSV file instead.`,
	Args: cobra.NoArgs,
	RunE: transactionsFunc,
}

func init() {
	Cmd.Flags().StringVar(&csvFile, "csv", "", "Write the adjusted transactions to this CSV file")
	Cmd.Flags().BoolVar(&adjustedOnly, "adjusted-only", false, "Only include transactions whose date was shifted")
}

func transactionsFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	adjusted, err := c.GetService().GetAllAdjustedTransactions()
	if err != nil {
		return fmt.Errorf("failed to reclassify transactions: %w", err)
	}
	if adjustedOnly {
		adjusted = onlyAdjusted(adjusted)
	}

	out := cmd.OutOrStdout()
	if csvFile == "" {
		common.PrintTransactions(out, adjusted)
		return nil
	}

	if err := c.GetCSVWriter().WriteFile(csvFile, adjusted); err != nil {
		return fmt.Errorf("failed to export transactions: %w", err)
	}
	common.Success(out, fmt.Sprintf("Exported %d transaction(s) to %s", len(adjusted), csvFile))
	return nil
}

func onlyAdjusted(adjusted []models.AdjustedTransaction) []models.AdjustedTransaction {
	out := make([]models.AdjustedTransaction, 0, len(adjusted))
	for _, tx := range adjusted {
		if tx.WasAdjusted {
			out = append(out, tx)
		}
	}
	return out
}
