// Package fetch pulls accounts and transactions from the provider
package fetch

import (
	"fmt"

	"github.com/spf13/cobra"

	"fjacquet/finagent/cmd/common"
	"fjacquet/finagent/cmd/root"
)

var days int

// Cmd represents the fetch command
var Cmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch accounts and recent transactions for every registered token",
	Long: `Fetch accounts and the last N days of transactions for every registered token and
replace the stored sets. Nothing is stored when any provider call fails.`,
	Args: cobra.NoArgs,
	RunE: fetchFunc,
}

func init() {
	Cmd.Flags().IntVarP(&days, "days", "d", 0, "Number of days to fetch (default: provider.window_days)")
}

func fetchFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	if days < 0 {
		return fmt.Errorf("--days must not be negative, got %d", days)
	}

	count, err := c.GetService().FetchTransactions(cmd.Context(), days)
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	window := days
	if window == 0 {
		window = c.GetConfig().Provider.WindowDays
	}
	common.Success(cmd.OutOrStdout(), fmt.Sprintf("Fetched %d transaction(s) over the last %d day(s)", count, window))
	return nil
}
