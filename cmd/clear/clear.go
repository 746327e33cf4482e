// Package clear removes all stored data
package clear

import (
	"fmt"

	"github.com/spf13/cobra"

	"fjacquet/finagent/cmd/common"
	"fjacquet/finagent/cmd/root"
)

var confirmed bool

// Cmd represents the clear command
var Cmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all tokens, accounts, transactions and insights",
	Long:  `Remove all tokens, accounts, transactions and insights in one step. Requires --yes.`,
	Args:  cobra.NoArgs,
	RunE:  clearFunc,
}

func init() {
	Cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm removal of all stored data")
}

func clearFunc(cmd *cobra.Command, args []string) error {
	if !confirmed {
		return fmt.Errorf("refusing to clear all data without --yes")
	}
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	if err := c.GetService().ClearAll(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	common.Success(cmd.OutOrStdout(), "All data cleared")
	return nil
}
