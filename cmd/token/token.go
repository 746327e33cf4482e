// Package token manages provider access tokens
package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"fjacquet/finagent/cmd/common"
	"fjacquet/finagent/cmd/root"
	"fjacquet/finagent/internal/logging"
)

// Cmd represents the token command
var Cmd = &cobra.Command{
	Use:   "token",
	Short: "Manage provider access tokens",
	Long: `Manage provider access tokens. Tokens are issued by the provider's link flow
outside finagent; add registers one and immediately fetches its accounts.`,
}

var addCmd = &cobra.Command{
	Use:   "add ACCESS_TOKEN",
	Short: "Register an access token and fetch its accounts",
	Args:  cobra.ExactArgs(1),
	RunE:  addFunc,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered access tokens",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch the accounts of every registered token",
	Args:  cobra.NoArgs,
	RunE:  refreshFunc,
}

func init() {
	Cmd.AddCommand(addCmd, listCmd, refreshCmd)
}

func addFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	accounts, err := c.GetService().AddAccessToken(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to add access token: %w", err)
	}

	out := cmd.OutOrStdout()
	common.Success(out, fmt.Sprintf("Access token %s linked with %d account(s)", logging.MaskToken(args[0]), len(accounts)))
	common.PrintAccounts(out, accounts)
	return nil
}

func listFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	tokens := c.GetStore().AccessTokens()
	if len(tokens) == 0 {
		common.Warning(out, "No access tokens registered")
		return nil
	}
	for _, tok := range tokens {
		common.Info(out, logging.MaskToken(tok))
	}
	return nil
}

func refreshFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	accounts, err := c.GetService().RefreshAccounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to refresh accounts: %w", err)
	}
	out := cmd.OutOrStdout()
	common.Success(out, fmt.Sprintf("Refreshed %d account(s)", len(accounts)))
	common.PrintAccounts(out, accounts)
	return nil
}
