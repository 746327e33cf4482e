package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"fjacquet/finagent/cmd/clear"
	"fjacquet/finagent/cmd/fetch"
	"fjacquet/finagent/cmd/insights"
	"fjacquet/finagent/cmd/root"
	"fjacquet/finagent/cmd/serve"
	"fjacquet/finagent/cmd/token"
	"fjacquet/finagent/cmd/transactions"
	"fjacquet/finagent/internal/config"
)

func init() {
	// 1. Load environment variables silently first (no logging yet)
	_, _ = config.LoadEnv()

	// 2. Configure the global log level before any logger is created
	config.ApplyLogLevel()

	// 3. Amounts serialize as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// 4. Initialize root command and add all subcommands
	root.Init()
	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(token.Cmd)
	root.Cmd.AddCommand(fetch.Cmd)
	root.Cmd.AddCommand(insights.Cmd)
	root.Cmd.AddCommand(transactions.Cmd)
	root.Cmd.AddCommand(clear.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
