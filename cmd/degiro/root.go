package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "degiro",
		Short:        "Command line client for the DEGIRO web trader",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML or JSON config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", ".env file to load (default: ./.env when present)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newSessionCmd(a),
		newCashCmd(a),
		newPortfolioCmd(a),
		newOrdersCmd(a),
		newTasksCmd(a),
		newHistoryCmd(a),
		newTransactionsCmd(a),
		newSearchCmd(a),
		newProductsCmd(a),
		newQuoteCmd(a),
		newOrderCmd(a),
		newJournalCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
	)
	return root
}
