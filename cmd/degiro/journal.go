package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newJournalCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent entries of the local order journal",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("order journal is disabled; set journal.path or DEGIRO_JOURNAL")
			}
			entries, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.printJSON(entries)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries")
	return cmd
}
