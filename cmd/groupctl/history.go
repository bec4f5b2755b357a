package main

import (
	"errors"

	"github.com/cuemby/groupctl/pkg/journal"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded operation outcomes",
	Long: `Show the outcomes of past operations, newest first.

Every create, delete, resize, route change and update delete is recorded
in the local journal when it finishes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if current.store == nil {
			return errors.New("outcome journal is not available")
		}

		group, _ := cmd.Flags().GetString("group")
		limit, _ := cmd.Flags().GetInt("limit")

		var (
			entries []*journal.Entry
			err     error
		)
		if group != "" {
			entries, err = current.store.ListByGroup(group, limit)
		} else {
			entries, err = current.store.List(limit)
		}
		if err != nil {
			return err
		}
		return printEntries(cmd, entries)
	},
}

func init() {
	historyCmd.Flags().String("group", "", "Only show operations on this group")
	historyCmd.Flags().Int("limit", 20, "Maximum number of entries (0 for all)")
}
