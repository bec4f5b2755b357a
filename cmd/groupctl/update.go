package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Manage deploy updates",
}

var updateDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a deploy update",
	Long: `Delete a deploy update by name on the deploy API.

A missing update counts as deleted. There is no wait: the deploy API
completes deletes synchronously.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := current.orchestrator()
		if err != nil {
			return err
		}
		return printOutcome(cmd, fmt.Sprintf("Update deleted: %s", args[0]), orch.DeleteUpdate(cmd.Context(), args[0]))
	},
}

func init() {
	updateCmd.AddCommand(updateDeleteCmd)
}
