package main

import (
	"errors"
	"fmt"

	"github.com/cuemby/groupctl/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:     "group",
	Aliases: []string{"groups"},
	Short:   "Manage container groups",
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := current.orchestrator()
		if err != nil {
			return err
		}
		return printGroups(cmd, orch.ListGroups(cmd.Context()))
	},
}

var groupInspectCmd = &cobra.Command{
	Use:   "inspect NAME",
	Short: "Show the current state of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := current.orchestrator()
		if err != nil {
			return err
		}

		g, reason := orch.InspectGroup(cmd.Context(), args[0])
		if g == nil {
			return errors.New(reason)
		}

		if outputFormat(cmd) == outputJSON {
			return writeJSON(cmd.OutOrStdout(), g)
		}
		printGroup(cmd.OutOrStdout(), g)
		return nil
	},
}

var groupCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a group and wait until it is running",
	Long: `Create a container group and wait for it to finish creating.

If creation fails or does not finish within the wait budget, the group is
deleted again. Creating a group that already exists is refused.

Examples:
  # Create a group with default sizing
  groupctl group create web --image registry.example.net/web:1.4

  # Create a group with explicit sizing and environment
  groupctl group create web --image registry.example.net/web:1.4 \
    --desired 3 --min 1 --max 6 --memory 256 --env MODE=prod --port 8080`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		image, _ := flags.GetString("image")

		req := orchestrator.NewCreateRequest(args[0], image)
		req.Desired, _ = flags.GetInt("desired")
		req.Min, _ = flags.GetInt("min")
		req.Max, _ = flags.GetInt("max")
		req.Memory, _ = flags.GetInt("memory")
		req.Port, _ = flags.GetInt("port")
		req.Env, _ = flags.GetStringToString("env")
		req.MaxWait, _ = flags.GetDuration("max-wait")

		orch, err := current.orchestrator()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Creating group '%s'...\n", req.Name)
		return printOutcome(cmd, fmt.Sprintf("Group created: %s", req.Name), orch.CreateGroup(cmd.Context(), req))
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a group and wait until it is gone",
	Long: `Delete a container group and wait until the API no longer reports it.

With --force the delete is forced and retried up to three times until the
group is gone. Deleting a group that does not exist succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		name := args[0]

		orch, err := current.orchestrator()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Deleting group '%s'...\n", name)
		var o orchestrator.Outcome
		if force {
			o = orch.ForcedDeleteGroup(cmd.Context(), name)
		} else {
			o = orch.DeleteGroup(cmd.Context(), name)
		}
		return printOutcome(cmd, fmt.Sprintf("Group deleted: %s", name), o)
	},
}

var groupResizeCmd = &cobra.Command{
	Use:   "resize NAME",
	Short: "Change the desired instance count of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, _ := cmd.Flags().GetInt("desired")
		name := args[0]

		orch, err := current.orchestrator()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Resizing group '%s' to %d...\n", name, desired)
		return printOutcome(cmd, fmt.Sprintf("Group resized: %s (desired=%d)", name, desired), orch.ResizeGroup(cmd.Context(), name, desired))
	},
}

func init() {
	groupCreateCmd.Flags().String("image", "", "Container image (required)")
	groupCreateCmd.Flags().Int("desired", orchestrator.DefaultDesired, "Desired number of instances")
	groupCreateCmd.Flags().Int("min", orchestrator.DefaultMin, "Minimum number of instances")
	groupCreateCmd.Flags().Int("max", orchestrator.DefaultMax, "Maximum number of instances")
	groupCreateCmd.Flags().Int("memory", orchestrator.DefaultMemory, "Memory per instance in MB")
	groupCreateCmd.Flags().Int("port", 0, "Exposed port")
	groupCreateCmd.Flags().StringToString("env", nil, "Environment variables (KEY=VALUE)")
	groupCreateCmd.Flags().Duration("max-wait", 0, "How long to wait for creation (default from config)")
	_ = groupCreateCmd.MarkFlagRequired("image")

	groupDeleteCmd.Flags().Bool("force", false, "Force the delete and retry until the group is gone")

	groupResizeCmd.Flags().Int("desired", 0, "Desired number of instances (required)")
	_ = groupResizeCmd.MarkFlagRequired("desired")

	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupInspectCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupResizeCmd)
}
