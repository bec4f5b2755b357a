package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cuemby/groupctl/pkg/journal"
	"github.com/cuemby/groupctl/pkg/orchestrator"
	"github.com/cuemby/groupctl/pkg/types"
	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// errOperationFailed is returned after a failed outcome has been printed
var errOperationFailed = errors.New("operation failed")

type outcomeView struct {
	Success     bool         `json:"success"`
	State       string       `json:"state"`
	Reason      string       `json:"reason,omitempty"`
	OperationID string       `json:"operation_id"`
	Group       *types.Group `json:"group,omitempty"`
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}

// printOutcome writes o and turns a failed outcome into an error
func printOutcome(cmd *cobra.Command, action string, o orchestrator.Outcome) error {
	out := cmd.OutOrStdout()

	if outputFormat(cmd) == outputJSON {
		if err := writeJSON(out, outcomeView{
			Success:     o.Success,
			State:       string(o.State),
			Reason:      o.Reason,
			OperationID: o.OperationID,
			Group:       o.Group,
		}); err != nil {
			return err
		}
	} else if o.Success {
		fmt.Fprintf(out, "✓ %s (%s)\n", action, o.OperationID)
		if o.Group != nil {
			printGroup(out, o.Group)
		}
	} else {
		fmt.Fprintf(out, "✗ %s: %s\n", action, o.State)
		fmt.Fprintf(out, "  Reason: %s\n", o.Reason)
		fmt.Fprintf(out, "  Operation: %s\n", o.OperationID)
	}

	if !o.Success {
		return fmt.Errorf("%w: %s", errOperationFailed, o.Reason)
	}
	return nil
}

func printGroup(w io.Writer, g *types.Group) {
	fmt.Fprintf(w, "  Name: %s\n", g.Name)
	fmt.Fprintf(w, "  Status: %s\n", displayStatus(g.Status))
	n := g.NumberInstances
	fmt.Fprintf(w, "  Instances: %d current, %d desired (min %d, max %d)\n", n.CurrentSize, n.Desired, n.Min, n.Max)
	if len(g.Routes) > 0 {
		fmt.Fprintf(w, "  Routes: %s\n", strings.Join(g.Routes, ", "))
	}
}

func printGroups(cmd *cobra.Command, groups []types.Group) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) == outputJSON {
		return writeJSON(out, groups)
	}

	if len(groups) == 0 {
		fmt.Fprintln(out, "No groups found")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tINSTANCES\tROUTES")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n",
			g.Name, displayStatus(g.Status),
			g.NumberInstances.CurrentSize, g.NumberInstances.Desired,
			strings.Join(g.Routes, ","))
	}
	return tw.Flush()
}

func printEntries(cmd *cobra.Command, entries []*journal.Entry) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) == outputJSON {
		return writeJSON(out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No recorded operations")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOPERATION\tGROUP\tSTATE\tDURATION\tREASON")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Operation, e.Group, e.State,
			e.Duration.Round(time.Millisecond), e.Reason)
	}
	return tw.Flush()
}

func displayStatus(status string) string {
	if status == "" {
		return "-"
	}
	return status
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
