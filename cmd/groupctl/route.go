package main

import (
	"fmt"

	"github.com/cuemby/groupctl/pkg/types"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Map and unmap group routes",
}

var routeMapCmd = &cobra.Command{
	Use:   "map NAME",
	Short: "Map hostname.domain to a group and wait until it is routed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRoute(cmd, args[0], true)
	},
}

var routeUnmapCmd = &cobra.Command{
	Use:   "unmap NAME",
	Short: "Unmap hostname.domain from a group and wait until it is gone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRoute(cmd, args[0], false)
	},
}

func runRoute(cmd *cobra.Command, name string, mapRoute bool) error {
	hostname, _ := cmd.Flags().GetString("hostname")
	domain, _ := cmd.Flags().GetString("domain")
	route := types.Route(hostname, domain)

	orch, err := current.orchestrator()
	if err != nil {
		return err
	}

	if mapRoute {
		fmt.Fprintf(cmd.ErrOrStderr(), "Mapping %s to '%s'...\n", route, name)
		return printOutcome(cmd, fmt.Sprintf("Route mapped: %s -> %s", route, name), orch.MapRoute(cmd.Context(), hostname, domain, name))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Unmapping %s from '%s'...\n", route, name)
	return printOutcome(cmd, fmt.Sprintf("Route unmapped: %s", route), orch.UnmapRoute(cmd.Context(), hostname, domain, name))
}

func init() {
	for _, c := range []*cobra.Command{routeMapCmd, routeUnmapCmd} {
		c.Flags().String("hostname", "", "Route hostname (required)")
		c.Flags().String("domain", "", "Route domain (required)")
		_ = c.MarkFlagRequired("hostname")
		_ = c.MarkFlagRequired("domain")
		routeCmd.AddCommand(c)
	}
}
