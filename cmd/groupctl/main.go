package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	// PersistentPostRun is skipped when a command fails, so the session is
	// closed here for every path
	current.close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "groupctl",
	Short: "groupctl - Reliable lifecycle operations for container groups",
	Long: `groupctl drives container groups on a remote groups API through their
whole lifecycle: create, resize, route, and delete.

Every operation is submitted with retries, then awaited by polling the
group until it reaches a terminal state or the wait budget runs out.
A failed create is rolled back automatically.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return current.open(cmd) },
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"groupctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ~/.groupctl/config.yaml)")
	flags.String("api-url", "", "Groups API base URL")
	flags.String("deploy-url", "", "Deploy API base URL")
	flags.String("credentials", "", "Credentials file (default ~/.cf/config.json)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("json-logs", false, "Log as JSON")
	flags.String("metrics-addr", "", "Serve metrics and health endpoints on this address")
	flags.String("journal", "", "Outcome journal file")
	flags.Bool("no-journal", false, "Do not record outcomes")
	flags.StringP("output", "o", "text", "Output format (text, json)")

	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(historyCmd)
}
