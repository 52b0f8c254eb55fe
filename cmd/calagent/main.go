package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "calagent",
		Short: "A conversational calendar assistant",
		Long: `calagent manages a local calendar through conversation.

Settings come from an optional YAML file (--config), a .env file in the
working directory and CALAGENT_* environment variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.AddCommand(chatCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(sessionsCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the binary version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "calagent "+version)
		},
	}
}
