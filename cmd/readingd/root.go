package main

import "github.com/spf13/cobra"

func newRootCmd(wire wireFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "readingd",
		Short:         "Generate AI readings for drawn symbolic cards",
		Long:          "readingd submits card readings to an AI backend, waits for asynchronous runs to finish, and serves the pipeline over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(wire),
		newReadCmd(wire),
		newFollowUpCmd(wire),
	)
	return rootCmd
}
