package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(load serviceLoader) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "streamresolve",
		Short:         "Resolve TMDB titles to moviebox download payloads",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline steps to stderr")

	open := func(cmd *cobra.Command) (*services, error) {
		return load(cmd.Context(), verbose)
	}

	rootCmd.AddCommand(newResolveCommand(open))
	rootCmd.AddCommand(newHistoryCommand(open))
	rootCmd.AddCommand(newPrefetchCommand(open))

	return rootCmd
}
